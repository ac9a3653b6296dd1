package main

import (
	"fmt"

	"github.com/potassco/gringo-dist/internal/dist"
	"github.com/potassco/gringo-dist/internal/manifest"
	"github.com/potassco/gringo-dist/internal/metadata"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// createShowCommand creates the show subcommand
func createShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the metadata handed to the packaging backend",
		Args:  cobra.NoArgs,
		RunE:  executeShow,
	}
}

func executeShow(cmd *cobra.Command, args []string) error {
	root, _, recipe, err := loadRecipe()
	if err != nil {
		return err
	}

	md, err := metadata.Load(recipe, root)
	if err != nil {
		return err
	}
	mf, err := manifest.Assemble(recipe)
	if err != nil {
		return err
	}

	d, err := dist.New(recipe, md, mf, root)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(d.Options())
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
