package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/nativebuild"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/spf13/cobra"
)

var cleanAll bool

// createCleanCommand creates the clean subcommand
func createCleanCommand() *cobra.Command {
	cleanCmd := &cobra.Command{
		Use:   "clean [flags]",
		Short: "Remove native build outputs",
		Long: `Clean runs the build tool's clean mode for the recipe target. With --all
the staged tree in the work directory is removed as well.`,
		Args: cobra.NoArgs,
		RunE: executeClean,
	}
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false,
		"Also remove the staged tree")
	return cleanCmd
}

func executeClean(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	root, _, recipe, err := loadRecipe()
	if err != nil {
		return err
	}

	spec, err := nativebuild.SpecFromRecipe(recipe, root)
	if err != nil {
		return err
	}
	if err := nativebuild.NewBuilder().Clean(cmd.Context(), spec); err != nil {
		return err
	}

	if cleanAll {
		workDir, err := config.NewConfigHelpers(config.Global()).RelativeTo(root).WorkDir()
		if err != nil {
			return err
		}
		stageDir := filepath.Join(workDir, recipe.Name+"-"+recipe.Version)
		if err := os.RemoveAll(stageDir); err != nil {
			return fmt.Errorf("removing %s: %w", stageDir, err)
		}
		log.Infof("removed %s", stageDir)
	}
	return nil
}
