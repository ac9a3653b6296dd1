package main

import (
	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/manifest"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/spf13/cobra"
)

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the package recipe and tool configuration",
		Long: `Validate checks the recipe and the tool configuration against their
schemas and renders every path template, without touching the source tree.`,
		Args: cobra.NoArgs,
		RunE: executeValidate,
	}
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	_, recipePath, recipe, err := loadRecipe()
	if err != nil {
		return err
	}

	mf, err := manifest.Assemble(recipe)
	if err != nil {
		return err
	}

	cfg := config.Global()
	log.Infof("✓ Recipe validation successful for %s", recipePath)
	log.Infof("Package: %s v%s (release %s)", recipe.Name, recipe.Version, recipe.Release())
	log.Infof("Archive format: %s, work dir: %s, dist dir: %s", cfg.Archive.Format, cfg.WorkDir, cfg.DistDir)

	if recipe.BuildEnabled() {
		log.Infof("Native build: %s %v %s in %s", recipe.Build.Tool, recipe.Build.Args, recipe.Build.Target, recipe.Build.SourceDir)
	}

	if config.NewConfigHelpers(cfg).IsDebugMode() {
		for _, pair := range mf.DataFiles() {
			log.Infof("  %s", pair.Dir)
			for _, f := range pair.Files {
				log.Infof("    - %s", f)
			}
		}
	}
	return nil
}
