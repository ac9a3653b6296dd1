package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/dist"
	"github.com/potassco/gringo-dist/internal/manifest"
	"github.com/potassco/gringo-dist/internal/metadata"
	"github.com/potassco/gringo-dist/internal/nativebuild"
	"github.com/potassco/gringo-dist/internal/utils/logger"
)

// packageRun holds everything a packaging subcommand works on.
type packageRun struct {
	root       string
	recipePath string
	recipe     *config.Recipe
	metadata   *metadata.Metadata
	manifest   manifest.Manifest
	dist       *dist.Distribution
	compiled   bool
	helpers    *config.ConfigHelpers
}

func resolveRoot() (string, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("resolving package root: %w", err)
	}
	return root, nil
}

func resolveRecipePath(root string) string {
	if filepath.IsAbs(recipeFile) {
		return recipeFile
	}
	return filepath.Join(root, recipeFile)
}

// loadRecipe loads the recipe named by --recipe under --root.
func loadRecipe() (string, string, *config.Recipe, error) {
	root, err := resolveRoot()
	if err != nil {
		return "", "", nil, err
	}
	recipePath := resolveRecipePath(root)
	recipe, err := config.LoadRecipe(recipePath)
	if err != nil {
		return "", "", nil, err
	}
	return root, recipePath, recipe, nil
}

// preparePackage runs the common packaging sequence: load the recipe, read
// the metadata, run the native build when --compile is set, then assemble
// and verify the install manifest.
func preparePackage(ctx context.Context) (*packageRun, error) {
	log := logger.Logger()

	root, recipePath, recipe, err := loadRecipe()
	if err != nil {
		return nil, err
	}

	md, err := metadata.Load(recipe, root)
	if err != nil {
		return nil, err
	}

	run := &packageRun{
		root:       root,
		recipePath: recipePath,
		recipe:     recipe,
		metadata:   md,
		helpers:    config.NewConfigHelpers(config.Global()).RelativeTo(root),
	}

	if compile {
		if err := runNativeBuild(ctx, recipe, root); err != nil {
			return nil, err
		}
		run.compiled = true
	}

	mf, err := manifest.Assemble(recipe)
	if err != nil {
		return nil, err
	}
	if !run.compiled && mf.HasBuildOutputs() {
		log.Warnf("--compile not given, using pre-built native build outputs")
	}
	if err := mf.Verify(root, run.compiled); err != nil {
		if errors.Is(err, manifest.ErrBuildRequired) {
			log.Errorf("build outputs are missing; run again with --compile")
		}
		return nil, err
	}
	run.manifest = mf

	d, err := dist.New(recipe, md, mf, root)
	if err != nil {
		return nil, err
	}
	run.dist = d

	log.Infof("%s: %d manifest entries verified", md.FullName(), len(mf))
	return run, nil
}

// runNativeBuild builds the recipe's target once and, when configured, checks
// the version the artifact reports.
func runNativeBuild(ctx context.Context, recipe *config.Recipe, root string) error {
	spec, err := nativebuild.SpecFromRecipe(recipe, root)
	if err != nil {
		return fmt.Errorf("--compile: %w", err)
	}

	if _, err := nativebuild.NewBuilder().Build(ctx, spec); err != nil {
		return err
	}

	if probe := recipe.Build.VersionProbe; probe != nil {
		if _, err := nativebuild.ProbeVersion(ctx, spec.SourceDir, probe, recipe.Release()); err != nil {
			return err
		}
	}
	return nil
}
