package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/dist"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/potassco/gringo-dist/internal/utils/slice"
	"github.com/potassco/gringo-dist/internal/utils/system"
	"github.com/spf13/cobra"
)

// Archive command flags
var (
	archiveFormat string
	signArchive   bool
	showProgress  bool
)

func addArchiveFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&archiveFormat, "format", "",
		"Archive format: gztar, xztar or zstdtar (default from configuration)")
	cmd.Flags().BoolVar(&signArchive, "sign", false,
		"Write a detached OpenPGP signature next to the archive")
	cmd.Flags().BoolVar(&showProgress, "progress", false,
		"Show a progress bar while archiving")
}

// createSdistCommand creates the sdist subcommand
func createSdistCommand() *cobra.Command {
	sdistCmd := &cobra.Command{
		Use:   "sdist [flags]",
		Short: "Create a source archive",
		Long: `Sdist writes <name>-<version>.<ext> into the dist directory. It holds
PKG-INFO, the long description, the recipe, the packages and every file of
the install manifest.`,
		Args: cobra.NoArgs,
		RunE: executeSdist,
	}
	addArchiveFlags(sdistCmd)
	return sdistCmd
}

// createBdistCommand creates the bdist subcommand
func createBdistCommand() *cobra.Command {
	bdistCmd := &cobra.Command{
		Use:   "bdist [flags]",
		Short: "Create a binary archive of the staged tree",
		Long: `Bdist stages the distribution and archives the staged tree. Binary
distributions are tagged with the host platform, for example
gringo-4.4.0.dev1.linux-x86_64.tar.gz.`,
		Args: cobra.NoArgs,
		RunE: executeBdist,
	}
	addArchiveFlags(bdistCmd)
	return bdistCmd
}

// checkArchiveFormat rejects an unknown --format before any work is done.
func checkArchiveFormat() error {
	if archiveFormat == "" || slice.Contains(config.ArchiveFormats, archiveFormat) {
		return nil
	}
	return fmt.Errorf("unsupported archive format %q (want one of %s)",
		archiveFormat, strings.Join(config.ArchiveFormats, ", "))
}

func archiveOptions(run *packageRun) dist.ArchiveOptions {
	format := archiveFormat
	if format == "" {
		format = run.helpers.ArchiveFormat()
	}
	opts := dist.ArchiveOptions{Format: format}
	if showProgress {
		opts.Progress = os.Stderr
	}
	return opts
}

func executeSdist(cmd *cobra.Command, args []string) error {
	if err := checkArchiveFormat(); err != nil {
		return err
	}

	run, err := preparePackage(cmd.Context())
	if err != nil {
		return err
	}

	distDir, err := run.helpers.CreateDistDir()
	if err != nil {
		return err
	}

	var extra []string
	if rel, err := filepath.Rel(run.root, run.recipePath); err == nil && filepath.IsLocal(rel) {
		extra = append(extra, rel)
	}

	art, err := run.dist.SourceArchive(cmd.Context(), distDir, run.recipe.Readme, extra, archiveOptions(run))
	if err != nil {
		return err
	}
	return finishArtifact(cmd, run, art)
}

func executeBdist(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	if err := checkArchiveFormat(); err != nil {
		return err
	}

	run, err := preparePackage(cmd.Context())
	if err != nil {
		return err
	}

	opts := archiveOptions(run)
	if !run.dist.IsPure() {
		opts.Platform, err = system.PlatformTag(cmd.Context())
		if err != nil {
			return err
		}
		host, err := system.GetHostOsInfo(cmd.Context())
		if err != nil {
			log.Warnf("build host not recorded: %v", err)
		} else {
			opts.Host = &host
		}
	}

	stageDir, err := stageDistribution(cmd, run)
	if err != nil {
		return err
	}
	distDir, err := run.helpers.CreateDistDir()
	if err != nil {
		return err
	}

	art, err := run.dist.BinaryArchive(cmd.Context(), stageDir, distDir, opts)
	if err != nil {
		return err
	}
	return finishArtifact(cmd, run, art)
}

// finishArtifact signs the archive when asked and prints the produced files.
func finishArtifact(cmd *cobra.Command, run *packageRun, art *dist.Artifact) error {
	files := []string{art.Path, art.RecordPath}

	if signArchive {
		keyFile := run.helpers.GetConfig().Signing.KeyFile
		if keyFile == "" {
			return fmt.Errorf("--sign requires signing.key_file in the configuration")
		}
		sig, err := dist.Sign(art.Path, keyFile, run.helpers.SigningPassphrase())
		if err != nil {
			return err
		}
		files = append(files, sig)
	}

	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}
