package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/spf13/cobra"
)

// createBuildCommand creates the build subcommand
func createBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Stage the distribution into the work directory",
		Long: `Build verifies the install manifest and lays the distribution out under
<work_dir>/<name>-<version> exactly as it would be installed.`,
		Args: cobra.NoArgs,
		RunE: executeBuild,
	}
}

func executeBuild(cmd *cobra.Command, args []string) error {
	run, err := preparePackage(cmd.Context())
	if err != nil {
		return err
	}

	stageDir, err := stageDistribution(cmd, run)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), stageDir)
	return nil
}

// stageDistribution stages into a fresh <work_dir>/<name>-<version>.
func stageDistribution(cmd *cobra.Command, run *packageRun) (string, error) {
	log := logger.Logger()

	workDir, err := run.helpers.CreateWorkDir()
	if err != nil {
		return "", err
	}
	stageDir := filepath.Join(workDir, run.dist.StageName())
	if err := os.RemoveAll(stageDir); err != nil {
		return "", fmt.Errorf("removing previous stage %s: %w", stageDir, err)
	}

	if _, err := run.dist.Stage(cmd.Context(), stageDir); err != nil {
		return "", err
	}
	log.Infof("staged %s into %s", run.metadata.FullName(), stageDir)
	return stageDir, nil
}
