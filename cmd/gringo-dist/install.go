package main

import (
	"fmt"

	"github.com/potassco/gringo-dist/internal/dist"
	"github.com/spf13/cobra"
)

// Install command flags
var (
	installPrefix string
	recordFile    string
)

// createInstallCommand creates the install subcommand
func createInstallCommand() *cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install --prefix DIR [flags]",
		Short: "Install the distribution under a prefix",
		Long: `Install verifies every manifest file, stages the distribution into a
temporary tree and copies it into the prefix. Nothing is installed when a
file is missing.`,
		Args: cobra.NoArgs,
		RunE: executeInstall,
	}

	installCmd.Flags().StringVar(&installPrefix, "prefix", "",
		"Installation prefix")
	installCmd.Flags().StringVar(&recordFile, "record", "",
		"Write the list of installed files to this file")
	_ = installCmd.MarkFlagRequired("prefix")
	return installCmd
}

func executeInstall(cmd *cobra.Command, args []string) error {
	run, err := preparePackage(cmd.Context())
	if err != nil {
		return err
	}

	installed, err := run.dist.Install(cmd.Context(), installPrefix, dist.InstallOptions{
		Compiled:   run.compiled,
		RecordFile: recordFile,
		Scratch:    run.helpers,
	})
	if err != nil {
		return err
	}

	for _, path := range installed {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
