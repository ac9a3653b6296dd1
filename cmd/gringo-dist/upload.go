package main

import (
	"fmt"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/dist"
	"github.com/spf13/cobra"
)

// newObjectStore is replaced in tests.
var newObjectStore = func(cfg config.UploadConfig) (dist.ObjectStore, error) {
	return dist.NewS3Client(cfg)
}

// createUploadCommand creates the upload subcommand
func createUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload archives to the configured bucket",
		Long: `Upload puts archives, records and signatures into the S3 compatible bucket
configured under upload. Credentials are read from AWS_ACCESS_KEY_ID and
AWS_SECRET_ACCESS_KEY.`,
		Args: cobra.MinimumNArgs(1),
		RunE: executeUpload,
	}
}

func executeUpload(cmd *cobra.Command, args []string) error {
	cfg := config.Global().Upload

	store, err := newObjectStore(cfg)
	if err != nil {
		return err
	}

	names, err := dist.NewUploader(store, cfg).Upload(cmd.Context(), args)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", cfg.Bucket, name)
	}
	return nil
}
