package dist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/utils/logger"
)

// InstallOptions controls Install.
type InstallOptions struct {
	// Compiled reports whether the native build ran in this invocation.
	Compiled bool
	// RecordFile, when set, receives the absolute paths of installed files.
	RecordFile string
	// Scratch provides the temporary staging tree; nil uses the global
	// configuration.
	Scratch *config.ConfigHelpers
}

// Install verifies the manifest, stages the distribution into a temporary
// tree and copies that tree into prefix. Nothing is written below prefix
// unless verification and staging both succeed.
func (d *Distribution) Install(ctx context.Context, prefix string, opts InstallOptions) ([]string, error) {
	log := logger.Logger()

	if err := d.Manifest.Verify(d.Root, opts.Compiled); err != nil {
		return nil, err
	}

	absPrefix, err := filepath.Abs(prefix)
	if err != nil {
		return nil, fmt.Errorf("resolving install prefix: %w", err)
	}

	scratch := opts.Scratch
	if scratch == nil {
		scratch = config.NewConfigHelpers(config.Global())
	}
	stageDir, err := scratch.CreateTempDir("gringo-dist-install-")
	if err != nil {
		return nil, fmt.Errorf("creating temporary stage: %w", err)
	}
	defer os.RemoveAll(stageDir)

	staged, err := d.Stage(ctx, stageDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absPrefix, 0755); err != nil {
		return nil, fmt.Errorf("creating install prefix %s: %w", absPrefix, err)
	}
	if err := copy.Copy(stageDir, absPrefix, copyOptions); err != nil {
		return nil, fmt.Errorf("installing into %s: %w", absPrefix, err)
	}

	installed := make([]string, 0, len(staged))
	logger.InstalledFilesReport.Reset()
	for _, rel := range staged {
		path := filepath.Join(absPrefix, rel)
		installed = append(installed, path)
		logger.InstalledFilesReport.Add(path)
	}

	if opts.RecordFile != "" {
		if err := logger.InstalledFilesReport.WriteListToFile(opts.RecordFile); err != nil {
			return installed, fmt.Errorf("writing install record: %w", err)
		}
		log.Infof("wrote install record %s", opts.RecordFile)
	}

	log.Infof("installed %s into %s (%d files)", d.Metadata.FullName(), absPrefix, len(installed))
	return installed, nil
}
