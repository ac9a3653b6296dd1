// Package dist is the packaging backend. It consumes package metadata and a
// verified install manifest and produces staged trees, installations, source
// and binary archives, signatures and uploads.
package dist

import (
	"fmt"
	"path/filepath"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/manifest"
	"github.com/potassco/gringo-dist/internal/metadata"
)

// Distribution is one package ready to be handed to the backend.
type Distribution struct {
	Metadata *metadata.Metadata
	Manifest manifest.Manifest
	// Root is the package root holding the long description, the nested
	// source tree and the package directories.
	Root string
	// PackageDest is the staged directory of packages and the egg-info
	// directory, relative to the staging root.
	PackageDest string
}

// New builds a Distribution from a loaded recipe, its metadata and its
// assembled manifest.
func New(recipe *config.Recipe, md *metadata.Metadata, mf manifest.Manifest, root string) (*Distribution, error) {
	dest, err := config.RenderTemplate(recipe.PackageDest, recipe.TemplateVars())
	if err != nil {
		return nil, fmt.Errorf("package_dest: %w", err)
	}
	dest = filepath.Clean(filepath.FromSlash(dest))
	if filepath.IsAbs(dest) {
		return nil, fmt.Errorf("package_dest %s must be relative to the install prefix", dest)
	}

	return &Distribution{
		Metadata:    md,
		Manifest:    mf,
		Root:        root,
		PackageDest: dest,
	}, nil
}

// Options is the option mapping of the distribution: its metadata with the
// verified manifest as data_files.
func (d *Distribution) Options() map[string]interface{} {
	return d.Metadata.Options(d.Manifest)
}

// IsPure reports whether the archives are platform independent. A distclass
// option marks the distribution as carrying native code.
func (d *Distribution) IsPure() bool {
	_, ok := d.Options()["distclass"]
	return !ok
}

// StageName is the directory name of the staged tree, <name>-<version>.
func (d *Distribution) StageName() string {
	return d.Metadata.FullName()
}
