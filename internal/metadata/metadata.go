// Package metadata turns a recipe into the package metadata handed to the
// packaging backend. The long description is read from disk first; a missing
// file aborts before any metadata value exists.
package metadata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/manifest"
	"github.com/potassco/gringo-dist/internal/utils/logger"
)

// MetadataVersion is the core-metadata version written to PKG-INFO.
const MetadataVersion = "1.1"

// Metadata is the declarative description of one distribution.
type Metadata struct {
	Name               string
	Version            string
	Description        string
	LongDescription    string
	URL                string
	Maintainer         string
	MaintainerEmail    string
	License            string
	Classifiers        []string
	Keywords           []string
	Packages           []string
	PackageData        map[string][]string
	ZipSafe            bool
	BinaryDistribution bool
}

// Load reads the long description named by recipe.Readme, relative to root,
// and builds the metadata. The returned error wraps fs.ErrNotExist when the
// file is absent.
func Load(recipe *config.Recipe, root string) (*Metadata, error) {
	log := logger.Logger()

	readmePath := recipe.Readme
	if !filepath.IsAbs(readmePath) {
		readmePath = filepath.Join(root, readmePath)
	}

	longDesc, err := os.ReadFile(readmePath)
	if err != nil {
		return nil, fmt.Errorf("reading long description %s: %w", readmePath, err)
	}
	log.Debugf("read long description from %s (%d bytes)", readmePath, len(longDesc))

	return &Metadata{
		Name:               recipe.Name,
		Version:            recipe.Version,
		Description:        recipe.Description,
		LongDescription:    string(longDesc),
		URL:                recipe.URL,
		Maintainer:         recipe.Maintainer,
		MaintainerEmail:    recipe.MaintainerEmail,
		License:            recipe.License,
		Classifiers:        append([]string(nil), recipe.Classifiers...),
		Keywords:           append([]string(nil), recipe.Keywords...),
		Packages:           append([]string(nil), recipe.Packages...),
		PackageData:        copyPackageData(recipe.PackageData),
		ZipSafe:            recipe.ZipSafe,
		BinaryDistribution: recipe.BinaryDistribution,
	}, nil
}

// FullName is <name>-<version>, the stem of every artifact name.
func (m *Metadata) FullName() string {
	return m.Name + "-" + m.Version
}

// DistInfoDir is the name of the directory holding PKG-INFO in staged trees.
func (m *Metadata) DistInfoDir() string {
	return safeName(m.Name) + "-" + safeName(m.Version) + ".egg-info"
}

// Options returns the option mapping consumed by the packaging backend.
// data_files lists the verified manifest as (directory, files) pairs.
func (m *Metadata) Options(mf manifest.Manifest) map[string]interface{} {
	opts := map[string]interface{}{
		"name":             m.Name,
		"version":          m.Version,
		"description":      m.Description,
		"long_description": m.LongDescription,
		"url":              m.URL,
		"maintainer":       m.Maintainer,
		"maintainer_email": m.MaintainerEmail,
		"license":          m.License,
		"classifiers":      m.Classifiers,
		"keywords":         strings.Join(m.Keywords, " "),
		"packages":         m.Packages,
		"package_data":     m.PackageData,
		"zip_safe":         m.ZipSafe,
	}
	if mf != nil {
		opts["data_files"] = mf.DataFiles()
	}
	if m.BinaryDistribution {
		opts["distclass"] = "BinaryDistribution"
	}
	return opts
}

// WritePKGInfo renders the metadata in the RFC 822 style core-metadata
// format. Continuation lines of the long description are indented by eight
// spaces.
func (m *Metadata) WritePKGInfo(w io.Writer) error {
	var b strings.Builder

	field := func(key, value string) {
		if value == "" {
			value = "UNKNOWN"
		}
		fmt.Fprintf(&b, "%s: %s\n", key, value)
	}

	field("Metadata-Version", MetadataVersion)
	field("Name", m.Name)
	field("Version", m.Version)
	field("Summary", m.Description)
	field("Home-page", m.URL)
	field("Author", "UNKNOWN")
	field("Author-email", "UNKNOWN")
	field("Maintainer", m.Maintainer)
	field("Maintainer-email", m.MaintainerEmail)
	field("License", m.License)
	field("Description", strings.ReplaceAll(strings.TrimRight(m.LongDescription, "\n"), "\n", "\n        "))
	if len(m.Keywords) > 0 {
		field("Keywords", strings.Join(m.Keywords, " "))
	}
	field("Platform", "UNKNOWN")
	for _, c := range m.Classifiers {
		field("Classifier", c)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func copyPackageData(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// safeName replaces characters that are not allowed in egg-info directory
// names with underscores.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
