package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/potassco/gringo-dist/internal/config/validate"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/potassco/gringo-dist/internal/utils/slice"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// DefaultRecipeFile is the package description read when --recipe is not given.
const DefaultRecipeFile = "setup.yml"

// Recipe describes one distributable package: its metadata, the optional
// native build, and the files to install. Version is the single source of
// truth for every version-qualified value derived from it.
type Recipe struct {
	Name               string              `yaml:"name"`
	Version            string              `yaml:"version"`
	Description        string              `yaml:"description"`
	Readme             string              `yaml:"readme"`
	URL                string              `yaml:"url"`
	Maintainer         string              `yaml:"maintainer"`
	MaintainerEmail    string              `yaml:"maintainer_email"`
	License            string              `yaml:"license"`
	Classifiers        []string            `yaml:"classifiers"`
	Keywords           Keywords            `yaml:"keywords"`
	ZipSafe            bool                `yaml:"zip_safe"`
	BinaryDistribution bool                `yaml:"binary_distribution"`
	Packages           []string            `yaml:"packages"`
	PackageData        map[string][]string `yaml:"package_data"`
	// PackageDest is the install directory of Packages, a template.
	PackageDest        string              `yaml:"package_dest"`
	Build              BuildConfig         `yaml:"build"`
	DataFiles          []DataFile          `yaml:"data_files"`
}

// BuildConfig configures the optional native build of the nested source tree.
// SourceDir and Outputs are templates.
type BuildConfig struct {
	SourceDir    string            `yaml:"source_dir"`
	Tool         string            `yaml:"tool"`
	Args         []string          `yaml:"args"`
	Target       string            `yaml:"target"`
	Jobs         int               `yaml:"jobs"`
	Env          map[string]string `yaml:"env"`
	Outputs      []string          `yaml:"outputs"`
	VersionProbe *VersionProbe     `yaml:"version_probe"`
}

// VersionProbe runs Command in the source directory after a build and
// extracts the artifact version with the first capture group of Pattern.
type VersionProbe struct {
	Command string `yaml:"command"`
	Pattern string `yaml:"pattern"`
}

// DataFile is one (destination directory, source files) pair. Both sides
// are templates.
type DataFile struct {
	Dir   string   `yaml:"dir"`
	Files []string `yaml:"files"`
}

// Keywords accepts either a whitespace separated string or a list.
type Keywords []string

func (k *Keywords) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*k = strings.Fields(value.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*k = list
		return nil
	default:
		return fmt.Errorf("keywords must be a string or a list, line %d", value.Line)
	}
}

var releasePattern = regexp.MustCompile(`^\d+(\.\d+)*`)

// Release returns the numeric release segment of the version, e.g. 4.4.0
// for 4.4.0.dev1.
func (r *Recipe) Release() string {
	return releasePattern.FindString(r.Version)
}

// TemplateVars returns the variables available to path templates.
func (r *Recipe) TemplateVars() map[string]string {
	return map[string]string{
		"name":    r.Name,
		"version": r.Version,
		"release": r.Release(),
	}
}

// BuildEnabled reports whether the recipe declares a native build.
func (r *Recipe) BuildEnabled() bool {
	return r.Build.SourceDir != "" && r.Build.Target != ""
}

// LoadRecipe reads, validates and normalises a recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	log := logger.Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe %s: %w", path, err)
	}

	recipe, err := parseRecipe(data)
	if err != nil {
		return nil, fmt.Errorf("loading recipe %s: %w", path, err)
	}

	log.Debugf("loaded recipe %s: %s %s", path, recipe.Name, recipe.Version)
	return recipe, nil
}

func parseRecipe(data []byte) (*Recipe, error) {
	jsonData, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	if err := validate.ValidateRecipeJSON(jsonData); err != nil {
		return nil, fmt.Errorf("recipe validation failed: %w", err)
	}

	var recipe Recipe
	if err := yaml.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	recipe.normalize()

	if err := recipe.checkTemplates(); err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *Recipe) normalize() {
	if r.Build.Tool == "" {
		r.Build.Tool = "scons"
	}
	if r.Build.Args == nil {
		r.Build.Args = []string{"--build=release"}
	}
	r.Classifiers = slice.Unique(r.Classifiers)
	r.Keywords = Keywords(slice.Unique([]string(r.Keywords)))
}

// checkTemplates renders every templated field once so unknown variables and
// syntax errors surface at load time instead of halfway through packaging.
func (r *Recipe) checkTemplates() error {
	vars := r.TemplateVars()
	check := func(field, tmpl string) error {
		if _, err := RenderTemplate(tmpl, vars); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return nil
	}

	if err := check("package_dest", r.PackageDest); err != nil {
		return err
	}
	if err := check("build.source_dir", r.Build.SourceDir); err != nil {
		return err
	}
	for i, out := range r.Build.Outputs {
		if err := check(fmt.Sprintf("build.outputs[%d]", i), out); err != nil {
			return err
		}
	}
	for i, df := range r.DataFiles {
		if err := check(fmt.Sprintf("data_files[%d].dir", i), df.Dir); err != nil {
			return err
		}
		for j, f := range df.Files {
			if err := check(fmt.Sprintf("data_files[%d].files[%d]", i, j), f); err != nil {
				return err
			}
		}
	}
	return nil
}
