// Package manifest assembles the install manifest, the ordered list of
// (destination directory, source files) pairs a distribution installs, and
// verifies it against the filesystem before anything is copied.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/utils/logger"
)

// ErrBuildRequired is wrapped by verification errors whose missing files are
// native build outputs that were not built in this run.
var ErrBuildRequired = errors.New("native build required")

// File is one manifest source, relative to the package root.
type File struct {
	Source string
	// BuildOutput marks files produced by the native build.
	BuildOutput bool
}

// Entry installs Files into Dir, relative to the install prefix.
type Entry struct {
	Dir   string
	Files []File
}

// Manifest keeps entries in recipe order.
type Manifest []Entry

// Target maps one source file to its destination path.
type Target struct {
	Source string
	Dest   string
}

// DataFilesPair is the (directory, files) form exposed in metadata options.
type DataFilesPair struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Assemble renders the recipe's data_files templates with its version
// variables. Destinations must be relative, must stay inside the prefix and
// must not collide.
func Assemble(recipe *config.Recipe) (Manifest, error) {
	vars := recipe.TemplateVars()

	outputs, err := buildOutputs(recipe, vars)
	if err != nil {
		return nil, err
	}

	var mf Manifest
	seen := make(map[string]string)
	for i, df := range recipe.DataFiles {
		dir, err := config.RenderTemplate(df.Dir, vars)
		if err != nil {
			return nil, fmt.Errorf("data_files[%d].dir: %w", i, err)
		}
		dir = filepath.Clean(filepath.FromSlash(dir))
		if err := checkRelative(dir); err != nil {
			return nil, fmt.Errorf("data_files[%d].dir: %w", i, err)
		}

		entry := Entry{Dir: dir}
		for j, f := range df.Files {
			src, err := config.RenderTemplate(f, vars)
			if err != nil {
				return nil, fmt.Errorf("data_files[%d].files[%d]: %w", i, j, err)
			}
			src = filepath.Clean(filepath.FromSlash(src))

			dest := filepath.Join(dir, filepath.Base(src))
			if prev, ok := seen[dest]; ok {
				return nil, fmt.Errorf("data_files[%d].files[%d]: %s and %s both install to %s", i, j, prev, src, dest)
			}
			seen[dest] = src

			_, isOutput := outputs[src]
			entry.Files = append(entry.Files, File{Source: src, BuildOutput: isOutput})
		}
		mf = append(mf, entry)
	}
	return mf, nil
}

// buildOutputs returns the rendered build output paths, relative to the
// package root.
func buildOutputs(recipe *config.Recipe, vars map[string]string) (map[string]struct{}, error) {
	outputs := make(map[string]struct{})
	if len(recipe.Build.Outputs) == 0 {
		return outputs, nil
	}
	sourceDir, err := config.RenderTemplate(recipe.Build.SourceDir, vars)
	if err != nil {
		return nil, fmt.Errorf("build.source_dir: %w", err)
	}
	for i, out := range recipe.Build.Outputs {
		rendered, err := config.RenderTemplate(out, vars)
		if err != nil {
			return nil, fmt.Errorf("build.outputs[%d]: %w", i, err)
		}
		outputs[filepath.Join(filepath.FromSlash(sourceDir), filepath.FromSlash(rendered))] = struct{}{}
	}
	return outputs, nil
}

func checkRelative(dir string) error {
	if filepath.IsAbs(dir) {
		return fmt.Errorf("destination %s must be relative to the install prefix", dir)
	}
	if dir == ".." || strings.HasPrefix(dir, ".."+string(filepath.Separator)) {
		return fmt.Errorf("destination %s escapes the install prefix", dir)
	}
	return nil
}

// Targets flattens the manifest into source/destination pairs, in order.
func (m Manifest) Targets() []Target {
	var targets []Target
	for _, e := range m {
		for _, f := range e.Files {
			targets = append(targets, Target{
				Source: f.Source,
				Dest:   filepath.Join(e.Dir, filepath.Base(f.Source)),
			})
		}
	}
	return targets
}

// Sources returns every source path, in order.
func (m Manifest) Sources() []string {
	var sources []string
	for _, e := range m {
		for _, f := range e.Files {
			sources = append(sources, f.Source)
		}
	}
	return sources
}

// DataFiles returns the manifest in (directory, files) form with slash
// separated paths.
func (m Manifest) DataFiles() []DataFilesPair {
	pairs := make([]DataFilesPair, 0, len(m))
	for _, e := range m {
		p := DataFilesPair{Dir: filepath.ToSlash(e.Dir)}
		for _, f := range e.Files {
			p.Files = append(p.Files, filepath.ToSlash(f.Source))
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// HasBuildOutputs reports whether any file is a native build output.
func (m Manifest) HasBuildOutputs() bool {
	for _, e := range m {
		for _, f := range e.Files {
			if f.BuildOutput {
				return true
			}
		}
	}
	return false
}

// MissingFilesError lists every manifest file absent at verification time.
type MissingFilesError struct {
	Missing []File
	// Compiled is true when the native build ran in this invocation.
	Compiled bool
}

func (e *MissingFilesError) needsBuild() bool {
	for _, f := range e.Missing {
		if f.BuildOutput {
			return true
		}
	}
	return false
}

func (e *MissingFilesError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "install manifest references %d missing file(s):", len(e.Missing))
	for _, f := range e.Missing {
		b.WriteString("\n  - " + filepath.ToSlash(f.Source))
		if f.BuildOutput {
			b.WriteString(" (native build output)")
		}
	}
	if e.needsBuild() {
		if e.Compiled {
			b.WriteString("\nthe native build finished but did not produce the files above")
		} else {
			b.WriteString("\nthe native build has not been run: rerun with --compile to build them first")
		}
	}
	return b.String()
}

// Unwrap exposes fs.ErrNotExist, plus ErrBuildRequired when the missing
// files are build outputs that were not built in this run.
func (e *MissingFilesError) Unwrap() []error {
	errs := []error{fs.ErrNotExist}
	if e.needsBuild() && !e.Compiled {
		errs = append(errs, ErrBuildRequired)
	}
	return errs
}

// Verify checks that every source exists under root as a regular file. All
// missing files are reported together in a *MissingFilesError; compiled says
// whether the native build ran before the check.
func (m Manifest) Verify(root string, compiled bool) error {
	log := logger.Logger()

	var missing []File
	for _, e := range m {
		for _, f := range e.Files {
			path := filepath.Join(root, f.Source)
			info, err := os.Stat(path)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				missing = append(missing, f)
			case err != nil:
				return fmt.Errorf("checking %s: %w", path, err)
			case !info.Mode().IsRegular():
				return fmt.Errorf("manifest source %s is not a regular file", path)
			default:
				log.Debugf("manifest source ok: %s", f.Source)
			}
		}
	}

	if len(missing) > 0 {
		return &MissingFilesError{Missing: missing, Compiled: compiled}
	}
	return nil
}
