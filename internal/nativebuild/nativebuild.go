// Package nativebuild runs the native build of the nested source tree when
// packaging is invoked with --compile. The build is synchronous, its exit
// status is always checked and it is never retried.
package nativebuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/potassco/gringo-dist/internal/utils/shell"
)

// Spec is a fully rendered build invocation.
type Spec struct {
	// SourceDir is the working directory of the build tool.
	SourceDir string
	Tool      string
	Args      []string
	Target    string
	// Jobs adds -j<Jobs> when greater than zero.
	Jobs int
	Env  map[string]string
}

// Result describes a finished build.
type Result struct {
	Command  string
	Dir      string
	Output   string
	Duration time.Duration
}

// BuildError is returned when the build tool ran and failed. Stderr is the
// tool's own error output, unmodified.
type BuildError struct {
	Command  string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("native build failed: %s in %s exited with status %d", e.Command, e.Dir, e.ExitCode)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

// SpecFromRecipe renders the recipe's build section. The source directory is
// resolved against root.
func SpecFromRecipe(recipe *config.Recipe, root string) (Spec, error) {
	if !recipe.BuildEnabled() {
		return Spec{}, fmt.Errorf("recipe %s declares no native build (build.source_dir and build.target are required)", recipe.Name)
	}

	sourceDir, err := config.RenderTemplate(recipe.Build.SourceDir, recipe.TemplateVars())
	if err != nil {
		return Spec{}, fmt.Errorf("build.source_dir: %w", err)
	}
	sourceDir = filepath.FromSlash(sourceDir)
	if !filepath.IsAbs(sourceDir) {
		sourceDir = filepath.Join(root, sourceDir)
	}

	return Spec{
		SourceDir: sourceDir,
		Tool:      recipe.Build.Tool,
		Args:      append([]string(nil), recipe.Build.Args...),
		Target:    recipe.Build.Target,
		Jobs:      recipe.Build.Jobs,
		Env:       recipe.Build.Env,
	}, nil
}

// Command returns the build command line.
func (s Spec) Command() string {
	argv := append([]string{s.Tool}, s.Args...)
	if s.Jobs > 0 {
		argv = append(argv, "-j"+strconv.Itoa(s.Jobs))
	}
	argv = append(argv, s.Target)
	return shell.JoinCmd(argv...)
}

// CleanCommand returns the command line removing the target's build outputs.
func (s Spec) CleanCommand() string {
	argv := append([]string{s.Tool}, s.Args...)
	argv = append(argv, "-c", s.Target)
	return shell.JoinCmd(argv...)
}

func (s Spec) environ() []string {
	env := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Builder drives the build tool through shell.Default.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// RequiredTools lists the tools the build needs.
func (b *Builder) RequiredTools(spec Spec) []ToolRequirement {
	return []ToolRequirement{{Name: spec.Tool, Purpose: "native build of " + spec.Target}}
}

// CheckTools fails when a required tool is not on PATH.
func (b *Builder) CheckTools(spec Spec) error {
	return CheckRequiredTools(b.RequiredTools(spec))
}

func checkSourceDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("native build source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("native build source directory %s is not a directory", dir)
	}
	return nil
}

// Build runs the build once and blocks until the tool exits. A non-zero exit
// status is returned as a *BuildError.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Result, error) {
	log := logger.Logger()

	if err := b.CheckTools(spec); err != nil {
		return nil, err
	}
	if err := checkSourceDir(spec.SourceDir); err != nil {
		return nil, err
	}

	cmdStr := spec.Command()
	log.Infof("building %s in %s", spec.Target, spec.SourceDir)

	start := time.Now()
	output, err := shell.ExecCmdWithStream(ctx, cmdStr, spec.SourceDir, spec.environ())
	if err != nil {
		return nil, toBuildError(cmdStr, spec.SourceDir, err)
	}

	result := &Result{
		Command:  cmdStr,
		Dir:      spec.SourceDir,
		Output:   output,
		Duration: time.Since(start),
	}
	log.Infof("native build of %s finished in %s", spec.Target, result.Duration.Round(time.Millisecond))
	return result, nil
}

// Clean runs the tool's clean mode for the target.
func (b *Builder) Clean(ctx context.Context, spec Spec) error {
	log := logger.Logger()

	if err := b.CheckTools(spec); err != nil {
		return err
	}
	if err := checkSourceDir(spec.SourceDir); err != nil {
		return err
	}

	cmdStr := spec.CleanCommand()
	if _, err := shell.ExecCmdWithStream(ctx, cmdStr, spec.SourceDir, spec.environ()); err != nil {
		return toBuildError(cmdStr, spec.SourceDir, err)
	}
	log.Infof("cleaned %s in %s", spec.Target, spec.SourceDir)
	return nil
}

func toBuildError(cmdStr, dir string, err error) error {
	var cmdErr *shell.CmdError
	if errors.As(err, &cmdErr) {
		return &BuildError{
			Command:  cmdStr,
			Dir:      dir,
			ExitCode: cmdErr.ExitCode,
			Stderr:   cmdErr.Stderr,
			Err:      err,
		}
	}
	return &BuildError{Command: cmdStr, Dir: dir, ExitCode: -1, Err: err}
}
