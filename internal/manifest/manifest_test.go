package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/potassco/gringo-dist/internal/config"
)

var docFiles = []string{"CHANGES", "COPYING", "INSTALL", "NOTES", "README"}

func gringoRecipe() *config.Recipe {
	files := make([]string, 0, len(docFiles))
	for _, d := range docFiles {
		files = append(files, "clingo-{{release}}-source/"+d)
	}
	return &config.Recipe{
		Name:    "gringo",
		Version: "4.4.0.dev1",
		Readme:  "README.rst",
		Build: config.BuildConfig{
			SourceDir: "clingo-{{release}}-source",
			Tool:      "scons",
			Args:      []string{"--build=release"},
			Target:    "pyclingo",
			Outputs:   []string{"build/release/python/gringo.so"},
		},
		DataFiles: []config.DataFile{
			{Dir: "lib/python2.7/site-packages", Files: []string{"clingo-{{release}}-source/build/release/python/gringo.so"}},
			{Dir: "share/doc/clingo-{{version}}", Files: files},
		},
	}
}

// writeTree creates the given files (relative to root) with small contents.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(f), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAssemble(t *testing.T) {
	mf, err := Assemble(gringoRecipe())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	want := []DataFilesPair{
		{Dir: "lib/python2.7/site-packages", Files: []string{"clingo-4.4.0-source/build/release/python/gringo.so"}},
		{Dir: "share/doc/clingo-4.4.0.dev1", Files: []string{
			"clingo-4.4.0-source/CHANGES",
			"clingo-4.4.0-source/COPYING",
			"clingo-4.4.0-source/INSTALL",
			"clingo-4.4.0-source/NOTES",
			"clingo-4.4.0-source/README",
		}},
	}
	if diff := cmp.Diff(want, mf.DataFiles()); diff != "" {
		t.Errorf("data files mismatch (-want +got):\n%s", diff)
	}

	if !mf[0].Files[0].BuildOutput {
		t.Error("gringo.so should be marked as a build output")
	}
	if mf[1].Files[0].BuildOutput {
		t.Error("CHANGES should not be marked as a build output")
	}
	if !mf.HasBuildOutputs() {
		t.Error("expected HasBuildOutputs")
	}

	targets := mf.Targets()
	if len(targets) != 6 {
		t.Fatalf("expected 6 targets, got %d", len(targets))
	}
	if targets[0].Dest != filepath.Join("lib", "python2.7", "site-packages", "gringo.so") {
		t.Errorf("unexpected destination %s", targets[0].Dest)
	}
}

func TestAssembleVersionMatchesDestinations(t *testing.T) {
	recipe := gringoRecipe()
	mf, err := Assemble(recipe)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !strings.HasSuffix(mf[1].Dir, "clingo-"+recipe.Version) {
		t.Errorf("destination %s does not carry version %s", mf[1].Dir, recipe.Version)
	}
}

func TestAssembleRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *config.Recipe)
		wantErr string
	}{
		{
			name:    "absolute destination",
			mutate:  func(r *config.Recipe) { r.DataFiles[0].Dir = "/usr/lib" },
			wantErr: "must be relative",
		},
		{
			name:    "escaping destination",
			mutate:  func(r *config.Recipe) { r.DataFiles[0].Dir = "../outside" },
			wantErr: "escapes",
		},
		{
			name: "colliding destinations",
			mutate: func(r *config.Recipe) {
				r.DataFiles[1].Files = append(r.DataFiles[1].Files, "other/README")
			},
			wantErr: "both install to",
		},
		{
			name:    "unknown variable",
			mutate:  func(r *config.Recipe) { r.DataFiles[0].Dir = "lib/{{python}}" },
			wantErr: "unknown template variable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gringoRecipe()
			tt.mutate(r)
			_, err := Assemble(r)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestVerifyPrebuiltTree(t *testing.T) {
	root := t.TempDir()
	mf, err := Assemble(gringoRecipe())
	if err != nil {
		t.Fatal(err)
	}
	writeTree(t, root, mf.Sources()...)

	if err := mf.Verify(root, false); err != nil {
		t.Errorf("expected pre-built tree to verify, got: %v", err)
	}
}

func TestVerifyMissingBuildOutput(t *testing.T) {
	root := t.TempDir()
	mf, err := Assemble(gringoRecipe())
	if err != nil {
		t.Fatal(err)
	}
	// docs only, no compiled module
	writeTree(t, root, mf.Sources()[1:]...)

	err = mf.Verify(root, false)
	if err == nil {
		t.Fatal("expected verification error")
	}
	if !errors.Is(err, ErrBuildRequired) {
		t.Errorf("expected ErrBuildRequired, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if !strings.Contains(err.Error(), "--compile") {
		t.Errorf("expected actionable hint, got: %v", err)
	}

	var missing *MissingFilesError
	if !errors.As(err, &missing) || len(missing.Missing) != 1 {
		t.Fatalf("expected one missing file, got %v", err)
	}

	err = mf.Verify(root, true)
	if errors.Is(err, ErrBuildRequired) {
		t.Error("a build that ran should not ask for --compile")
	}
	if err == nil || !strings.Contains(err.Error(), "did not produce") {
		t.Errorf("expected build-did-not-produce message, got %v", err)
	}
}

func TestVerifyMissingDocs(t *testing.T) {
	root := t.TempDir()
	mf, err := Assemble(gringoRecipe())
	if err != nil {
		t.Fatal(err)
	}
	sources := mf.Sources()
	writeTree(t, root, sources[:len(sources)-2]...)

	err = mf.Verify(root, false)
	var missing *MissingFilesError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingFilesError, got %v", err)
	}
	if len(missing.Missing) != 2 {
		t.Errorf("expected all missing files to be reported, got %d", len(missing.Missing))
	}
	if errors.Is(err, ErrBuildRequired) {
		t.Error("missing docs do not require a build")
	}
}

func TestVerifyRejectsDirectory(t *testing.T) {
	root := t.TempDir()
	mf, err := Assemble(gringoRecipe())
	if err != nil {
		t.Fatal(err)
	}
	sources := mf.Sources()
	writeTree(t, root, sources[1:]...)
	if err := os.MkdirAll(filepath.Join(root, sources[0]), 0755); err != nil {
		t.Fatal(err)
	}

	if err := mf.Verify(root, true); err == nil || !strings.Contains(err.Error(), "not a regular file") {
		t.Errorf("expected regular file error, got %v", err)
	}
}
