package metadata

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/manifest"
)

func testRecipe() *config.Recipe {
	return &config.Recipe{
		Name:               "gringo",
		Version:            "4.4.0.dev1",
		Description:        "Answer Set Programming for Python",
		Readme:             "README.rst",
		URL:                "http://potassco.sourceforge.net/gringo.html",
		Maintainer:         "Alexis Lee",
		MaintainerEmail:    "python-gringo@lxsli.co.uk",
		License:            "GPL v3+",
		Classifiers:        []string{"Programming Language :: Python :: 2.7", "Topic :: Scientific/Engineering :: Artificial Intelligence"},
		Keywords:           config.Keywords{"answer", "set", "programming", "asp", "gringo", "clingo"},
		Packages:           []string{"gringo"},
		PackageData:        map[string][]string{"gringo": {"*"}},
		BinaryDistribution: true,
		DataFiles: []config.DataFile{
			{Dir: "share/doc/clingo-{{version}}", Files: []string{"clingo-{{release}}-source/README"}},
		},
	}
}

func writeReadme(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "README.rst"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeReadme(t, root, "Gringo\n======\n\nGrounder for ASP.\n")

	md, err := Load(testRecipe(), root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if md.LongDescription != "Gringo\n======\n\nGrounder for ASP.\n" {
		t.Errorf("unexpected long description %q", md.LongDescription)
	}
	if md.FullName() != "gringo-4.4.0.dev1" {
		t.Errorf("unexpected full name %s", md.FullName())
	}
	if !md.BinaryDistribution {
		t.Error("binary_distribution not carried into metadata")
	}
	if md.DistInfoDir() != "gringo-4.4.0.dev1.egg-info" {
		t.Errorf("unexpected dist info dir %s", md.DistInfoDir())
	}
}

func TestLoadMissingReadme(t *testing.T) {
	md, err := Load(testRecipe(), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing README")
	}
	if md != nil {
		t.Error("expected no metadata when the long description is missing")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if !strings.Contains(err.Error(), "README.rst") {
		t.Errorf("expected error to name the file, got %v", err)
	}
}

func TestLoadCopiesRecipeSlices(t *testing.T) {
	root := t.TempDir()
	writeReadme(t, root, "x")
	recipe := testRecipe()

	md, err := Load(recipe, root)
	if err != nil {
		t.Fatal(err)
	}
	recipe.Classifiers[0] = "changed"
	recipe.PackageData["gringo"][0] = "changed"
	if md.Classifiers[0] == "changed" || md.PackageData["gringo"][0] == "changed" {
		t.Error("metadata should not share slices with the recipe")
	}
}

func TestOptions(t *testing.T) {
	root := t.TempDir()
	writeReadme(t, root, "long")
	recipe := testRecipe()

	md, err := Load(recipe, root)
	if err != nil {
		t.Fatal(err)
	}
	mf, err := manifest.Assemble(recipe)
	if err != nil {
		t.Fatal(err)
	}

	opts := md.Options(mf)
	if opts["keywords"] != "answer set programming asp gringo clingo" {
		t.Errorf("unexpected keywords %v", opts["keywords"])
	}
	if opts["distclass"] != "BinaryDistribution" {
		t.Errorf("expected BinaryDistribution distclass, got %v", opts["distclass"])
	}
	if opts["long_description"] != "long" {
		t.Errorf("unexpected long_description %v", opts["long_description"])
	}

	want := []manifest.DataFilesPair{
		{Dir: "share/doc/clingo-4.4.0.dev1", Files: []string{"clingo-4.4.0-source/README"}},
	}
	if diff := cmp.Diff(want, opts["data_files"]); diff != "" {
		t.Errorf("data_files mismatch (-want +got):\n%s", diff)
	}

	md.BinaryDistribution = false
	if _, ok := md.Options(nil)["distclass"]; ok {
		t.Error("pure distribution should not set distclass")
	}
}

// The version in metadata and the version embedded in every manifest path
// come from the same recipe field.
func TestVersionConsistency(t *testing.T) {
	root := t.TempDir()
	writeReadme(t, root, "long")

	for _, version := range []string{"4.4.0.dev1", "4.5.0", "5.0.0rc2"} {
		recipe := testRecipe()
		recipe.Version = version

		md, err := Load(recipe, root)
		if err != nil {
			t.Fatal(err)
		}
		mf, err := manifest.Assemble(recipe)
		if err != nil {
			t.Fatal(err)
		}
		if md.Version != version {
			t.Errorf("metadata version %s, want %s", md.Version, version)
		}
		if got := mf.DataFiles()[0].Dir; got != "share/doc/clingo-"+md.Version {
			t.Errorf("manifest dir %s does not carry metadata version %s", got, md.Version)
		}
		if got := mf.DataFiles()[0].Files[0]; !strings.HasPrefix(got, "clingo-"+recipe.Release()+"-source/") {
			t.Errorf("manifest source %s does not carry release %s", got, recipe.Release())
		}
	}
}

func TestWritePKGInfo(t *testing.T) {
	md := &Metadata{
		Name:            "gringo",
		Version:         "4.4.0.dev1",
		Description:     "Answer Set Programming for Python",
		LongDescription: "line one\nline two\n",
		License:         "GPL v3+",
		Classifiers:     []string{"A :: B", "C :: D"},
		Keywords:        []string{"asp", "gringo"},
	}

	var buf bytes.Buffer
	if err := md.WritePKGInfo(&buf); err != nil {
		t.Fatalf("WritePKGInfo failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Metadata-Version: 1.1\n",
		"Name: gringo\n",
		"Version: 4.4.0.dev1\n",
		"Summary: Answer Set Programming for Python\n",
		"Home-page: UNKNOWN\n",
		"License: GPL v3+\n",
		"Description: line one\n        line two\n",
		"Keywords: asp gringo\n",
		"Classifier: A :: B\nClassifier: C :: D\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("PKG-INFO missing %q:\n%s", want, out)
		}
	}
}
