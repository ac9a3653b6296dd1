package dist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/otiai10/copy"
	"github.com/potassco/gringo-dist/internal/utils/logger"
)

var copyOptions = copy.Options{
	PreserveTimes: true,
	OnSymlink: func(string) copy.SymlinkAction {
		return copy.Deep
	},
}

// Stage lays the distribution out under stageDir exactly as it will be
// installed: every manifest file at <dir>/<basename>, the packages and the
// egg-info directory under PackageDest. It returns the staged files relative
// to stageDir, in staging order.
func (d *Distribution) Stage(ctx context.Context, stageDir string) ([]string, error) {
	log := logger.Logger()

	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating stage directory %s: %w", stageDir, err)
	}

	var staged []string
	for _, t := range d.Manifest.Targets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := filepath.Join(d.Root, t.Source)
		dest := filepath.Join(stageDir, t.Dest)
		if err := copy.Copy(src, dest, copyOptions); err != nil {
			return nil, fmt.Errorf("staging %s: %w", t.Source, err)
		}
		log.Debugf("staged %s -> %s", t.Source, t.Dest)
		staged = append(staged, t.Dest)
	}

	pkgFiles, err := d.stagePackages(stageDir)
	if err != nil {
		return nil, err
	}
	staged = append(staged, pkgFiles...)

	info, err := d.writeEggInfo(stageDir)
	if err != nil {
		return nil, err
	}
	staged = append(staged, info)

	log.Infof("staged %d files for %s into %s", len(staged), d.Metadata.FullName(), stageDir)
	return staged, nil
}

// PackageFiles returns the package files that exist under Root, relative to
// Root. A package directory that does not exist is skipped with a warning.
func (d *Distribution) PackageFiles() ([]string, error) {
	log := logger.Logger()

	var files []string
	for _, pkg := range d.Metadata.Packages {
		pkgDir := filepath.Join(d.Root, filepath.FromSlash(pkg))
		info, err := os.Stat(pkgDir)
		if os.IsNotExist(err) {
			log.Warnf("package directory %s does not exist, skipping package %s", pkgDir, pkg)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("checking package %s: %w", pkg, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("package %s: %s is not a directory", pkg, pkgDir)
		}

		patterns := append([]string{"*.py"}, d.Metadata.PackageData[pkg]...)
		seen := make(map[string]struct{})
		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(pkgDir, pattern))
			if err != nil {
				return nil, fmt.Errorf("package_data pattern %q of %s: %w", pattern, pkg, err)
			}
			for _, m := range matches {
				if fi, err := os.Stat(m); err != nil || !fi.Mode().IsRegular() {
					continue
				}
				rel, err := filepath.Rel(d.Root, m)
				if err != nil {
					return nil, err
				}
				if _, ok := seen[rel]; !ok {
					seen[rel] = struct{}{}
					files = append(files, rel)
				}
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (d *Distribution) stagePackages(stageDir string) ([]string, error) {
	files, err := d.PackageFiles()
	if err != nil {
		return nil, err
	}

	staged := make([]string, 0, len(files))
	for _, f := range files {
		dest := filepath.Join(d.PackageDest, f)
		if err := copy.Copy(filepath.Join(d.Root, f), filepath.Join(stageDir, dest), copyOptions); err != nil {
			return nil, fmt.Errorf("staging package file %s: %w", f, err)
		}
		staged = append(staged, dest)
	}
	return staged, nil
}

func (d *Distribution) writeEggInfo(stageDir string) (string, error) {
	rel := filepath.Join(d.PackageDest, d.Metadata.DistInfoDir(), "PKG-INFO")
	path := filepath.Join(stageDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating egg-info directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating PKG-INFO: %w", err)
	}
	defer f.Close()

	if err := d.Metadata.WritePKGInfo(f); err != nil {
		return "", fmt.Errorf("writing PKG-INFO: %w", err)
	}
	return rel, f.Close()
}
