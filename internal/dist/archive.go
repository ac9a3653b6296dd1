package dist

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/potassco/gringo-dist/internal/utils/system"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

var archiveExtensions = map[string]string{
	config.ArchiveGzTar:   ".tar.gz",
	config.ArchiveXzTar:   ".tar.xz",
	config.ArchiveZstdTar: ".tar.zst",
}

// ArchiveOptions controls archive creation.
type ArchiveOptions struct {
	// Format is one of gztar, xztar or zstdtar.
	Format string
	// Platform is the <os>-<arch> tag of non-pure binary archives.
	Platform string
	// Progress receives the progress bar; nil disables it.
	Progress io.Writer
	// Host is recorded in the binary archive record when set.
	Host *system.HostInfo
}

// Artifact is a finished archive and its record.
type Artifact struct {
	Path       string
	RecordPath string
	Record     *Record
}

type member struct {
	name    string
	path    string
	data    []byte
	mode    int64
	modTime time.Time
}

// ArchiveExtension returns the file extension of format.
func ArchiveExtension(format string) (string, error) {
	ext, ok := archiveExtensions[format]
	if !ok {
		return "", fmt.Errorf("unsupported archive format %q", format)
	}
	return ext, nil
}

// SourceArchiveName is <name>-<version><ext>.
func (d *Distribution) SourceArchiveName(format string) (string, error) {
	ext, err := ArchiveExtension(format)
	if err != nil {
		return "", err
	}
	return d.Metadata.FullName() + ext, nil
}

// BinaryArchiveName is <name>-<version>.<platform><ext>; pure
// distributions carry no platform tag.
func (d *Distribution) BinaryArchiveName(format, platform string) (string, error) {
	ext, err := ArchiveExtension(format)
	if err != nil {
		return "", err
	}
	if d.IsPure() {
		return d.Metadata.FullName() + ext, nil
	}
	if platform == "" {
		return "", fmt.Errorf("binary distribution %s needs a platform tag", d.Metadata.FullName())
	}
	return d.Metadata.FullName() + "." + platform + ext, nil
}

// SourceArchive writes a source archive into distDir. Every member sits
// under a <name>-<version>/ directory: PKG-INFO, the long description, the
// extra root-relative files, the package files and every manifest source.
func (d *Distribution) SourceArchive(ctx context.Context, distDir, readme string, extra []string, opts ArchiveOptions) (*Artifact, error) {
	name, err := d.SourceArchiveName(opts.Format)
	if err != nil {
		return nil, err
	}
	base := d.Metadata.FullName()

	var pkgInfo bytes.Buffer
	if err := d.Metadata.WritePKGInfo(&pkgInfo); err != nil {
		return nil, fmt.Errorf("rendering PKG-INFO: %w", err)
	}
	members := []member{{
		name:    path.Join(base, "PKG-INFO"),
		data:    pkgInfo.Bytes(),
		mode:    0644,
		modTime: time.Now(),
	}}

	pkgFiles, err := d.PackageFiles()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	sources := append([]string{readme}, extra...)
	sources = append(sources, pkgFiles...)
	sources = append(sources, d.Manifest.Sources()...)
	for _, rel := range sources {
		rel = filepath.Clean(rel)
		if seen[rel] {
			continue
		}
		seen[rel] = true
		m, err := fileMember(filepath.Join(d.Root, rel), path.Join(base, filepath.ToSlash(rel)))
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	record := d.newRecord("sdist", opts)
	return writeArtifact(ctx, filepath.Join(distDir, name), members, record, opts)
}

// BinaryArchive writes every regular file of the staged tree into distDir,
// named relative to stageDir.
func (d *Distribution) BinaryArchive(ctx context.Context, stageDir, distDir string, opts ArchiveOptions) (*Artifact, error) {
	name, err := d.BinaryArchiveName(opts.Format, opts.Platform)
	if err != nil {
		return nil, err
	}

	var members []member
	err = filepath.WalkDir(stageDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(stageDir, p)
		if err != nil {
			return err
		}
		m, err := fileMember(p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		members = append(members, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting staged files from %s: %w", stageDir, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("stage directory %s is empty", stageDir)
	}

	record := d.newRecord("bdist", opts)
	if !d.IsPure() {
		record.Platform = opts.Platform
	}
	record.Host = opts.Host
	return writeArtifact(ctx, filepath.Join(distDir, name), members, record, opts)
}

func fileMember(src, name string) (member, error) {
	info, err := os.Stat(src)
	if err != nil {
		return member{}, fmt.Errorf("archive member %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return member{}, fmt.Errorf("archive member %s: %s is not a regular file", name, src)
	}
	return member{
		name:    name,
		path:    src,
		mode:    int64(info.Mode().Perm()),
		modTime: info.ModTime(),
	}, nil
}

func writeArtifact(ctx context.Context, archivePath string, members []member, record *Record, opts ArchiveOptions) (*Artifact, error) {
	log := logger.Logger()

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return nil, fmt.Errorf("creating dist directory: %w", err)
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].name < members[j].name })

	files, err := writeTarArchive(ctx, archivePath, opts.Format, members, opts.Progress)
	if err != nil {
		os.Remove(archivePath)
		return nil, err
	}
	record.Archive = filepath.Base(archivePath)
	record.Files = files

	recordPath := archivePath + ".RECORD.json"
	if err := record.WriteFile(recordPath); err != nil {
		return nil, err
	}

	log.Infof("wrote %s (%d files)", archivePath, len(files))
	return &Artifact{Path: archivePath, RecordPath: recordPath, Record: record}, nil
}

func compressor(format string, w io.Writer) (io.WriteCloser, error) {
	switch format {
	case config.ArchiveGzTar:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case config.ArchiveXzTar:
		return xz.NewWriter(w)
	case config.ArchiveZstdTar:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported archive format %q", format)
	}
}

func newProgressBar(total int, out io.Writer, description string) *progressbar.ProgressBar {
	if out == nil {
		out = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

func writeTarArchive(ctx context.Context, archivePath, format string, members []member, progress io.Writer) ([]RecordFile, error) {
	out, err := os.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("creating archive %s: %w", archivePath, err)
	}
	defer out.Close()

	cw, err := compressor(format, out)
	if err != nil {
		return nil, err
	}
	defer cw.Close()
	tw := tar.NewWriter(cw)

	bar := newProgressBar(len(members), progress, "archiving "+filepath.Base(archivePath))
	files := make([]RecordFile, 0, len(members))
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar.Describe("archiving " + m.name)

		rf, err := writeMember(tw, m)
		if err != nil {
			return nil, fmt.Errorf("adding %s to %s: %w", m.name, archivePath, err)
		}
		files = append(files, rf)
		bar.Add(1)
	}
	bar.Finish()

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finishing tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return nil, fmt.Errorf("finishing %s compression: %w", format, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("closing archive %s: %w", archivePath, err)
	}
	return files, nil
}

func writeMember(tw *tar.Writer, m member) (RecordFile, error) {
	var r io.Reader
	size := int64(len(m.data))
	if m.path != "" {
		f, err := os.Open(m.path)
		if err != nil {
			return RecordFile{}, err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return RecordFile{}, err
		}
		r, size = f, info.Size()
	} else {
		r = bytes.NewReader(m.data)
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     m.name,
		Mode:     m.mode,
		Size:     size,
		ModTime:  m.modTime.UTC().Truncate(time.Second),
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return RecordFile{}, err
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tw, h), r)
	if err != nil {
		return RecordFile{}, err
	}
	if n != size {
		return RecordFile{}, fmt.Errorf("size changed while archiving: %d != %d", n, size)
	}
	return RecordFile{Path: m.name, SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}
