package dist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/minio/minio-go/v7"
	"github.com/potassco/gringo-dist/internal/config"
)

type putCall struct {
	Bucket   string
	Object   string
	File     string
	Type     string
	Metadata map[string]string
}

type fakeStore struct {
	exists    bool
	existsErr error
	putErr    error
	puts      []putCall
}

func (s *fakeStore) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *fakeStore) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if s.putErr != nil {
		return minio.UploadInfo{}, s.putErr
	}
	s.puts = append(s.puts, putCall{
		Bucket:   bucketName,
		Object:   objectName,
		File:     filePath,
		Type:     opts.ContentType,
		Metadata: opts.UserMetadata,
	})
	return minio.UploadInfo{Bucket: bucketName, Key: objectName}, nil
}

func writeUploadFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	archive := filepath.Join(dir, "gringo-4.4.0.dev1.linux-x86_64.tar.gz")
	if err := os.WriteFile(archive, []byte("archive"), 0644); err != nil {
		t.Fatal(err)
	}
	rec := &Record{BuildID: "0b6f2a4e-1111-4c6e-9d7a-123456789abc", Name: "gringo"}
	if err := rec.WriteFile(archive + ".RECORD.json"); err != nil {
		t.Fatal(err)
	}
	sig := archive + ".asc"
	if err := os.WriteFile(sig, []byte("-----BEGIN PGP SIGNATURE-----"), 0644); err != nil {
		t.Fatal(err)
	}
	return archive, sig
}

func TestUpload(t *testing.T) {
	archive, sig := writeUploadFiles(t)
	store := &fakeStore{exists: true}
	u := NewUploader(store, config.UploadConfig{Bucket: "releases", Prefix: "/gringo/4.4/"})

	names, err := u.Upload(context.Background(), []string{archive, sig})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	wantNames := []string{
		"gringo/4.4/gringo-4.4.0.dev1.linux-x86_64.tar.gz",
		"gringo/4.4/gringo-4.4.0.dev1.linux-x86_64.tar.gz.asc",
	}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("object names mismatch (-want +got):\n%s", diff)
	}

	want := []putCall{
		{
			Bucket:   "releases",
			Object:   wantNames[0],
			File:     archive,
			Type:     "application/gzip",
			Metadata: map[string]string{"build-id": "0b6f2a4e-1111-4c6e-9d7a-123456789abc"},
		},
		{
			Bucket: "releases",
			Object: wantNames[1],
			File:   sig,
			Type:   "application/pgp-signature",
		},
	}
	if diff := cmp.Diff(want, store.puts); diff != "" {
		t.Errorf("uploads mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadErrors(t *testing.T) {
	archive, _ := writeUploadFiles(t)

	tests := []struct {
		name  string
		store *fakeStore
		cfg   config.UploadConfig
		files []string
	}{
		{name: "no bucket", store: &fakeStore{exists: true}, files: []string{archive}},
		{name: "no files", store: &fakeStore{exists: true}, cfg: config.UploadConfig{Bucket: "releases"}},
		{name: "missing bucket", store: &fakeStore{}, cfg: config.UploadConfig{Bucket: "releases"}, files: []string{archive}},
		{name: "bucket check fails", store: &fakeStore{existsErr: errors.New("denied")}, cfg: config.UploadConfig{Bucket: "releases"}, files: []string{archive}},
		{name: "put fails", store: &fakeStore{exists: true, putErr: errors.New("timeout")}, cfg: config.UploadConfig{Bucket: "releases"}, files: []string{archive}},
		{
			name:  "missing file",
			store: &fakeStore{exists: true},
			cfg:   config.UploadConfig{Bucket: "releases"},
			files: []string{archive, filepath.Join(t.TempDir(), "missing.tar.gz")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUploader(tt.store, tt.cfg)
			if _, err := u.Upload(context.Background(), tt.files); err == nil {
				t.Error("expected error")
			}
			if tt.name == "missing file" && len(tt.store.puts) != 0 {
				t.Error("nothing should be uploaded when a file is missing")
			}
		})
	}
}

func TestNewS3ClientRequiresCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	if _, err := NewS3Client(config.UploadConfig{}); err == nil {
		t.Error("expected error without endpoint")
	}
	if _, err := NewS3Client(config.UploadConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error without credentials")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "minio")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "minio123")
	client, err := NewS3Client(config.UploadConfig{Endpoint: "localhost:9000"})
	if err != nil {
		t.Fatalf("NewS3Client failed: %v", err)
	}
	if client.EndpointURL().Host != "localhost:9000" {
		t.Errorf("unexpected endpoint %s", client.EndpointURL())
	}
}
