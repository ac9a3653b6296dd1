package dist

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/potassco/gringo-dist/internal/utils/network"
)

// ObjectStore is the subset of the S3 client used for uploads.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewS3Client connects to the configured S3 compatible endpoint with the
// credentials in AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.
func NewS3Client(cfg config.UploadConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("upload.endpoint is not configured")
	}

	accessKeyID := os.Getenv("AWS_ACCESS_KEY_ID")
	if accessKeyID == "" {
		return nil, fmt.Errorf("AWS_ACCESS_KEY_ID not set")
	}
	secretAccessKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if secretAccessKey == "" {
		return nil, fmt.Errorf("AWS_SECRET_ACCESS_KEY not set")
	}

	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(accessKeyID, secretAccessKey, os.Getenv("AWS_SESSION_TOKEN")),
		Secure:    cfg.UseSSL(),
		Region:    cfg.Region,
		Transport: network.NewSecureTransport(),
	})
}

// Uploader puts distribution files into one bucket under a key prefix.
type Uploader struct {
	Store  ObjectStore
	Bucket string
	Prefix string
}

// NewUploader returns an Uploader for cfg backed by store.
func NewUploader(store ObjectStore, cfg config.UploadConfig) *Uploader {
	return &Uploader{Store: store, Bucket: cfg.Bucket, Prefix: cfg.Prefix}
}

// ObjectName is the key a file is uploaded under.
func (u *Uploader) ObjectName(file string) string {
	return path.Join(strings.Trim(u.Prefix, "/"), filepath.Base(file))
}

// Upload uploads every file and returns the object names. Files are checked
// before the first upload starts. An archive with a record next to it is
// tagged with the record's build id.
func (u *Uploader) Upload(ctx context.Context, files []string) ([]string, error) {
	log := logger.Logger()

	if u.Bucket == "" {
		return nil, fmt.Errorf("upload.bucket is not configured")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return nil, fmt.Errorf("upload source: %w", err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("upload source %s is not a regular file", f)
		}
	}

	exists, err := u.Store.BucketExists(ctx, u.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", u.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", u.Bucket)
	}

	var uploaded []string
	for _, f := range files {
		opts := minio.PutObjectOptions{ContentType: contentType(f)}
		if rec, err := ReadRecord(f + ".RECORD.json"); err == nil {
			opts.UserMetadata = map[string]string{"build-id": rec.BuildID}
		}

		name := u.ObjectName(f)
		info, err := u.Store.FPutObject(ctx, u.Bucket, name, f, opts)
		if err != nil {
			return uploaded, fmt.Errorf("uploading %s: %w", f, err)
		}
		log.Infof("uploaded %s to %s/%s (%d bytes)", f, u.Bucket, name, info.Size)
		uploaded = append(uploaded, name)
	}
	return uploaded, nil
}

func contentType(file string) string {
	switch {
	case strings.HasSuffix(file, ".tar.gz"):
		return "application/gzip"
	case strings.HasSuffix(file, ".tar.xz"):
		return "application/x-xz"
	case strings.HasSuffix(file, ".tar.zst"):
		return "application/zstd"
	case strings.HasSuffix(file, SignatureSuffix):
		return "application/pgp-signature"
	case strings.HasSuffix(file, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
