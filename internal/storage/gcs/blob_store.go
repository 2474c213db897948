// Package gcs stores homepage snapshots in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const defaultUploadTimeout = 30 * time.Second

// Config captures the parameters required to write snapshots to GCS.
type Config struct {
	Bucket        string
	UploadTimeout time.Duration
}

// BlobStore writes snapshots to a GCS bucket.
type BlobStore struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &BlobStore{client: client, bucket: cfg.Bucket, timeout: timeout}, nil
}

// PutObject uploads data and returns a gs:// URI. Snapshots are immutable
// once written, so objects are marked cacheable.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=86400"
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("upload %s: %w (close writer: %v)", path, err, closeErr)
		}
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", path, err)
	}
	return URI(s.bucket, path), nil
}

// URI renders the gs:// location of an object.
func URI(bucket, path string) string {
	return "gs://" + bucket + "/" + strings.TrimPrefix(path, "/")
}
