// Package gcs provides the Google Cloud Storage archive backend.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/bitcrush/internal/artifact"
)

// CacheControl is set on every exported artifact. An id names exactly one
// artifact for its whole life, so objects never change once written.
const CacheControl = "public, max-age=31536000, immutable"

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// BlobStore writes crushed artifacts to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket name is required")
	}
	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// PutObject creates obj in the bucket and returns its gs:// URI. The write is
// create-only, so an existing object at the same path is never replaced.
func (s *BlobStore) PutObject(ctx context.Context, obj artifact.Object) (string, error) {
	if strings.TrimSpace(obj.Path) == "" {
		return "", errors.New("path is required")
	}
	handle := s.client.Bucket(s.bucket).Object(obj.Path).If(storage.Conditions{DoesNotExist: true})
	w := handle.NewWriter(ctx)
	w.ContentType = obj.ContentType
	w.CacheControl = CacheControl
	if len(obj.Metadata) > 0 {
		w.Metadata = obj.Metadata
	}

	if _, err := io.Copy(w, obj.Data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("upload %s: %w (close writer: %v)", obj.Path, err, closeErr)
		}
		return "", fmt.Errorf("upload %s: %w", obj.Path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", obj.Path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, obj.Path), nil
}
