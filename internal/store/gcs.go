// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/pdiddy/equeo-export/pkg/types"
)

const gcsWriteTimeout = 2 * time.Minute

// GCSSink uploads outputs to a Cloud Storage bucket under an optional
// prefix, keeping the md/html/pdf layout.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string

	// newWriter opens the object writer; replaced in tests.
	newWriter func(ctx context.Context, object, contentType string) io.WriteCloser
}

// NewGCSSink connects to Cloud Storage using application default
// credentials, or cfg.CredentialsFile when set.
func NewGCSSink(ctx context.Context, cfg types.PublishConfig) (*GCSSink, error) {
	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	s := &GCSSink{client: client, bucket: cfg.GCSBucket, prefix: cfg.GCSPrefix}
	s.newWriter = func(ctx context.Context, object, contentType string) io.WriteCloser {
		w := client.Bucket(s.bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}
	return s, nil
}

// ObjectName returns the object key for relPath.
func (s *GCSSink) ObjectName(relPath string) string {
	return path.Join(strings.Trim(s.prefix, "/"), strings.TrimPrefix(relPath, "/"))
}

// Put uploads data. The upload is committed when the writer closes.
func (s *GCSSink) Put(ctx context.Context, relPath, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	object := s.ObjectName(relPath)
	w := s.newWriter(ctx, object, contentType)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("uploading gs://%s/%s: %w", s.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("uploading gs://%s/%s: %w", s.bucket, object, err)
	}
	return nil
}

// Close closes the storage client.
func (s *GCSSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
