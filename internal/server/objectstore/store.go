// Package objectstore keeps document bytes in an S3-compatible bucket
// (AWS S3 or MinIO) under users/<owner>/<type>/<name>.
package objectstore

import (
	"context"
	"io"
	"time"
)

// MaxPresignTTL is the longest validity S3 accepts for a SigV4 presigned URL.
const MaxPresignTTL = 7 * 24 * time.Hour

// Disposition selects how a browser treats a presigned download.
type Disposition string

const (
	DispositionInline     Disposition = "inline"
	DispositionAttachment Disposition = "attachment"
)

// Object is one listed blob.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the blob storage contract used by the services.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every object under prefix, following continuation tokens.
	List(ctx context.Context, prefix string) ([]Object, error)
	// PresignGet returns a GET URL valid for ttl (capped at MaxPresignTTL).
	// A non-empty filename is sent back as the Content-Disposition filename.
	PresignGet(ctx context.Context, key string, ttl time.Duration, disposition Disposition, filename string) (string, error)
}
