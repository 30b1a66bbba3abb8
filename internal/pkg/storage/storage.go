// Package storage keeps backup files in an object store. A Store is bound to
// one bucket; drivers exist for S3, MinIO and Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound      = errors.New("storage: object not found")
	ErrMissingSigner = errors.New("storage: signed url signer not configured")
	ErrTooLarge      = errors.New("storage: object exceeds read limit")
)

// Store is the subset of object storage the backup flow needs.
type Store interface {
	io.Closer

	Put(ctx context.Context, key string, body []byte, opts PutOptions) (Object, error)
	// Get reads the whole object; objects larger than limit fail with ErrTooLarge.
	Get(ctx context.Context, key string, limit int64) ([]byte, Object, error)
	Delete(ctx context.Context, key string) error
	// List returns objects under prefix in key order.
	List(ctx context.Context, prefix string) ([]Object, error)
	// SignedURL returns a time limited download link.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type PutOptions struct {
	ContentType string
	// Filename is sent back as Content-Disposition when the object is downloaded.
	Filename string
	Metadata map[string]string
}

// Object describes a stored object.
type Object struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
	Metadata    map[string]string
	UpdatedAt   time.Time
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ErrTooLarge
	}

	return body, nil
}

func contentDisposition(filename string) string {
	if filename == "" {
		return ""
	}
	return `attachment; filename="` + filename + `"`
}
