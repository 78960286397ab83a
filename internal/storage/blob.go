// Package storage keeps generated study-aid artifacts.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrInvalidKey = errors.New("storage: invalid key")
	ErrNotFound   = errors.New("storage: not found")
)

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// URL is the path clients fetch the blob from.
	URL(key string) string
}
