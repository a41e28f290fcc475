// Package blobstore is the opaque byte-store substrate: content keyed by
// name (always an object hash here), with put-stream/get-stream/exists.
package blobstore

import (
	"context"
	"io"
)

// Store is implemented by all byte-store backends.
//
// Open returns the stored size when the backend knows it cheaply, or -1
// when it does not (compressed-at-rest storage); callers needing an exact
// size use the metadata record instead.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
}
