// Package metastore persists one record per unique content hash. Records
// are append-only: the first upload of a hash creates the row, later
// uploads of identical content collapse onto it.
package metastore

import (
	"context"
)

// StoredObject is the metadata record for one content-addressed object.
type StoredObject struct {
	Hash         string `json:"hash"`
	ByteSize     int64  `json:"byteSize"`
	Kind         string `json:"contentKind"`
	UploaderID   string `json:"uploaderId"`
	RepositoryID string `json:"repositoryId"`
	OriginalName string `json:"originalName,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

type Store interface {
	Insert(ctx context.Context, o StoredObject) (StoredObject, error)
	Get(ctx context.Context, hash string) (StoredObject, error)
	Exists(ctx context.Context, hash string) (bool, error)
	// ListByRepository returns objects uploaded for a repository, optionally
	// narrowed to a single uploader.
	ListByRepository(ctx context.Context, repositoryID, uploaderID string) ([]StoredObject, error)
}
