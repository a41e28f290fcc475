// Package refstore persists reference rows: mutable main pointers and
// immutable-once-created tags. The (repository, kind, name) triple is
// unique; the schema constraint is the enforcement point for racing
// creates, not the application-level pre-check.
package refstore

import (
	"context"
)

const (
	KindMain = "main"
	KindTag  = "tag"
)

// Reference binds a name to a commit hash within a repository.
type Reference struct {
	ID           string `json:"id"`
	RepositoryID string `json:"repositoryId"`
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	CommitHash   string `json:"commitHash"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type Store interface {
	// Create inserts a new reference, filling ID and timestamps. A duplicate
	// (repository, kind, name) triple fails with Conflict.
	Create(ctx context.Context, ref Reference) (Reference, error)
	Find(ctx context.Context, repositoryID, kind, name string) (Reference, error)
	// UpdateCommitHash repoints an existing reference in place. Only the
	// main pointer is ever updated.
	UpdateCommitHash(ctx context.Context, id, newHash string) (Reference, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ListByRepository returns references for a repository, optionally
	// narrowed by kind.
	ListByRepository(ctx context.Context, repositoryID, kind string) ([]Reference, error)
}
