// Package refs orchestrates reference mutations. Every operation runs the
// same three steps strictly in order: format validation (no network),
// authorization via the access gate, and, for mutations, an existence
// check of the target commit against the object store.
//
// No lock spans the steps. The reference store's own constraints are the
// source of truth: racing tag creates resolve to one winner and a
// Conflict, racing main updates are last-write-wins, and the existence
// check is advisory (a commit deleted out-of-band between check and write
// is not detected).
package refs

import (
	"context"

	"gitstore/internal/access"
	"gitstore/internal/apperr"
	"gitstore/internal/object"
	"gitstore/internal/storage/refstore"
)

type Coordinator struct {
	gate    *access.Gate
	commits CommitChecker
	refs    refstore.Store
}

func NewCoordinator(gate *access.Gate, commits CommitChecker, refs refstore.Store) *Coordinator {
	return &Coordinator{gate: gate, commits: commits, refs: refs}
}

// UpdateMain repoints the main reference, creating it on first use. The
// same row is updated in place on every subsequent call.
func (c *Coordinator) UpdateMain(ctx context.Context, repositoryID, userID, commitHash string) (refstore.Reference, error) {
	if err := validateIDs(repositoryID, userID); err != nil {
		return refstore.Reference{}, err
	}
	if !object.ValidHash(commitHash) {
		return refstore.Reference{}, apperr.BadRequest("commitHash must be 64 lowercase hex characters")
	}
	if _, err := c.gate.Check(ctx, repositoryID, userID, access.LevelWrite); err != nil {
		return refstore.Reference{}, err
	}
	if err := c.verifyCommit(ctx, commitHash); err != nil {
		return refstore.Reference{}, err
	}

	existing, err := c.refs.Find(ctx, repositoryID, refstore.KindMain, object.ReservedMainName)
	if err == nil {
		return c.refs.UpdateCommitHash(ctx, existing.ID, commitHash)
	}
	if !apperr.IsNotFound(err) {
		return refstore.Reference{}, err
	}
	return c.refs.Create(ctx, refstore.Reference{
		RepositoryID: repositoryID,
		Kind:         refstore.KindMain,
		Name:         object.ReservedMainName,
		CommitHash:   commitHash,
	})
}

// GetMain returns the main reference.
func (c *Coordinator) GetMain(ctx context.Context, repositoryID, userID string) (refstore.Reference, error) {
	if err := validateIDs(repositoryID, userID); err != nil {
		return refstore.Reference{}, err
	}
	if _, err := c.gate.Check(ctx, repositoryID, userID, access.LevelRead); err != nil {
		return refstore.Reference{}, err
	}
	return c.refs.Find(ctx, repositoryID, refstore.KindMain, object.ReservedMainName)
}

// CreateTag binds a new immutable tag name to a commit. Re-creating an
// existing name is a conflict even with a different hash.
func (c *Coordinator) CreateTag(ctx context.Context, repositoryID, userID, tagName, commitHash string) (refstore.Reference, error) {
	if err := validateIDs(repositoryID, userID); err != nil {
		return refstore.Reference{}, err
	}
	if !object.ValidTagName(tagName) {
		return refstore.Reference{}, apperr.BadRequest("tagName must be 1-100 characters without slashes or whitespace, and not %q", object.ReservedMainName)
	}
	if !object.ValidHash(commitHash) {
		return refstore.Reference{}, apperr.BadRequest("commitHash must be 64 lowercase hex characters")
	}
	if _, err := c.gate.Check(ctx, repositoryID, userID, access.LevelWrite); err != nil {
		return refstore.Reference{}, err
	}
	if err := c.verifyCommit(ctx, commitHash); err != nil {
		return refstore.Reference{}, err
	}

	if _, err := c.refs.Find(ctx, repositoryID, refstore.KindTag, tagName); err == nil {
		return refstore.Reference{}, apperr.Conflict("tag %q already exists for repository %s", tagName, repositoryID)
	} else if !apperr.IsNotFound(err) {
		return refstore.Reference{}, err
	}
	// The store's uniqueness constraint decides a racing duplicate create.
	return c.refs.Create(ctx, refstore.Reference{
		RepositoryID: repositoryID,
		Kind:         refstore.KindTag,
		Name:         tagName,
		CommitHash:   commitHash,
	})
}

// GetTag returns a single tag by name.
func (c *Coordinator) GetTag(ctx context.Context, repositoryID, userID, tagName string) (refstore.Reference, error) {
	if err := validateIDs(repositoryID, userID); err != nil {
		return refstore.Reference{}, err
	}
	if !object.ValidTagName(tagName) {
		return refstore.Reference{}, apperr.BadRequest("tagName is not valid")
	}
	if _, err := c.gate.Check(ctx, repositoryID, userID, access.LevelRead); err != nil {
		return refstore.Reference{}, err
	}
	return c.refs.Find(ctx, repositoryID, refstore.KindTag, tagName)
}

// ListTags returns all tags of a repository.
func (c *Coordinator) ListTags(ctx context.Context, repositoryID, userID string) ([]refstore.Reference, error) {
	if err := validateIDs(repositoryID, userID); err != nil {
		return nil, err
	}
	if _, err := c.gate.Check(ctx, repositoryID, userID, access.LevelRead); err != nil {
		return nil, err
	}
	tags, err := c.refs.ListByRepository(ctx, repositoryID, refstore.KindTag)
	if err != nil {
		return nil, apperr.Internal(err, "reference list failed")
	}
	return tags, nil
}

// DeleteTag removes a tag, reporting whether a row was deleted.
func (c *Coordinator) DeleteTag(ctx context.Context, repositoryID, userID, tagName string) (bool, error) {
	if err := validateIDs(repositoryID, userID); err != nil {
		return false, err
	}
	if !object.ValidTagName(tagName) {
		return false, apperr.BadRequest("tagName is not valid")
	}
	if _, err := c.gate.Check(ctx, repositoryID, userID, access.LevelWrite); err != nil {
		return false, err
	}
	ref, err := c.refs.Find(ctx, repositoryID, refstore.KindTag, tagName)
	if err != nil {
		return false, err
	}
	return c.refs.Delete(ctx, ref.ID)
}

func (c *Coordinator) verifyCommit(ctx context.Context, commitHash string) error {
	ok, err := c.commits.CommitExists(ctx, commitHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("commit %s does not exist in content storage", commitHash)
	}
	return nil
}

func validateIDs(repositoryID, userID string) error {
	if !object.ValidID(repositoryID) {
		return apperr.BadRequest("repositoryId must be 1-64 characters of [A-Za-z0-9_-]")
	}
	if !object.ValidID(userID) {
		return apperr.BadRequest("userId must be 1-64 characters of [A-Za-z0-9_-]")
	}
	return nil
}
