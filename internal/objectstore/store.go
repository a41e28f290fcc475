// Package objectstore layers the typed object operations (blob, tree,
// commit) over the byte-store and the metadata store. All three kinds
// share one write path: hash, dedup check, stream bytes, record metadata.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"gitstore/internal/apperr"
	"gitstore/internal/object"
	"gitstore/internal/storage/blobstore"
	"gitstore/internal/storage/metastore"
)

// Provenance identifies who uploaded content into which repository.
type Provenance struct {
	UploaderID   string
	RepositoryID string
}

func (p Provenance) validate() error {
	if !object.ValidID(p.RepositoryID) {
		return apperr.BadRequest("repositoryId must be 1-64 characters of [A-Za-z0-9_-]")
	}
	if !object.ValidID(p.UploaderID) {
		return apperr.BadRequest("uploaderId must be 1-64 characters of [A-Za-z0-9_-]")
	}
	return nil
}

type Store struct {
	blobs blobstore.Store
	meta  metastore.Store
	cache *Cache // optional; nil disables existence caching
}

func New(blobs blobstore.Store, meta metastore.Store, cache *Cache) *Store {
	return &Store{blobs: blobs, meta: meta, cache: cache}
}

// PutBlob stores raw content. A hash that is already present short-circuits
// without writing; the existing record is returned.
func (s *Store) PutBlob(ctx context.Context, data []byte, filename, contentType string, p Provenance) (metastore.StoredObject, error) {
	if err := p.validate(); err != nil {
		return metastore.StoredObject{}, err
	}
	return s.put(ctx, object.KindBlob, data, filename, contentType, p)
}

// PutTree validates and canonicalizes tree entries, then stores the
// canonical bytes like any other content.
func (s *Store) PutTree(ctx context.Context, entries []object.TreeEntry, p Provenance) (metastore.StoredObject, error) {
	if err := p.validate(); err != nil {
		return metastore.StoredObject{}, err
	}
	if err := object.ValidateTree(entries); err != nil {
		return metastore.StoredObject{}, apperr.BadRequest("%v", err)
	}
	return s.put(ctx, object.KindTree, object.CanonicalTree(entries), "", "application/json", p)
}

// PutCommit validates the commit invariants, then stores its canonical form.
func (s *Store) PutCommit(ctx context.Context, c object.Commit, p Provenance) (metastore.StoredObject, error) {
	if err := p.validate(); err != nil {
		return metastore.StoredObject{}, err
	}
	if err := object.ValidateCommit(c); err != nil {
		return metastore.StoredObject{}, apperr.BadRequest("%v", err)
	}
	return s.put(ctx, object.KindCommit, object.CanonicalCommit(c), "", "application/json", p)
}

// put is the shared hash/dedup/write path. The metadata record is written
// only after the byte-store reports a complete write, so a record never
// points at missing bytes.
func (s *Store) put(ctx context.Context, kind object.Kind, data []byte, filename, contentType string, p Provenance) (metastore.StoredObject, error) {
	h := string(object.HashBytes(data))

	exists, err := s.exists(ctx, h)
	if err != nil {
		return metastore.StoredObject{}, apperr.Internal(err, "existence check failed")
	}
	if exists {
		return s.meta.Get(ctx, h)
	}

	if err := s.blobs.Put(ctx, h, bytes.NewReader(data), int64(len(data))); err != nil {
		return metastore.StoredObject{}, apperr.Internal(err, "byte-store write failed")
	}
	rec, err := s.meta.Insert(ctx, metastore.StoredObject{
		Hash:         h,
		ByteSize:     int64(len(data)),
		Kind:         string(kind),
		UploaderID:   p.UploaderID,
		RepositoryID: p.RepositoryID,
		OriginalName: filename,
		ContentType:  contentType,
	})
	if apperr.IsConflict(err) {
		// Another writer of the same content got here between our
		// existence check and the insert; its record is the one.
		rec, err = s.meta.Get(ctx, h)
	}
	if err != nil {
		return metastore.StoredObject{}, apperr.Internal(err, "metadata write failed")
	}
	if s.cache != nil {
		s.cache.MarkStored(ctx, h)
	}
	return rec, nil
}

// GetBlob returns a readable stream of raw content plus its metadata. The
// caller must drain or close the stream.
func (s *Store) GetBlob(ctx context.Context, hash string) (io.ReadCloser, metastore.StoredObject, error) {
	if !object.ValidHash(hash) {
		return nil, metastore.StoredObject{}, apperr.BadRequest("hash must be 64 lowercase hex characters")
	}
	rec, err := s.meta.Get(ctx, hash)
	if err != nil {
		return nil, metastore.StoredObject{}, err
	}
	rc, _, err := s.blobs.Open(ctx, hash)
	if err != nil {
		return nil, metastore.StoredObject{}, apperr.Internal(err, "byte-store read failed")
	}
	return rc, rec, nil
}

// GetTree downloads and parses stored tree content.
func (s *Store) GetTree(ctx context.Context, hash string) (object.Tree, error) {
	rec, data, err := s.readAll(ctx, hash)
	if err != nil {
		return object.Tree{}, err
	}
	if rec.Kind != string(object.KindTree) {
		return object.Tree{}, apperr.BadRequest("object %s is stored as %q, not a tree", hash, rec.Kind)
	}
	tree, err := object.ParseTree(data)
	if err != nil {
		return object.Tree{}, apperr.BadRequest("%v", err)
	}
	return tree, nil
}

// GetCommit downloads and parses stored commit content, checking the
// declared content kind first.
func (s *Store) GetCommit(ctx context.Context, hash string) (object.Commit, error) {
	rec, data, err := s.readAll(ctx, hash)
	if err != nil {
		return object.Commit{}, err
	}
	if rec.Kind != string(object.KindCommit) {
		return object.Commit{}, apperr.BadRequest("object %s is stored as %q, not a commit", hash, rec.Kind)
	}
	c, err := object.ParseCommit(data)
	if err != nil {
		return object.Commit{}, apperr.BadRequest("%v", err)
	}
	return c, nil
}

// GetMeta returns the metadata record for a stored hash.
func (s *Store) GetMeta(ctx context.Context, hash string) (metastore.StoredObject, error) {
	if !object.ValidHash(hash) {
		return metastore.StoredObject{}, apperr.BadRequest("hash must be 64 lowercase hex characters")
	}
	return s.meta.Get(ctx, hash)
}

// Exists is the O(1) existence probe used for dedup and for cross-service
// commit verification.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	if !object.ValidHash(hash) {
		return false, apperr.BadRequest("hash must be 64 lowercase hex characters")
	}
	ok, err := s.exists(ctx, hash)
	if err != nil {
		return false, apperr.Internal(err, "existence check failed")
	}
	return ok, nil
}

func (s *Store) exists(ctx context.Context, hash string) (bool, error) {
	if s.cache != nil && s.cache.Contains(ctx, hash) {
		return true, nil
	}
	ok, err := s.meta.Exists(ctx, hash)
	if err != nil {
		return false, err
	}
	if ok && s.cache != nil {
		s.cache.MarkStored(ctx, hash)
	}
	return ok, nil
}

// ListByRepository returns object summaries for a repository, optionally
// narrowed to one uploader.
func (s *Store) ListByRepository(ctx context.Context, repositoryID, uploaderID string) ([]metastore.StoredObject, error) {
	if !object.ValidID(repositoryID) {
		return nil, apperr.BadRequest("repositoryId must be 1-64 characters of [A-Za-z0-9_-]")
	}
	if uploaderID != "" && !object.ValidID(uploaderID) {
		return nil, apperr.BadRequest("userId must be 1-64 characters of [A-Za-z0-9_-]")
	}
	out, err := s.meta.ListByRepository(ctx, repositoryID, uploaderID)
	if err != nil {
		return nil, apperr.Internal(err, "metadata list failed")
	}
	return out, nil
}

func (s *Store) readAll(ctx context.Context, hash string) (metastore.StoredObject, []byte, error) {
	if !object.ValidHash(hash) {
		return metastore.StoredObject{}, nil, apperr.BadRequest("hash must be 64 lowercase hex characters")
	}
	rec, err := s.meta.Get(ctx, hash)
	if err != nil {
		return metastore.StoredObject{}, nil, err
	}
	rc, _, err := s.blobs.Open(ctx, hash)
	if err != nil {
		return metastore.StoredObject{}, nil, apperr.Internal(err, "byte-store read failed")
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return metastore.StoredObject{}, nil, apperr.Internal(err, "byte-store read failed")
	}
	if int64(len(data)) != rec.ByteSize {
		return metastore.StoredObject{}, nil, apperr.Internal(
			fmt.Errorf("object %s: size mismatch (record=%d, actual=%d)", hash, rec.ByteSize, len(data)),
			"stored content is corrupt")
	}
	return rec, data, nil
}
