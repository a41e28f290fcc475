package objectstore

import (
	"context"
	"io"
	"testing"

	"gitstore/internal/apperr"
	"gitstore/internal/object"
	"gitstore/internal/storage/blobstore"
	"gitstore/internal/storage/metastore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	meta, err := metastore.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open metastore: %v", err)
	}
	return New(blobstore.NewFS(t.TempDir(), false), meta, nil)
}

var prov = Provenance{UploaderID: "u1", RepositoryID: "r1"}

func TestPutBlobDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	content := []byte("same bytes both times")

	first, err := s.PutBlob(ctx, content, "a.txt", "text/plain", prov)
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	second, err := s.PutBlob(ctx, content, "b.txt", "text/plain", Provenance{UploaderID: "u2", RepositoryID: "r1"})
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if first.Hash != second.Hash {
		t.Errorf("same content, different hashes: %s vs %s", first.Hash, second.Hash)
	}
	// The dedup short-circuit keeps the original record.
	if second.OriginalName != "a.txt" || second.UploaderID != "u1" {
		t.Errorf("expected original record back, got %+v", second)
	}

	objects, err := s.ListByRepository(ctx, "r1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 1 {
		t.Errorf("expected exactly one stored object, got %d", len(objects))
	}
}

// staleMeta answers every existence check with "absent", like a writer
// whose check raced ahead of a concurrent upload of the same content.
type staleMeta struct {
	metastore.Store
}

func (staleMeta) Exists(ctx context.Context, hash string) (bool, error) {
	return false, nil
}

func TestPutBlobSameContentRaceConverges(t *testing.T) {
	meta, err := metastore.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open metastore: %v", err)
	}
	s := New(blobstore.NewFS(t.TempDir(), false), staleMeta{Store: meta}, nil)
	ctx := context.Background()
	content := []byte("both writers saw it absent")

	first, err := s.PutBlob(ctx, content, "a.txt", "text/plain", prov)
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	// The stale check sends the second writer down the full write path;
	// the metadata insert loses to the first row and must converge on it.
	second, err := s.PutBlob(ctx, content, "b.txt", "text/plain", Provenance{UploaderID: "u2", RepositoryID: "r1"})
	if err != nil {
		t.Fatalf("losing writer should converge, not fail: %v", err)
	}
	if second.Hash != first.Hash || second.OriginalName != "a.txt" || second.UploaderID != "u1" {
		t.Errorf("expected the winner's record back, got %+v", second)
	}

	objects, err := s.ListByRepository(ctx, "r1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 1 {
		t.Errorf("expected exactly one stored object, got %d", len(objects))
	}
}

func TestPutBlobRejectsBadProvenance(t *testing.T) {
	s := newTestStore(t)
	_, err := s.PutBlob(context.Background(), []byte("x"), "x", "", Provenance{UploaderID: "has space", RepositoryID: "r1"})
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected bad_request, got %v", err)
	}
	// Validation failed before any write.
	objects, _ := s.ListByRepository(context.Background(), "r1", "")
	if len(objects) != 0 {
		t.Errorf("store mutated on validation failure: %+v", objects)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	content := []byte("raw blob content")

	rec, err := s.PutBlob(ctx, content, "f.bin", "application/octet-stream", prov)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, got, err := s.GetBlob(ctx, rec.Hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	if got.ByteSize != int64(len(content)) {
		t.Errorf("size = %d, want %d", got.ByteSize, len(content))
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestGetBlobMissing(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.GetBlob(context.Background(), "1111111111111111111111111111111111111111111111111111111111111111")
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not_found, got %v", err)
	}
	_, _, err = s.GetBlob(context.Background(), "short")
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected bad_request for malformed hash, got %v", err)
	}
}

func TestTreePermutationsCollapse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	blob, err := s.PutBlob(ctx, []byte("hello"), "a.txt", "text/plain", prov)
	if err != nil {
		t.Fatalf("put blob: %v", err)
	}
	e1 := object.TreeEntry{Mode: "100644", Type: "blob", Hash: object.Hash(blob.Hash), Name: "a.txt"}
	e2 := object.TreeEntry{Mode: "100644", Type: "blob", Hash: object.Hash(blob.Hash), Name: "b.txt"}

	t1, err := s.PutTree(ctx, []object.TreeEntry{e1, e2}, prov)
	if err != nil {
		t.Fatalf("put tree: %v", err)
	}
	t2, err := s.PutTree(ctx, []object.TreeEntry{e2, e1}, prov)
	if err != nil {
		t.Fatalf("put permuted tree: %v", err)
	}
	if t1.Hash != t2.Hash {
		t.Errorf("permuted trees got different hashes: %s vs %s", t1.Hash, t2.Hash)
	}

	tree, err := s.GetTree(ctx, t1.Hash)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if len(tree.Entries) != 2 || tree.Entries[0].Name != "a.txt" {
		t.Errorf("unexpected tree: %+v", tree)
	}
}

func TestPutTreeValidation(t *testing.T) {
	s := newTestStore(t)
	bad := []object.TreeEntry{{Mode: "100644", Type: "blob", Hash: "nothex", Name: "x"}}
	_, err := s.PutTree(context.Background(), bad, prov)
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected bad_request, got %v", err)
	}
}

func TestCommitRoundTripAndKindCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	blob, err := s.PutBlob(ctx, []byte("hello"), "a.txt", "text/plain", prov)
	if err != nil {
		t.Fatalf("put blob: %v", err)
	}
	tree, err := s.PutTree(ctx, []object.TreeEntry{
		{Mode: "100644", Type: "blob", Hash: object.Hash(blob.Hash), Name: "a.txt"},
	}, prov)
	if err != nil {
		t.Fatalf("put tree: %v", err)
	}

	c := object.Commit{
		Tree:      object.Hash(tree.Hash),
		Author:    object.Signature{Email: "u1@x.com", Timestamp: 1700000000},
		Committer: object.Signature{Email: "u1@x.com", Timestamp: 1700000000},
		Message:   "init",
	}
	rec, err := s.PutCommit(ctx, c, prov)
	if err != nil {
		t.Fatalf("put commit: %v", err)
	}
	if rec.Kind != "commit" {
		t.Errorf("kind = %q, want commit", rec.Kind)
	}

	got, err := s.GetCommit(ctx, rec.Hash)
	if err != nil {
		t.Fatalf("get commit: %v", err)
	}
	if got.Tree != c.Tree || got.Message != "init" || got.Author != c.Author {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// A blob hash is not a commit.
	_, err = s.GetCommit(ctx, blob.Hash)
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected bad_request for kind mismatch, got %v", err)
	}
}

func TestPutCommitValidation(t *testing.T) {
	s := newTestStore(t)
	c := object.Commit{
		Tree:      "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Author:    object.Signature{Email: "u1@x.com", Timestamp: 1},
		Committer: object.Signature{Email: "u1@x.com", Timestamp: 1},
		Message:   "  ",
	}
	_, err := s.PutCommit(context.Background(), c, prov)
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected bad_request for blank message, got %v", err)
	}
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.PutBlob(ctx, []byte("probe me"), "p", "", prov)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := s.Exists(ctx, rec.Hash)
	if err != nil || !ok {
		t.Errorf("expected exists=true, got %v err %v", ok, err)
	}
	ok, err = s.Exists(ctx, "1111111111111111111111111111111111111111111111111111111111111111")
	if err != nil || ok {
		t.Errorf("expected exists=false, got %v err %v", ok, err)
	}
	if _, err := s.Exists(ctx, "bad"); apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Errorf("expected bad_request for malformed hash, got %v", err)
	}
}
