package refs

import (
	"context"
	"testing"

	"gitstore/internal/access"
	"gitstore/internal/apperr"
	"gitstore/internal/storage/refstore"
)

const (
	commitA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	commitB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	missing = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
)

type fakeRegistry struct {
	repos map[string]access.RepositoryInfo
	calls int
}

func (f *fakeRegistry) Repository(ctx context.Context, id string) (access.RepositoryInfo, error) {
	f.calls++
	repo, ok := f.repos[id]
	if !ok {
		return access.RepositoryInfo{}, apperr.NotFound("repository %s not found", id)
	}
	return repo, nil
}

type fakeChecker struct {
	known map[string]bool
	calls int
}

func (f *fakeChecker) CommitExists(ctx context.Context, hash string) (bool, error) {
	f.calls++
	return f.known[hash], nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeRegistry, *fakeChecker) {
	t.Helper()
	store, err := refstore.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open refstore: %v", err)
	}
	registry := &fakeRegistry{repos: map[string]access.RepositoryInfo{
		"r1": {ID: "r1", OwnerID: "u1", Visibility: "public"},
		"r2": {ID: "r2", OwnerID: "u2", Visibility: "private"},
	}}
	checker := &fakeChecker{known: map[string]bool{commitA: true, commitB: true}}
	return NewCoordinator(access.NewGate(registry), checker, store), registry, checker
}

func TestUpdateMainCreatesThenUpdatesInPlace(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.UpdateMain(ctx, "r1", "u1", commitA)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Kind != refstore.KindMain || first.Name != "main" || first.CommitHash != commitA {
		t.Errorf("unexpected reference: %+v", first)
	}

	second, err := c.UpdateMain(ctx, "r1", "u1", commitB)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same row to be repointed, got %s vs %s", second.ID, first.ID)
	}
	if second.CommitHash != commitB {
		t.Errorf("hash = %s, want %s", second.CommitHash, commitB)
	}
}

func TestUpdateMainValidationSkipsNetwork(t *testing.T) {
	c, registry, checker := newTestCoordinator(t)

	_, err := c.UpdateMain(context.Background(), "r1", "u1", "not-a-hash")
	if apperr.CodeOf(err) != apperr.CodeBadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}
	if registry.calls != 0 || checker.calls != 0 {
		t.Errorf("validation failure must not reach collaborators: registry=%d checker=%d", registry.calls, checker.calls)
	}
}

func TestUpdateMainForbiddenForNonOwner(t *testing.T) {
	c, _, checker := newTestCoordinator(t)

	_, err := c.UpdateMain(context.Background(), "r1", "u2", commitA)
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if checker.calls != 0 {
		t.Error("authorization failure must not reach the object store")
	}
}

func TestUpdateMainMissingCommit(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	// Owner or not, an unstored commit is rejected.
	_, err := c.UpdateMain(context.Background(), "r1", "u1", missing)
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestGetMain(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.GetMain(ctx, "r1", "u2"); !apperr.IsNotFound(err) {
		t.Errorf("expected not_found before any update, got %v", err)
	}
	if _, err := c.UpdateMain(ctx, "r1", "u1", commitA); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Public repository: any user may read.
	ref, err := c.GetMain(ctx, "r1", "u2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ref.CommitHash != commitA {
		t.Errorf("hash = %s, want %s", ref.CommitHash, commitA)
	}
	// Private repository: non-owner reads are forbidden.
	if _, err := c.GetMain(ctx, "r2", "u1"); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestCreateTagConflictOnSecondCreate(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	tag, err := c.CreateTag(ctx, "r1", "u1", "v1", commitA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tag.Kind != refstore.KindTag || tag.Name != "v1" {
		t.Errorf("unexpected tag: %+v", tag)
	}
	// Same name, different hash: still a conflict.
	_, err = c.CreateTag(ctx, "r1", "u1", "v1", commitB)
	if !apperr.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestCreateTagRejectsReservedAndMalformedNames(t *testing.T) {
	c, registry, _ := newTestCoordinator(t)
	ctx := context.Background()

	for _, name := range []string{"main", "", "has space", "a/b"} {
		if _, err := c.CreateTag(ctx, "r1", "u1", name, commitA); apperr.CodeOf(err) != apperr.CodeBadRequest {
			t.Errorf("tag %q: expected bad_request, got %v", name, err)
		}
	}
	if registry.calls != 0 {
		t.Error("name validation must precede authorization")
	}
}

func TestTagLifecycle(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.CreateTag(ctx, "r1", "u1", "v1", commitA); err != nil {
		t.Fatalf("create v1: %v", err)
	}
	if _, err := c.CreateTag(ctx, "r1", "u1", "v2", commitB); err != nil {
		t.Fatalf("create v2: %v", err)
	}

	got, err := c.GetTag(ctx, "r1", "u2", "v1")
	if err != nil {
		t.Fatalf("get tag: %v", err)
	}
	if got.CommitHash != commitA {
		t.Errorf("hash = %s, want %s", got.CommitHash, commitA)
	}

	tags, err := c.ListTags(ctx, "r1", "u2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(tags))
	}

	deleted, err := c.DeleteTag(ctx, "r1", "u1", "v1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if _, err := c.DeleteTag(ctx, "r1", "u1", "v1"); !apperr.IsNotFound(err) {
		t.Errorf("expected not_found on second delete, got %v", err)
	}
	if _, err := c.GetTag(ctx, "r1", "u1", "v1"); !apperr.IsNotFound(err) {
		t.Errorf("expected not_found after delete, got %v", err)
	}
}

func TestDeleteTagRequiresWrite(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.CreateTag(ctx, "r1", "u1", "v1", commitA); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := c.DeleteTag(ctx, "r1", "u2", "v1")
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestUnknownRepository(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	_, err := c.UpdateMain(context.Background(), "nope", "u1", commitA)
	if !apperr.IsNotFound(err) {
		t.Errorf("expected not_found, got %v", err)
	}
}
