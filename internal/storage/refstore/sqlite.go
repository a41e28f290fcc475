package refstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid"
	_ "modernc.org/sqlite"

	"gitstore/internal/apperr"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refs (
			id TEXT PRIMARY KEY,
			repository_id TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('main','tag')),
			name TEXT NOT NULL,
			commit_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(repository_id, kind, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_refs_repository ON refs(repository_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("refstore schema: %w", err)
		}
	}
	return nil
}

func newULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

func (s *SQLiteStore) Create(ctx context.Context, ref Reference) (Reference, error) {
	if ref.ID == "" {
		ref.ID = newULID()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	ref.CreatedAt = now
	ref.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refs(id, repository_id, kind, name, commit_hash, created_at, updated_at) VALUES(?,?,?,?,?,?,?)`,
		ref.ID, ref.RepositoryID, ref.Kind, ref.Name, ref.CommitHash, ref.CreatedAt, ref.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Reference{}, apperr.Conflict("%s %q already exists for repository %s", ref.Kind, ref.Name, ref.RepositoryID)
		}
		return Reference{}, fmt.Errorf("refstore create: %w", err)
	}
	return ref, nil
}

func (s *SQLiteStore) Find(ctx context.Context, repositoryID, kind, name string) (Reference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repository_id, kind, name, commit_hash, created_at, updated_at
		 FROM refs WHERE repository_id=? AND kind=? AND name=?`, repositoryID, kind, name)
	ref, err := scanRef(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Reference{}, apperr.NotFound("%s %q not found for repository %s", kind, name, repositoryID)
	}
	if err != nil {
		return Reference{}, err
	}
	return ref, nil
}

func (s *SQLiteStore) UpdateCommitHash(ctx context.Context, id, newHash string) (Reference, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE refs SET commit_hash=?, updated_at=? WHERE id=?`, newHash, now, id)
	if err != nil {
		return Reference{}, fmt.Errorf("refstore update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Reference{}, err
	}
	if n == 0 {
		return Reference{}, apperr.NotFound("reference %s not found", id)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, repository_id, kind, name, commit_hash, created_at, updated_at FROM refs WHERE id=?`, id)
	return scanRef(row.Scan)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refs WHERE id=?`, id)
	if err != nil {
		return false, fmt.Errorf("refstore delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListByRepository(ctx context.Context, repositoryID, kind string) ([]Reference, error) {
	query := `SELECT id, repository_id, kind, name, commit_hash, created_at, updated_at
		FROM refs WHERE repository_id=?`
	args := []any{repositoryID}
	if kind != "" {
		query += ` AND kind=?`
		args = append(args, kind)
	}
	query += ` ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reference
	for rows.Next() {
		ref, err := scanRef(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func scanRef(scan func(dest ...any) error) (Reference, error) {
	var r Reference
	err := scan(&r.ID, &r.RepositoryID, &r.Kind, &r.Name, &r.CommitHash, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Reference{}, err
	}
	return r, nil
}
