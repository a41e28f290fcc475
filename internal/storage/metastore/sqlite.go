package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

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
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS objects (
			hash TEXT PRIMARY KEY,
			byte_size INTEGER NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('blob','tree','commit')),
			uploader_id TEXT NOT NULL,
			repository_id TEXT NOT NULL,
			original_name TEXT,
			content_type TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_repository ON objects(repository_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("metastore schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, o StoredObject) (StoredObject, error) {
	if o.CreatedAt == "" {
		o.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO objects(hash, byte_size, kind, uploader_id, repository_id, original_name, content_type, created_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		o.Hash, o.ByteSize, o.Kind, o.UploaderID, o.RepositoryID,
		nullable(o.OriginalName), nullable(o.ContentType), o.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return StoredObject{}, apperr.Conflict("object %s already recorded", o.Hash)
		}
		return StoredObject{}, fmt.Errorf("metastore insert %s: %w", o.Hash, err)
	}
	return o, nil
}

func (s *SQLiteStore) Get(ctx context.Context, hash string) (StoredObject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, byte_size, kind, uploader_id, repository_id, original_name, content_type, created_at
		 FROM objects WHERE hash=?`, hash)
	o, err := scanObject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredObject{}, apperr.NotFound("object %s not found", hash)
	}
	if err != nil {
		return StoredObject{}, err
	}
	return o, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, hash string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM objects WHERE hash=?`, hash)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) ListByRepository(ctx context.Context, repositoryID, uploaderID string) ([]StoredObject, error) {
	query := `SELECT hash, byte_size, kind, uploader_id, repository_id, original_name, content_type, created_at
		FROM objects WHERE repository_id=?`
	args := []any{repositoryID}
	if uploaderID != "" {
		query += ` AND uploader_id=?`
		args = append(args, uploaderID)
	}
	query += ` ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredObject
	for rows.Next() {
		o, err := scanObject(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanObject(scan func(dest ...any) error) (StoredObject, error) {
	var o StoredObject
	var name, ctype sql.NullString
	err := scan(&o.Hash, &o.ByteSize, &o.Kind, &o.UploaderID, &o.RepositoryID, &name, &ctype, &o.CreatedAt)
	if err != nil {
		return StoredObject{}, err
	}
	o.OriginalName = name.String
	o.ContentType = ctype.String
	return o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
