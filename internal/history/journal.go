// Package history persists one row per sync run so past sessions remain
// inspectable after the process exits. The spec-level in-memory history
// lives with the session; this journal is the durable append-only log.
package history

import (
	"context"
	"database/sql"

	"github.com/localpdub/localpdub/internal/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Journal is a sqlite-backed log of sync results.
type Journal struct {
	db   *sql.DB
	repo *SQLiteRepository
}

// Open opens (or creates) the journal database at dsn and applies pending
// migrations.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, repo: NewSQLiteRepository(db)}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Append records one sync run.
func (j *Journal) Append(ctx context.Context, e *Entry) error {
	return j.repo.Insert(ctx, e)
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	return j.repo.GetRecent(ctx, limit)
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
