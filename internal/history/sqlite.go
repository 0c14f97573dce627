package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/localpdub/localpdub/internal/dbx"
)

// Entry is one journaled sync run.
type Entry struct {
	ID                int64
	StartedAt         time.Time
	Peers             int
	EntriesSent       int
	EntriesReceived   int
	ConflictsResolved int
	Errors            []string
	Success           bool
}

// errors are stored as one newline-joined column; newlines cannot occur in
// peer error strings.
const errorsSeparator = "\n"

// SQLiteRepository persists journal entries using a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert appends one entry.
func (r *SQLiteRepository) Insert(ctx context.Context, e *Entry) error {
	query := `INSERT INTO sync_history
		(started_at, peers, entries_sent, entries_received, conflicts_resolved, errors, success)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	success := 0
	if e.Success {
		success = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		e.StartedAt.Unix(), e.Peers, e.EntriesSent, e.EntriesReceived,
		e.ConflictsResolved, strings.Join(e.Errors, errorsSeparator), success)
	if err != nil {
		return fmt.Errorf("failed to insert sync history row: %w", err)
	}
	return nil
}

// GetRecent lists up to limit entries, newest first.
func (r *SQLiteRepository) GetRecent(ctx context.Context, limit int) ([]*Entry, error) {
	query := `SELECT id, started_at, peers, entries_sent, entries_received,
		conflicts_resolved, errors, success
		FROM sync_history ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync history: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		var (
			e         Entry
			startedAt int64
			errorsCol string
			success   int
		)
		if err := rows.Scan(&e.ID, &startedAt, &e.Peers, &e.EntriesSent,
			&e.EntriesReceived, &e.ConflictsResolved, &errorsCol, &success); err != nil {
			return nil, err
		}
		e.StartedAt = time.Unix(startedAt, 0).UTC()
		if errorsCol != "" {
			e.Errors = strings.Split(errorsCol, errorsSeparator)
		}
		e.Success = success == 1
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
