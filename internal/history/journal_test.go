package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_AppendAndRecent(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, &Entry{
		StartedAt:         time.Unix(1000, 0),
		Peers:             2,
		EntriesSent:       3,
		EntriesReceived:   1,
		ConflictsResolved: 1,
		Success:           true,
	}))
	require.NoError(t, j.Append(ctx, &Entry{
		StartedAt: time.Unix(2000, 0),
		Peers:     1,
		Errors:    []string{"laptop (192.168.1.7): connection refused"},
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, int64(2000), entries[0].StartedAt.Unix())
	assert.False(t, entries[0].Success)
	require.Len(t, entries[0].Errors, 1)
	assert.Contains(t, entries[0].Errors[0], "connection refused")

	assert.True(t, entries[1].Success)
	assert.Equal(t, 3, entries[1].EntriesSent)
	assert.Empty(t, entries[1].Errors)
}

func TestJournal_RecentLimit(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(ctx, &Entry{StartedAt: time.Unix(int64(i), 0)}))
	}

	entries, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestJournal_ReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "history.db")
	ctx := context.Background()

	j, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, &Entry{StartedAt: time.Unix(1, 0), Success: true}))
	require.NoError(t, j.Close())

	j2, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer j2.Close()

	entries, err := j2.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
