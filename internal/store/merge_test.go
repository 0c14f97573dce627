package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newestWins(local, remote *Record) MergeOutcome {
	if remote.Modified > local.Modified {
		return MergeTakeRemote
	}
	return MergeKeepLocal
}

func TestMerge_InsertsNewIDs(t *testing.T) {
	s := New()

	stats, err := s.Merge([]*Record{
		{ID: "r1", Title: "a", Modified: 10},
		{ID: "r2", Title: "b", Modified: 20},
	}, newestWins)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Inserted)
	assert.Zero(t, stats.Conflicts)

	list, _ := s.List()
	assert.Len(t, list, 2)
}

func TestMerge_NewestWins(t *testing.T) {
	s := New()
	require.NoError(t, s.ReplaceAll([]*Record{{ID: "r1", Title: "a1", Modified: 100}}))

	stats, err := s.Merge([]*Record{
		{ID: "r1", Title: "b1", Modified: 200},
		{ID: "r2", Title: "b2", Modified: 50},
	}, newestWins)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.Conflicts)

	r1, _ := s.Get("r1")
	assert.Equal(t, "b1", r1.Title)
	r2, _ := s.Get("r2")
	assert.Equal(t, "b2", r2.Title)
}

func TestMerge_TieKeepsLocal(t *testing.T) {
	s := New()
	require.NoError(t, s.ReplaceAll([]*Record{{ID: "r1", Title: "local", Modified: 100}}))

	stats, err := s.Merge([]*Record{{ID: "r1", Title: "remote", Modified: 100}}, newestWins)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Conflicts)
	assert.Zero(t, stats.Applied)

	r1, _ := s.Get("r1")
	assert.Equal(t, "local", r1.Title)
}

func TestMerge_KeepBoth(t *testing.T) {
	s := New()
	require.NoError(t, s.ReplaceAll([]*Record{{ID: "r1", Title: "local", Modified: 100}}))

	stats, err := s.Merge([]*Record{{ID: "r1", Title: "remote", Modified: 200}},
		func(local, remote *Record) MergeOutcome { return MergeKeepBoth })
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	list, _ := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "local", list[0].Title)
	assert.Equal(t, "remote", list[1].Title)
	assert.NotEqual(t, "r1", list[1].ID)
}

func TestMerge_Flag(t *testing.T) {
	s := New()
	require.NoError(t, s.ReplaceAll([]*Record{{ID: "r1", Title: "local", Modified: 100}}))

	stats, err := s.Merge([]*Record{{ID: "r1", Title: "remote", Modified: 200}},
		func(local, remote *Record) MergeOutcome { return MergeFlag })
	require.NoError(t, err)

	require.Len(t, stats.Flagged, 1)
	assert.Equal(t, "local", stats.Flagged[0].Local.Title)
	assert.Equal(t, "remote", stats.Flagged[0].Remote.Title)

	r1, _ := s.Get("r1")
	assert.Equal(t, "local", r1.Title)
}

func TestMerge_OrderIndependentForNewestWins(t *testing.T) {
	incoming := []*Record{
		{ID: "r1", Title: "v2", Modified: 200},
		{ID: "r2", Title: "new", Modified: 50},
	}

	run := func(order []*Record) []*Record {
		s := New()
		require.NoError(t, s.ReplaceAll([]*Record{{ID: "r1", Title: "v1", Modified: 100}}))
		_, err := s.Merge(order, newestWins)
		require.NoError(t, err)
		list, _ := s.List()
		return list
	}

	a := run(incoming)
	b := run([]*Record{incoming[1], incoming[0]})

	byID := func(list []*Record) map[string]string {
		m := make(map[string]string)
		for _, r := range list {
			m[r.ID] = r.Title
		}
		return m
	}
	assert.Equal(t, byID(a), byID(b))
}
