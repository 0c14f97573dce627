package store

import "github.com/localpdub/localpdub/internal/common"

// MergeOutcome is a resolver's decision for one conflicting id.
type MergeOutcome int

const (
	// MergeKeepLocal leaves the local record untouched.
	MergeKeepLocal MergeOutcome = iota
	// MergeTakeRemote replaces the local record with the incoming one.
	MergeTakeRemote
	// MergeKeepBoth keeps the local record and inserts the incoming one
	// under a fresh id.
	MergeKeepBoth
	// MergeFlag records the conflict for the caller and changes nothing.
	MergeFlag
)

// Conflict pairs the two sides of a flagged conflict.
type Conflict struct {
	Local  *Record
	Remote *Record
}

// MergeStats summarizes one Merge call.
type MergeStats struct {
	// Inserted counts records that were new to this store.
	Inserted int
	// Applied counts local records replaced by their remote version.
	Applied int
	// Conflicts counts incoming records whose id already existed locally.
	Conflicts int
	// Flagged holds conflicts the resolver declined to decide.
	Flagged []Conflict
}

// Merge applies incoming records under resolve. Records with unknown ids are
// inserted as-is; for known ids the resolver decides. The whole merge runs
// under the store lock so concurrent syncs serialize here.
func (s *Store) Merge(incoming []*Record, resolve func(local, remote *Record) MergeOutcome) (MergeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats MergeStats
	if !s.open {
		return stats, common.ErrNotOpen
	}

	byID := make(map[string]int, len(s.records))
	for i, r := range s.records {
		byID[r.ID] = i
	}

	for _, remote := range incoming {
		if remote == nil || remote.ID == "" {
			continue
		}
		i, exists := byID[remote.ID]
		if !exists {
			c := remote.Clone()
			s.records = append(s.records, c)
			byID[c.ID] = len(s.records) - 1
			stats.Inserted++
			continue
		}

		stats.Conflicts++
		switch resolve(s.records[i], remote) {
		case MergeTakeRemote:
			s.records[i] = remote.Clone()
			stats.Applied++
		case MergeKeepBoth:
			c := remote.Clone()
			c.ID = NewID()
			s.records = append(s.records, c)
			byID[c.ID] = len(s.records) - 1
			stats.Inserted++
		case MergeFlag:
			stats.Flagged = append(stats.Flagged, Conflict{
				Local:  s.records[i].Clone(),
				Remote: remote.Clone(),
			})
		case MergeKeepLocal:
		}
	}

	if stats.Inserted > 0 || stats.Applied > 0 {
		s.touch()
	}
	return stats, nil
}
