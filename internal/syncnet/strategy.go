package syncnet

import (
	"fmt"

	"github.com/localpdub/localpdub/internal/store"
)

// Strategy selects how an incoming record that conflicts with a local one is
// resolved. For NewestWins, LocalWins and RemoteWins the outcome depends
// only on (id, modified), so concurrent syncs converge regardless of
// arrival order.
type Strategy int

const (
	// NewestWins keeps the record with the greater modified timestamp;
	// ties keep the local copy on both peers.
	NewestWins Strategy = iota
	// LocalWins never replaces an existing record.
	LocalWins
	// RemoteWins always replaces on conflict.
	RemoteWins
	// Duplicate keeps the local record and inserts the remote one under a
	// fresh id.
	Duplicate
	// Manual makes no change and surfaces the conflict list to the caller.
	Manual
)

func (s Strategy) String() string {
	switch s {
	case NewestWins:
		return "newest_wins"
	case LocalWins:
		return "local_wins"
	case RemoteWins:
		return "remote_wins"
	case Duplicate:
		return "duplicate"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a config string onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "newest_wins", "":
		return NewestWins, nil
	case "local_wins":
		return LocalWins, nil
	case "remote_wins":
		return RemoteWins, nil
	case "duplicate":
		return Duplicate, nil
	case "manual":
		return Manual, nil
	default:
		return NewestWins, fmt.Errorf("unknown sync strategy %q", s)
	}
}

// resolver returns the merge decision function handed to the store.
func (s Strategy) resolver() func(local, remote *store.Record) store.MergeOutcome {
	switch s {
	case LocalWins:
		return func(local, remote *store.Record) store.MergeOutcome {
			return store.MergeKeepLocal
		}
	case RemoteWins:
		return func(local, remote *store.Record) store.MergeOutcome {
			return store.MergeTakeRemote
		}
	case Duplicate:
		return func(local, remote *store.Record) store.MergeOutcome {
			return store.MergeKeepBoth
		}
	case Manual:
		return func(local, remote *store.Record) store.MergeOutcome {
			return store.MergeFlag
		}
	default:
		return func(local, remote *store.Record) store.MergeOutcome {
			if remote.Modified > local.Modified {
				return store.MergeTakeRemote
			}
			return store.MergeKeepLocal
		}
	}
}

// selectToSend picks the local records the peer is missing or holds an older
// copy of: unknown ids always go; matching hashes never go; on a hash
// mismatch the strictly newer side sends. Equal timestamps keep each side's
// own copy, which keeps NewestWins deterministic on both peers.
func selectToSend(local, remote []store.Digest) []string {
	remoteByID := make(map[string]store.Digest, len(remote))
	for _, d := range remote {
		remoteByID[d.ID] = d
	}

	var ids []string
	for _, l := range local {
		r, ok := remoteByID[l.ID]
		switch {
		case !ok:
			ids = append(ids, l.ID)
		case r.Hash == l.Hash:
		case l.Modified > r.Modified:
			ids = append(ids, l.ID)
		}
	}
	return ids
}
