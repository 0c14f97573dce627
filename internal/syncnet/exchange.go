package syncnet

import (
	"github.com/localpdub/localpdub/internal/store"
)

// exchange runs the symmetric half of the protocol both roles share once the
// request and optional auth are done: send DIGEST, receive DIGEST, send
// ENTRIES, receive ENTRIES, merge. Message order is strict; nothing is
// interleaved.
func exchange(fc *frameConn, st *store.Store, strategy Strategy) (SyncResult, error) {
	var res SyncResult

	local, err := st.Digests()
	if err != nil {
		return res, err
	}
	if err := fc.writeMessage(digestMessage{Type: msgDigest, Entries: local}); err != nil {
		return res, err
	}

	env, err := fc.readMessage()
	if err != nil {
		return res, err
	}
	remote, err := decodeDigests(env)
	if err != nil {
		return res, err
	}

	toSend, err := fetchRecords(st, selectToSend(local, remote))
	if err != nil {
		return res, err
	}
	if err := fc.writeMessage(entriesMessage{Type: msgEntries, Entries: toSend}); err != nil {
		return res, err
	}
	res.EntriesSent = len(toSend)

	env, err = fc.readMessage()
	if err != nil {
		return res, err
	}
	incoming, err := decodeEntries(env)
	if err != nil {
		return res, err
	}

	stats, err := st.Merge(incoming, strategy.resolver())
	if err != nil {
		return res, err
	}
	res.EntriesReceived = len(incoming)
	res.ConflictsResolved = stats.Conflicts - len(stats.Flagged)
	res.Conflicts = stats.Flagged
	res.Success = true
	return res, nil
}

// fetchRecords resolves digest ids back to full record copies. A record
// deleted between digest and fetch is simply skipped.
func fetchRecords(st *store.Store, ids []string) ([]*store.Record, error) {
	out := make([]*store.Record, 0, len(ids))
	for _, id := range ids {
		r, err := st.Get(id)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
