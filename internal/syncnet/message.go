// Package syncnet implements the LAN sync protocol: a newline-framed JSON
// exchange over TCP in which two peers swap record digests, transfer the
// records the other side is missing, and merge under a conflict strategy.
package syncnet

import (
	"encoding/json"
	"fmt"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/localpdub/localpdub/internal/store"
)

const (
	msgSyncRequest = "SYNC_REQUEST"
	msgDigest      = "DIGEST"
	msgEntries     = "ENTRIES"
)

// envelope is the decode side of every framed message; Entries stays raw
// until the expected type is known.
type envelope struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"device_id,omitempty"`
	VaultID  string          `json:"vault_id,omitempty"`
	Entries  json.RawMessage `json:"entries,omitempty"`
}

type requestMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id"`
	VaultID  string `json:"vault_id"`
}

type digestMessage struct {
	Type    string         `json:"type"`
	Entries []store.Digest `json:"entries"`
}

type entriesMessage struct {
	Type    string          `json:"type"`
	Entries []*store.Record `json:"entries"`
}

func expectType(env *envelope, want string) error {
	if env.Type != want {
		return fmt.Errorf("%w: expected %s, got %q", common.ErrProtocol, want, env.Type)
	}
	return nil
}

func decodeDigests(env *envelope) ([]store.Digest, error) {
	if err := expectType(env, msgDigest); err != nil {
		return nil, err
	}
	var out []store.Digest
	if len(env.Entries) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(env.Entries, &out); err != nil {
		return nil, fmt.Errorf("%w: digest entries: %v", common.ErrProtocol, err)
	}
	return out, nil
}

func decodeEntries(env *envelope) ([]*store.Record, error) {
	if err := expectType(env, msgEntries); err != nil {
		return nil, err
	}
	var out []*store.Record
	if len(env.Entries) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(env.Entries, &out); err != nil {
		return nil, fmt.Errorf("%w: record entries: %v", common.ErrProtocol, err)
	}
	return out, nil
}

// AuthMethod selects the connection handshake.
type AuthMethod int

const (
	// AuthNone skips the handshake (trusted network).
	AuthNone AuthMethod = iota
	// AuthPassphrase runs an HMAC challenge/response over a shared secret.
	AuthPassphrase
	// AuthQRCode is reserved and rejected when selected.
	AuthQRCode
	// AuthDevicePairing is reserved and rejected when selected.
	AuthDevicePairing
)

func (m AuthMethod) String() string {
	switch m {
	case AuthNone:
		return "none"
	case AuthPassphrase:
		return "passphrase"
	case AuthQRCode:
		return "qr_code"
	case AuthDevicePairing:
		return "device_pairing"
	default:
		return fmt.Sprintf("auth(%d)", int(m))
	}
}

func (m AuthMethod) supported() bool {
	return m == AuthNone || m == AuthPassphrase
}

// SyncResult summarizes one sync run across one or more peers.
type SyncResult struct {
	EntriesSent       int
	EntriesReceived   int
	ConflictsResolved int
	Errors            []string
	Success           bool
	// Conflicts holds undecided conflicts when the strategy is Manual.
	Conflicts []store.Conflict
}
