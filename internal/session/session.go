// Package session orchestrates the vault lifecycle: open → mutate → save →
// optional sync → close. It is the exclusive owner of the derived key and
// the only component that writes the vault file.
package session

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/localpdub/localpdub/internal/cryptox"
	"github.com/localpdub/localpdub/internal/discovery"
	"github.com/localpdub/localpdub/internal/history"
	"github.com/localpdub/localpdub/internal/logging"
	"github.com/localpdub/localpdub/internal/store"
	"github.com/localpdub/localpdub/internal/syncnet"
	"github.com/localpdub/localpdub/internal/vaultfile"
)

// Config carries session identity and sync settings.
type Config struct {
	VaultPath  string
	DeviceID   string
	DeviceName string
	SyncPort   int
	Logger     logging.Logger

	// Journal, when set, receives one durable entry per sync run.
	Journal *history.Journal
}

// Session holds one open vault. All methods are safe for concurrent use.
type Session struct {
	cfg Config
	log logging.Logger

	mu     sync.Mutex
	st     *store.Store
	key    []byte
	salt   []byte
	server *syncnet.Server

	histMu  sync.Mutex
	history []syncnet.SyncResult
}

// New builds a closed session; call Open or Create next.
func New(cfg Config) *Session {
	if cfg.SyncPort == 0 {
		cfg.SyncPort = syncnet.DefaultPort
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = store.NewID()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Session{cfg: cfg, log: log.With("component", "session")}
}

// Open decodes the vault file with password. The derived key is held for
// the lifetime of the session.
func (s *Session) Open(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != nil {
		return fmt.Errorf("vault already open")
	}

	st, key, salt, err := vaultfile.Load(s.cfg.VaultPath, password)
	if err != nil {
		return err
	}
	s.st = st
	s.key = key
	s.salt = salt
	s.log.Info(context.Background(), "vault opened",
		"path", s.cfg.VaultPath, "entries", st.Metadata().EntryCount)
	return nil
}

// Create makes a new empty vault at the configured path and opens it.
func (s *Session) Create(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != nil {
		return fmt.Errorf("vault already open")
	}

	salt, err := cryptox.RandBytes(cryptox.SaltSize)
	if err != nil {
		return err
	}
	key := cryptox.DeriveKey([]byte(password), salt)

	st := store.New()
	if err := vaultfile.Save(s.cfg.VaultPath, st, key, salt); err != nil {
		cryptox.Zeroize(key)
		return err
	}
	s.st = st
	s.key = key
	s.salt = salt
	s.log.Info(context.Background(), "vault created", "path", s.cfg.VaultPath)
	return nil
}

// Save re-encrypts the store and atomically replaces the file, keeping the
// existing salt so the key stays stable.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Session) saveLocked() error {
	if s.st == nil {
		return common.ErrNotOpen
	}
	return vaultfile.Save(s.cfg.VaultPath, s.st, s.key, s.salt)
}

// Reload re-decodes the file with the cached key and swaps the contents
// into the live store, so the running responder sees the new state.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil {
		return common.ErrNotOpen
	}

	fresh, err := vaultfile.LoadWithKey(s.cfg.VaultPath, s.key)
	if err != nil {
		return err
	}
	return s.st.ReplaceDocument(fresh)
}

// Close stops the responder, zeroizes the key and drops the store.
// Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	// Join the responder before tearing down its store reference.
	if server != nil {
		server.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		cryptox.Zeroize(s.key)
		s.key = nil
	}
	s.salt = nil
	if s.st != nil {
		s.st.Close()
		s.st = nil
	}
}

// Store exposes the live record store.
func (s *Session) Store() (*store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil {
		return nil, common.ErrNotOpen
	}
	return s.st, nil
}

// SyncOptions selects strategy and authentication for one sync run.
type SyncOptions struct {
	Strategy   syncnet.Strategy
	Auth       syncnet.AuthMethod
	Passphrase string
}

// Sync starts the responder if needed, drives the initiator against each
// peer, persists the merged store when records arrived, and records the
// result in both the in-memory history and the journal.
func (s *Session) Sync(ctx context.Context, peers []discovery.Peer, opts SyncOptions) (syncnet.SyncResult, error) {
	s.mu.Lock()
	st := s.st
	s.mu.Unlock()
	if st == nil {
		return syncnet.SyncResult{}, common.ErrNotOpen
	}

	if err := s.ensureResponder(st, opts); err != nil {
		return syncnet.SyncResult{}, err
	}

	client := syncnet.NewClient(st, syncnet.ClientConfig{
		DeviceID:   s.cfg.DeviceID,
		VaultID:    s.cfg.VaultPath,
		Auth:       opts.Auth,
		Passphrase: opts.Passphrase,
		Strategy:   opts.Strategy,
		Logger:     s.log,
	})

	started := time.Now()
	result := client.Sync(ctx, peers)

	if result.EntriesReceived > 0 {
		if err := s.Save(); err != nil {
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("saving merged vault: %v", err))
		}
	}

	s.recordResult(ctx, started, len(peers), result)
	return result, nil
}

// StartResponder brings up the TCP responder ahead of an inbound-only
// session (the device that waits to be synced to).
func (s *Session) StartResponder(opts SyncOptions) error {
	s.mu.Lock()
	st := s.st
	s.mu.Unlock()
	if st == nil {
		return common.ErrNotOpen
	}
	return s.ensureResponder(st, opts)
}

func (s *Session) ensureResponder(st *store.Store, opts SyncOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return nil
	}

	server := syncnet.NewServer(st, syncnet.ServerConfig{
		Auth:       opts.Auth,
		Passphrase: opts.Passphrase,
		Strategy:   opts.Strategy,
		Logger:     s.log,
		OnSync:     s.onInboundSync,
	})
	// A negative port requests an ephemeral one (tests).
	port := s.cfg.SyncPort
	if port < 0 {
		port = 0
	}
	if err := server.Start(":" + strconv.Itoa(port)); err != nil {
		return err
	}
	s.server = server
	return nil
}

// onInboundSync persists the store after a responder-side merge. The
// responder mutates only the in-memory store; writing stays here.
func (s *Session) onInboundSync(res syncnet.SyncResult) {
	ctx := context.Background()
	if res.EntriesReceived > 0 {
		if err := s.Save(); err != nil {
			s.log.Error(ctx, "saving vault after inbound sync failed", "err", err)
		}
	}
	s.recordResult(ctx, time.Now(), 1, res)
}

// ResponderAddr reports the bound responder address, or nil when the
// responder is not running.
func (s *Session) ResponderAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// History returns the sync results of this session, oldest first.
func (s *Session) History() []syncnet.SyncResult {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	out := make([]syncnet.SyncResult, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) recordResult(ctx context.Context, started time.Time, peers int, res syncnet.SyncResult) {
	s.histMu.Lock()
	s.history = append(s.history, res)
	s.histMu.Unlock()

	if s.cfg.Journal == nil {
		return
	}
	err := s.cfg.Journal.Append(ctx, &history.Entry{
		StartedAt:         started,
		Peers:             peers,
		EntriesSent:       res.EntriesSent,
		EntriesReceived:   res.EntriesReceived,
		ConflictsResolved: res.ConflictsResolved,
		Errors:            res.Errors,
		Success:           res.Success,
	})
	if err != nil {
		s.log.Warn(ctx, "journal append failed", "err", err)
	}
}
