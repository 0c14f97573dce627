package syncnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/localpdub/localpdub/internal/cryptox"
	"github.com/localpdub/localpdub/internal/logging"
	"github.com/localpdub/localpdub/internal/store"
)

const (
	// DefaultPort is the TCP port the responder listens on.
	DefaultPort = 51820
	// DefaultTimeout is the per-connection send/receive deadline.
	DefaultTimeout = 30 * time.Second
	// maxConnections bounds concurrent responder handlers.
	maxConnections = 10
)

// ServerConfig configures the responder side.
type ServerConfig struct {
	Auth       AuthMethod
	Passphrase string
	Strategy   Strategy
	Timeout    time.Duration
	Logger     logging.Logger

	// OnSync, when set, observes the result of every handled connection.
	// The coordinator uses it to save and journal after merges.
	OnSync func(SyncResult)
}

// Server accepts inbound sync connections and runs the responder protocol
// against the live in-memory store. It never touches the vault file; the
// coordinator is the sole writer.
type Server struct {
	cfg ServerConfig
	log logging.Logger
	st  *store.Store

	ln       net.Listener
	sem      chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer builds a responder bound to the given store.
func NewServer(st *store.Store, cfg ServerConfig) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		cfg:  cfg,
		log:  log.With("component", "sync-server"),
		st:   st,
		sem:  make(chan struct{}, maxConnections),
		done: make(chan struct{}),
	}
}

// Start binds addr (e.g. ":51820") and launches the accept loop.
func (s *Server) Start(addr string) error {
	if !s.cfg.Auth.supported() {
		return fmt.Errorf("%w: auth mode %s is reserved", common.ErrAuthFailed, s.cfg.Auth)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	s.ln = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info(context.Background(), "responder listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener and waits for in-flight handlers. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.ln != nil {
			s.ln.Close()
		}
	})
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Warn(context.Background(), "accept failed", "err", err)
			continue
		}

		s.sem <- struct{}{}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer conn.Close()
			s.handleConn(conn)
		}()
	}
}

// handleConn drives the responder state machine: REQUEST → auth → DIGEST
// exchange → ENTRIES exchange → apply. Any error leaves the local store
// untouched for this peer's contribution.
func (s *Server) handleConn(conn net.Conn) {
	ctx := context.Background()
	remote := conn.RemoteAddr().String()
	fc := newFrameConn(conn, s.cfg.Timeout)

	env, err := fc.readMessage()
	if err != nil {
		s.log.Warn(ctx, "bad sync request", "peer", remote, "err", err)
		return
	}
	if err := expectType(env, msgSyncRequest); err != nil {
		s.log.Warn(ctx, "unexpected opening message", "peer", remote, "err", err)
		return
	}
	s.log.Info(ctx, "sync connection received", "peer", remote, "device", env.DeviceID)

	if s.cfg.Auth == AuthPassphrase {
		if err := s.challenge(fc); err != nil {
			s.log.Warn(ctx, "authentication failed", "peer", remote, "err", err)
			return
		}
	}

	res, err := exchange(fc, s.st, s.cfg.Strategy)
	if err != nil {
		s.log.Warn(ctx, "sync exchange failed", "peer", remote, "err", err)
		return
	}

	s.log.Info(ctx, "sync handled", "peer", remote,
		"sent", res.EntriesSent, "received", res.EntriesReceived,
		"conflicts", res.ConflictsResolved)

	if s.cfg.OnSync != nil {
		s.cfg.OnSync(res)
	}
}

// challenge sends 32 random bytes and verifies the HMAC-SHA256 response in
// constant time.
func (s *Server) challenge(fc *frameConn) error {
	nonce, err := cryptox.RandBytes(cryptox.ChallengeSize)
	if err != nil {
		return err
	}
	if err := fc.writeRaw(nonce); err != nil {
		return err
	}

	resp, err := fc.readRaw(cryptox.ChallengeSize)
	if err != nil {
		return err
	}

	expected := cryptox.HMACSHA256([]byte(s.cfg.Passphrase), nonce)
	if !cryptox.EqualConstantTime(resp, expected) {
		return common.ErrAuthFailed
	}
	return nil
}
