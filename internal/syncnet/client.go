package syncnet

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
	"github.com/localpdub/localpdub/internal/logging"
	"github.com/localpdub/localpdub/internal/store"
	"golang.org/x/sync/errgroup"
)

// ClientConfig configures the initiator side.
type ClientConfig struct {
	DeviceID   string
	VaultID    string
	Auth       AuthMethod
	Passphrase string
	Strategy   Strategy
	Timeout    time.Duration
	Logger     logging.Logger
}

// Client drives outbound syncs against a chosen set of peers. One
// connection per peer; peers run concurrently and a failed peer never
// aborts the others.
type Client struct {
	cfg ClientConfig
	log logging.Logger
	st  *store.Store
}

// NewClient builds an initiator working against the live store.
func NewClient(st *store.Store, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Client{cfg: cfg, log: log.With("component", "sync-client"), st: st}
}

// Sync connects to every peer, runs the initiator protocol and aggregates
// one SyncResult. Per-peer failures land in Errors; Success means no peer
// failed.
func (c *Client) Sync(ctx context.Context, peers []discovery.Peer) SyncResult {
	var total SyncResult
	total.Success = true

	if !c.cfg.Auth.supported() {
		total.Success = false
		total.Errors = append(total.Errors,
			fmt.Sprintf("auth mode %s is reserved", c.cfg.Auth))
		return total
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for _, peer := range peers {
		g.Go(func() error {
			res, err := c.syncPeer(ctx, peer)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				total.Success = false
				total.Errors = append(total.Errors,
					fmt.Sprintf("%s (%s): %v", peer.Name, peer.IP, err))
				return nil
			}
			total.EntriesSent += res.EntriesSent
			total.EntriesReceived += res.EntriesReceived
			total.ConflictsResolved += res.ConflictsResolved
			total.Conflicts = append(total.Conflicts, res.Conflicts...)
			return nil
		})
	}
	_ = g.Wait()
	return total
}

// syncPeer runs the full initiator state machine against one peer.
func (c *Client) syncPeer(ctx context.Context, peer discovery.Peer) (SyncResult, error) {
	var res SyncResult

	addr := net.JoinHostPort(peer.IP, strconv.Itoa(peer.Port))
	d := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return res, fmt.Errorf("%w: connect %s: %v", common.ErrNetwork, addr, err)
	}
	defer conn.Close()

	fc := newFrameConn(conn, c.cfg.Timeout)

	req := requestMessage{Type: msgSyncRequest, DeviceID: c.cfg.DeviceID, VaultID: c.cfg.VaultID}
	if err := fc.writeMessage(req); err != nil {
		return res, err
	}

	if c.cfg.Auth == AuthPassphrase {
		if err := c.answerChallenge(fc); err != nil {
			return res, err
		}
	}

	res, err = exchange(fc, c.st, c.cfg.Strategy)
	if err != nil {
		return res, err
	}

	c.log.Info(ctx, "peer synced", "peer", peer.Name, "addr", addr,
		"sent", res.EntriesSent, "received", res.EntriesReceived,
		"conflicts", res.ConflictsResolved)
	return res, nil
}

// answerChallenge reads the 32-byte challenge and returns its HMAC under the
// shared passphrase. A server that dislikes the response just drops the
// connection, which surfaces here as an error on the next read.
func (c *Client) answerChallenge(fc *frameConn) error {
	nonce, err := fc.readRaw(cryptox.ChallengeSize)
	if err != nil {
		return fmt.Errorf("%w: reading challenge: %v", common.ErrAuthFailed, err)
	}
	mac := cryptox.HMACSHA256([]byte(c.cfg.Passphrase), nonce)
	if err := fc.writeRaw(mac); err != nil {
		return fmt.Errorf("%w: sending response: %v", common.ErrAuthFailed, err)
	}
	return nil
}
