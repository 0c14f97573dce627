// Package discovery finds LocalPDub peers on the local network. A session
// broadcasts JSON announce packets over UDP and listens for announces from
// other devices, keeping a deduplicated peer table for the sync engine.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/localpdub/localpdub/internal/logging"
)

const (
	// PrimaryPort is the broadcast target and preferred listen port.
	PrimaryPort = 51820
	// fallback listen ports tried in order when the primary is taken
	fallbackEndPort = 51829

	// WireVersion is the announce message version.
	WireVersion = 1

	typeAnnounce = "LOCALPDUB_ANNOUNCE"
	typeResponse = "LOCALPDUB_RESPONSE"

	announceInterval = 2 * time.Second
	readPollInterval = 1 * time.Second

	// DefaultTimeout bounds a discovery session.
	DefaultTimeout = 300 * time.Second
)

// Peer is one discovered device. Peers are keyed by ID; a later announce
// replaces earlier state.
type Peer struct {
	ID           string
	Name         string
	IP           string
	Port         int
	VaultID      string
	LastModified string
	PublicKey    string
}

type deviceInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Port         int    `json:"port"`
	VaultID      string `json:"vault_id"`
	LastModified string `json:"last_modified"`
}

type authInfo struct {
	Challenge string `json:"challenge"`
	PublicKey string `json:"public_key"`
}

type announcement struct {
	Type    string     `json:"type"`
	Version int        `json:"version"`
	Device  deviceInfo `json:"device"`
	Auth    authInfo   `json:"auth"`
}

// Config carries the identity a session announces.
type Config struct {
	DeviceID   string
	DeviceName string
	VaultID    string
	Timeout    time.Duration
	Logger     logging.Logger
}

// Session is one bounded announce-and-listen run. Start binds the sockets
// and launches the announcer and listener; Stop is idempotent, joins both
// and clears the peer table.
type Session struct {
	cfg Config
	log logging.Logger

	listener *net.UDPConn
	sender   *net.UDPConn
	port     int

	mu    sync.Mutex
	peers map[string]Peer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSession prepares a session; nothing is bound until Start.
func NewSession(cfg Config) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Session{
		cfg:   cfg,
		log:   log.With("component", "discovery"),
		peers: make(map[string]Peer),
		done:  make(chan struct{}),
	}
}

// Start binds the listen socket, trying the primary port then the fallback
// range, opens the send socket and launches both background loops.
func (s *Session) Start() error {
	var bindErr error
	for port := PrimaryPort; port <= fallbackEndPort; port++ {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
		if err != nil {
			bindErr = err
			continue
		}
		s.listener = conn
		s.port = port
		break
	}
	if s.listener == nil {
		return fmt.Errorf("%w: no discovery port available: %v", common.ErrNetwork, bindErr)
	}

	sender, err := net.ListenUDP("udp4", nil)
	if err != nil {
		s.listener.Close()
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	s.sender = sender

	s.wg.Add(2)
	go s.announceLoop()
	go s.listenLoop()

	s.log.Info(context.Background(), "discovery session started", "port", s.port)
	return nil
}

// Port returns the bound listen port.
func (s *Session) Port() int { return s.port }

// Stop signals both loops, closes the sockets so blocked reads return,
// joins, and clears the peer table. Safe to call more than once.
func (s *Session) Stop() {
	s.signalStop()
	s.wg.Wait()

	s.mu.Lock()
	s.peers = make(map[string]Peer)
	s.mu.Unlock()
}

func (s *Session) signalStop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		if s.sender != nil {
			s.sender.Close()
		}
	})
}

// Peers returns a snapshot of the current peer table.
func (s *Session) Peers() []Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}

func (s *Session) announceLoop() {
	defer s.wg.Done()

	deadline := time.NewTimer(s.cfg.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(announceInterval)
	defer ticker.Stop()

	s.broadcast()
	for {
		select {
		case <-ticker.C:
			s.broadcast()
		case <-deadline.C:
			s.log.Info(context.Background(), "discovery session timed out")
			s.signalStop()
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) broadcast() {
	msg, err := json.Marshal(s.announcement(typeAnnounce))
	if err != nil {
		return
	}
	addr := &net.UDPAddr{IP: net.IPv4bcast, Port: PrimaryPort}
	if _, err := s.sender.WriteToUDP(msg, addr); err != nil && !isClosed(err) {
		// Single failed sends are survivable; the next tick retries.
		s.log.Warn(context.Background(), "broadcast failed", "err", err)
	}
}

func (s *Session) listenLoop() {
	defer s.wg.Done()

	buf := make([]byte, 4096)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		_ = s.listener.SetReadDeadline(time.Now().Add(readPollInterval))
		n, src, err := s.listener.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if isClosed(err) {
				return
			}
			s.log.Warn(context.Background(), "listener read failed", "err", err)
			continue
		}
		s.handlePacket(buf[:n], src)
	}
}

// handlePacket parses one datagram, refreshes the peer table and unicasts a
// response back to announcers. Malformed packets are dropped silently.
func (s *Session) handlePacket(data []byte, src *net.UDPAddr) {
	var msg announcement
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Type != typeAnnounce && msg.Type != typeResponse {
		return
	}
	// Our own broadcasts come back to us; never list ourselves.
	if msg.Device.ID == "" || msg.Device.ID == s.cfg.DeviceID {
		return
	}

	peer := Peer{
		ID:           msg.Device.ID,
		Name:         msg.Device.Name,
		IP:           src.IP.String(),
		Port:         msg.Device.Port,
		VaultID:      msg.Device.VaultID,
		LastModified: msg.Device.LastModified,
		PublicKey:    msg.Auth.PublicKey,
	}

	s.mu.Lock()
	_, known := s.peers[peer.ID]
	s.peers[peer.ID] = peer
	s.mu.Unlock()

	if !known {
		s.log.Info(context.Background(), "peer discovered", "id", peer.ID, "name", peer.Name, "addr", peer.IP)
	}

	if msg.Type == typeAnnounce {
		s.respond(src.IP, msg.Device.Port)
	}
}

func (s *Session) respond(ip net.IP, port int) {
	msg, err := json.Marshal(s.announcement(typeResponse))
	if err != nil {
		return
	}
	addr := &net.UDPAddr{IP: ip, Port: port}
	if _, err := s.sender.WriteToUDP(msg, addr); err != nil && !isClosed(err) {
		s.log.Warn(context.Background(), "response send failed", "err", err)
	}
}

func (s *Session) announcement(msgType string) announcement {
	return announcement{
		Type:    msgType,
		Version: WireVersion,
		Device: deviceInfo{
			ID:           s.cfg.DeviceID,
			Name:         s.cfg.DeviceName,
			Port:         s.port,
			VaultID:      s.cfg.VaultID,
			LastModified: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
