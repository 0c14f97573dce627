package discovery

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/localpdub/localpdub/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, deviceID string) *Session {
	t.Helper()
	s := NewSession(Config{
		DeviceID:   deviceID,
		DeviceName: "test-device",
		VaultID:    "/tmp/vault.lpd",
		Timeout:    30 * time.Second,
		Logger:     logging.Discard(),
	})
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func announceFrom(id string, port int) []byte {
	msg := announcement{
		Type:    typeAnnounce,
		Version: WireVersion,
		Device: deviceInfo{
			ID:           id,
			Name:         "other",
			Port:         port,
			VaultID:      "/tmp/vault.lpd",
			LastModified: "2026-01-01T00:00:00Z",
		},
	}
	b, _ := json.Marshal(msg)
	return b
}

func TestHandlePacket_AddsPeer(t *testing.T) {
	s := newTestSession(t, "self")

	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
	s.handlePacket(announceFrom("peer-1", 51821), src)

	peers := s.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, "peer-1", peers[0].ID)
	assert.Equal(t, "127.0.0.1", peers[0].IP)
	assert.Equal(t, 51821, peers[0].Port)
}

func TestHandlePacket_SelfEchoDropped(t *testing.T) {
	s := newTestSession(t, "self")

	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
	s.handlePacket(announceFrom("self", 51821), src)

	assert.Empty(t, s.Peers())
}

func TestHandlePacket_DedupRefreshesInPlace(t *testing.T) {
	s := newTestSession(t, "self")
	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

	s.handlePacket(announceFrom("peer-1", 51821), src)
	s.handlePacket(announceFrom("peer-1", 51825), src)

	peers := s.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, 51825, peers[0].Port)
}

func TestHandlePacket_MalformedDropped(t *testing.T) {
	s := newTestSession(t, "self")
	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

	s.handlePacket([]byte("{not json"), src)
	s.handlePacket([]byte(`{"type":"SOMETHING_ELSE"}`), src)
	s.handlePacket([]byte(`{"type":"LOCALPDUB_ANNOUNCE","device":{"id":""}}`), src)

	assert.Empty(t, s.Peers())
}

func TestAnnounce_RespondsToAnnouncer(t *testing.T) {
	s := newTestSession(t, "self")

	// Pose as a peer: listen on an ephemeral UDP port and announce to the
	// session, declaring our port. The session must unicast a RESPONSE back.
	peerConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer peerConn.Close()
	peerPort := peerConn.LocalAddr().(*net.UDPAddr).Port

	sessionAddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: s.Port()}
	_, err = peerConn.WriteToUDP(announceFrom("peer-2", peerPort), sessionAddr)
	require.NoError(t, err)

	require.NoError(t, peerConn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 4096)
	n, _, err := peerConn.ReadFromUDP(buf)
	require.NoError(t, err)

	var msg announcement
	require.NoError(t, json.Unmarshal(buf[:n], &msg))
	assert.Equal(t, typeResponse, msg.Type)
	assert.Equal(t, "self", msg.Device.ID)
	assert.Equal(t, s.Port(), msg.Device.Port)
}

func TestStop_IdempotentAndClearsPeers(t *testing.T) {
	s := newTestSession(t, "self")
	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
	s.handlePacket(announceFrom("peer-1", 51821), src)
	require.Len(t, s.Peers(), 1)

	s.Stop()
	s.Stop()
	assert.Empty(t, s.Peers())
}

func TestStart_FallbackPorts(t *testing.T) {
	a := newTestSession(t, "a")
	b := newTestSession(t, "b")

	// Both sessions bound somewhere in the ladder, on distinct ports.
	assert.GreaterOrEqual(t, a.Port(), PrimaryPort)
	assert.LessOrEqual(t, b.Port(), fallbackEndPort)
	assert.NotEqual(t, a.Port(), b.Port())
}
