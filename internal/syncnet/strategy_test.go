package syncnet

import (
	"testing"

	"github.com/localpdub/localpdub/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectToSend(t *testing.T) {
	local := []store.Digest{
		{ID: "only-local", Modified: 10, Hash: "aa"},
		{ID: "same", Modified: 10, Hash: "bb"},
		{ID: "newer-local", Modified: 20, Hash: "cc"},
		{ID: "older-local", Modified: 5, Hash: "dd"},
		{ID: "tie", Modified: 10, Hash: "ee"},
	}
	remote := []store.Digest{
		{ID: "same", Modified: 10, Hash: "bb"},
		{ID: "newer-local", Modified: 10, Hash: "cc2"},
		{ID: "older-local", Modified: 10, Hash: "dd2"},
		{ID: "tie", Modified: 10, Hash: "ee2"},
		{ID: "only-remote", Modified: 10, Hash: "ff"},
	}

	got := selectToSend(local, remote)
	assert.Equal(t, []string{"only-local", "newer-local"}, got)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"newest_wins", NewestWins, false},
		{"", NewestWins, false},
		{"local_wins", LocalWins, false},
		{"remote_wins", RemoteWins, false},
		{"duplicate", Duplicate, false},
		{"manual", Manual, false},
		{"bogus", NewestWins, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResolver_Outcomes(t *testing.T) {
	older := &store.Record{ID: "r", Modified: 10}
	newer := &store.Record{ID: "r", Modified: 20}

	assert.Equal(t, store.MergeTakeRemote, NewestWins.resolver()(older, newer))
	assert.Equal(t, store.MergeKeepLocal, NewestWins.resolver()(newer, older))
	assert.Equal(t, store.MergeKeepLocal, NewestWins.resolver()(older, older))

	assert.Equal(t, store.MergeKeepLocal, LocalWins.resolver()(older, newer))
	assert.Equal(t, store.MergeTakeRemote, RemoteWins.resolver()(newer, older))
	assert.Equal(t, store.MergeKeepBoth, Duplicate.resolver()(older, newer))
	assert.Equal(t, store.MergeFlag, Manual.resolver()(older, newer))
}

func TestAuthMethod_Supported(t *testing.T) {
	assert.True(t, AuthNone.supported())
	assert.True(t, AuthPassphrase.supported())
	assert.False(t, AuthQRCode.supported())
	assert.False(t, AuthDevicePairing.supported())
}
