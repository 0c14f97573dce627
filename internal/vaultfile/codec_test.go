package vaultfile

import (
	"testing"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/localpdub/localpdub/internal/cryptox"
	"github.com/localpdub/localpdub/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests derive real Argon2id keys; each call derives one key under a fresh
// random salt.
func deriveFixture(t *testing.T, password string) ([]byte, []byte) {
	t.Helper()
	salt, err := cryptox.RandBytes(cryptox.SaltSize)
	require.NoError(t, err)
	return cryptox.DeriveKey([]byte(password), salt), salt
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := store.New()
	_, err := s.Add(&store.Record{Title: "x", Username: "u", Password: "p"})
	require.NoError(t, err)
	_, err = s.Add(&store.Record{Title: "y", Notes: "multi\nline"})
	require.NoError(t, err)

	key, salt := deriveFixture(t, "hunter22")

	data, err := Encode(s, key, salt)
	require.NoError(t, err)

	back, gotKey, gotSalt, err := Decode(data, []byte("hunter22"))
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, salt, gotSalt)

	want, _ := s.List()
	got, err := back.List()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_WrongPassword(t *testing.T) {
	s := store.New()
	key, salt := deriveFixture(t, "hunter22")

	data, err := Encode(s, key, salt)
	require.NoError(t, err)

	_, _, _, err = Decode(data, []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestDecode_BadMagic(t *testing.T) {
	s := store.New()
	key, salt := deriveFixture(t, "pw")
	data, err := Encode(s, key, salt)
	require.NoError(t, err)

	data[0] = 'X'
	_, _, _, err = Decode(data, []byte("pw"))
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
}

func TestDecode_UnknownVersion(t *testing.T) {
	s := store.New()
	key, salt := deriveFixture(t, "pw")
	data, err := Encode(s, key, salt)
	require.NoError(t, err)

	data[4] = 0xff
	_, _, _, err = Decode(data, []byte("pw"))
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
}

func TestDecode_Truncated(t *testing.T) {
	_, _, _, err := Decode([]byte("LPDV"), []byte("pw"))
	assert.ErrorIs(t, err, common.ErrInvalidFormat)
}

func TestDecode_TamperedCiphertext(t *testing.T) {
	s := store.New()
	key, salt := deriveFixture(t, "pw")
	data, err := Encode(s, key, salt)
	require.NoError(t, err)

	data[len(data)-1] ^= 0xff
	_, _, _, err = Decode(data, []byte("pw"))
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestSalt_Extract(t *testing.T) {
	s := store.New()
	key, salt := deriveFixture(t, "pw")
	data, err := Encode(s, key, salt)
	require.NoError(t, err)

	got, err := Salt(data)
	require.NoError(t, err)
	assert.Equal(t, salt, got)
}

func TestDecodeWithKey(t *testing.T) {
	s := store.New()
	_, err := s.Add(&store.Record{Title: "r"})
	require.NoError(t, err)

	key, salt := deriveFixture(t, "pw")
	data, err := Encode(s, key, salt)
	require.NoError(t, err)

	back, err := DecodeWithKey(data, key)
	require.NoError(t, err)

	list, err := back.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEncode_FreshNoncePerCall(t *testing.T) {
	s := store.New()
	key, salt := deriveFixture(t, "pw")

	a, err := Encode(s, key, salt)
	require.NoError(t, err)
	b, err := Encode(s, key, salt)
	require.NoError(t, err)

	// Same plaintext, same key, but different nonce means different bytes.
	assert.NotEqual(t, a, b)
}
