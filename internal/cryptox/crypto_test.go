package cryptox

import (
	"bytes"
	"testing"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandBytes(t *testing.T) {
	a, err := RandBytes(32)
	require.NoError(t, err)
	b, err := RandBytes(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
	assert.NotEqual(t, a, b)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt-fixed-salt-fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, KeySize)
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveKey(password, []byte("salt-1"))
	key2 := DeriveKey(password, []byte("salt-2"))
	assert.NotEqual(t, key1, key2)

	key3 := DeriveKey([]byte("other-password"), []byte("salt-1"))
	assert.NotEqual(t, key1, key3)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key, err := RandBytes(KeySize)
	require.NoError(t, err)
	nonce, err := RandBytes(NonceSize)
	require.NoError(t, err)

	plaintext := []byte(`{"entries":[]}`)

	sealed, err := Seal(plaintext, key, nonce)
	require.NoError(t, err)
	assert.Len(t, sealed, len(plaintext)+TagSize)

	opened, err := Open(sealed, key, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpen_TamperedCiphertext(t *testing.T) {
	key, _ := RandBytes(KeySize)
	nonce, _ := RandBytes(NonceSize)

	sealed, err := Seal([]byte("payload"), key, nonce)
	require.NoError(t, err)

	sealed[0] ^= 0xff
	_, err = Open(sealed, key, nonce)
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestOpen_WrongKey(t *testing.T) {
	key, _ := RandBytes(KeySize)
	wrong, _ := RandBytes(KeySize)
	nonce, _ := RandBytes(NonceSize)

	sealed, err := Seal([]byte("payload"), key, nonce)
	require.NoError(t, err)

	_, err = Open(sealed, wrong, nonce)
	assert.ErrorIs(t, err, common.ErrInvalidPassword)
}

func TestHMACSHA256(t *testing.T) {
	key := []byte("open-sesame")
	msg := []byte("challenge-bytes")

	m1 := HMACSHA256(key, msg)
	m2 := HMACSHA256(key, msg)
	assert.Equal(t, m1, m2)
	assert.Len(t, m1, 32)

	m3 := HMACSHA256([]byte("oops"), msg)
	assert.NotEqual(t, m1, m3)
}

func TestEqualConstantTime(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	assert.True(t, EqualConstantTime(a, []byte{1, 2, 3, 4}))
	assert.False(t, EqualConstantTime(a, []byte{1, 2, 3, 5}))
	assert.False(t, EqualConstantTime(a, []byte{1, 2, 3}))
}

func TestZeroize(t *testing.T) {
	b := []byte("sensitive-key-material")
	Zeroize(b)
	assert.Equal(t, bytes.Repeat([]byte{0}, len(b)), b)
}
