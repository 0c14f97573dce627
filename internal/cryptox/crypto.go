// Package cryptox wraps the cryptographic primitives used by the vault:
// a CSRNG, Argon2id key derivation, AES-256-GCM sealing and HMAC-SHA256.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"runtime"

	"github.com/localpdub/localpdub/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the length of the derived symmetric key (AES-256).
	KeySize = 32
	// SaltSize is the length of the KDF salt stored in the vault header.
	SaltSize = 32
	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16
	// ChallengeSize is the length of the sync auth challenge.
	ChallengeSize = 32

	// Argon2id parameters. Vaults are only portable between builds that
	// agree on these; changing them requires a file version bump.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// RandBytes returns n cryptographically strong random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: rand: %v", common.ErrCrypto, err)
	}
	return b, nil
}

// DeriveKey derives a 256-bit key from password and salt using Argon2id.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// Seal encrypts plaintext with AES-256-GCM under key and nonce and returns
// ciphertext with the 16-byte tag appended.
func Seal(plaintext, key, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext||tag produced by Seal. A tag mismatch is reported
// as ErrInvalidPassword: the caller cannot distinguish a wrong password from
// a corrupted file, which is intentional.
func Open(sealed, key, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrInvalidPassword
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	return aead, nil
}

// HMACSHA256 computes HMAC-SHA256 of msg under key.
func HMACSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// EqualConstantTime compares two MACs without short-circuiting on the first
// differing byte.
func EqualConstantTime(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites b with zeros. The KeepAlive keeps the write from being
// elided when b is about to become unreachable.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
