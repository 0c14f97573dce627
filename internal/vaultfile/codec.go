// Package vaultfile implements the LPDV on-disk container: a fixed little-
// endian header, the KDF salt, and an AES-GCM sealed blob holding the vault
// document. Writes are atomic; loads never read partial files.
package vaultfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/localpdub/localpdub/internal/cryptox"
	"github.com/localpdub/localpdub/internal/store"
)

const (
	// Magic identifies a LocalPDub vault file.
	Magic = "LPDV"
	// Version is the current file format version.
	Version = 1

	headerSize = 16
	minFileLen = headerSize + cryptox.SaltSize + cryptox.NonceSize + cryptox.TagSize
)

type header struct {
	Version    uint16
	Flags      uint16
	HeaderSize uint32
	DataSize   uint32
}

// Encode serializes and seals the store under key. The salt is written into
// the header verbatim; it must be the salt the key was derived from. A fresh
// nonce is generated per call.
func Encode(s *store.Store, key, salt []byte) ([]byte, error) {
	if len(salt) != cryptox.SaltSize {
		return nil, fmt.Errorf("%w: bad salt length %d", common.ErrCrypto, len(salt))
	}

	plaintext, err := s.MarshalDocument()
	if err != nil {
		return nil, err
	}
	defer cryptox.Zeroize(plaintext)

	nonce, err := cryptox.RandBytes(cryptox.NonceSize)
	if err != nil {
		return nil, err
	}

	ciphertext, err := cryptox.Seal(plaintext, key, nonce)
	if err != nil {
		return nil, err
	}

	sealed := append(nonce, ciphertext...)

	var buf bytes.Buffer
	buf.WriteString(Magic)
	h := header{Version: Version, HeaderSize: headerSize, DataSize: uint32(len(sealed))}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	buf.Write(salt)
	buf.Write(sealed)
	return buf.Bytes(), nil
}

// Decode validates the container, derives the key from password and opens
// the sealed blob. Header problems are ErrInvalidFormat; everything after a
// valid header (tag mismatch, corrupt plaintext) is ErrInvalidPassword so a
// wrong password and a corrupted file are indistinguishable.
//
// The derived key and the salt are returned so the session can re-seal on
// save without re-running the KDF.
func Decode(data, password []byte) (*store.Store, []byte, []byte, error) {
	salt, sealed, err := splitContainer(data)
	if err != nil {
		return nil, nil, nil, err
	}

	key := cryptox.DeriveKey(password, salt)

	s, err := openSealed(sealed, key)
	if err != nil {
		cryptox.Zeroize(key)
		return nil, nil, nil, err
	}
	return s, key, salt, nil
}

// DecodeWithKey opens a container with an already-derived key. Used on
// reload after a sync, when the session still holds the key.
func DecodeWithKey(data, key []byte) (*store.Store, error) {
	_, sealed, err := splitContainer(data)
	if err != nil {
		return nil, err
	}
	return openSealed(sealed, key)
}

// Salt extracts the KDF salt without decrypting, so a save can keep the
// derived key stable across rewrites.
func Salt(data []byte) ([]byte, error) {
	salt, _, err := splitContainer(data)
	return salt, err
}

func splitContainer(data []byte) ([]byte, []byte, error) {
	if len(data) < minFileLen {
		return nil, nil, fmt.Errorf("%w: truncated file", common.ErrInvalidFormat)
	}
	if string(data[:4]) != Magic {
		return nil, nil, fmt.Errorf("%w: bad magic", common.ErrInvalidFormat)
	}

	var h header
	if err := binary.Read(bytes.NewReader(data[4:headerSize]), binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrInvalidFormat, err)
	}
	if h.Version != Version {
		return nil, nil, fmt.Errorf("%w: unknown version %d", common.ErrInvalidFormat, h.Version)
	}
	if h.HeaderSize != headerSize {
		return nil, nil, fmt.Errorf("%w: bad header size %d", common.ErrInvalidFormat, h.HeaderSize)
	}

	salt := data[headerSize : headerSize+cryptox.SaltSize]
	sealed := data[headerSize+cryptox.SaltSize:]
	if int(h.DataSize) != len(sealed) {
		return nil, nil, fmt.Errorf("%w: data size mismatch", common.ErrInvalidFormat)
	}
	return salt, sealed, nil
}

func openSealed(sealed, key []byte) (*store.Store, error) {
	nonce := sealed[:cryptox.NonceSize]
	ciphertext := sealed[cryptox.NonceSize:]

	plaintext, err := cryptox.Open(ciphertext, key, nonce)
	if err != nil {
		return nil, common.ErrInvalidPassword
	}
	defer cryptox.Zeroize(plaintext)

	return store.FromDocument(plaintext)
}
