// Package common defines shared constants and sentinel errors used across
// LocalPDub components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Vault file errors.
	ErrInvalidFormat   = errors.New("invalid vault format")
	ErrInvalidPassword = errors.New("invalid password")

	// Store errors.
	ErrNotOpen  = errors.New("vault is not open")
	ErrNotFound = errors.New("not found")

	// Network and protocol errors.
	ErrNetwork    = errors.New("network error")
	ErrAuthFailed = errors.New("authentication failed")
	ErrProtocol   = errors.New("protocol error")

	// Primitive failures (CSRNG, KDF).
	ErrCrypto = errors.New("crypto error")
)
