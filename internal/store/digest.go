package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest summarizes one record for the sync digest exchange. Hash is the
// hex SHA-256 of the record's canonical JSON.
type Digest struct {
	ID       string `json:"id"`
	Modified int64  `json:"modified"`
	Hash     string `json:"hash"`
}

func digestOf(r *Record) (Digest, error) {
	b, err := r.CanonicalJSON()
	if err != nil {
		return Digest{}, err
	}
	sum := sha256.Sum256(b)
	return Digest{ID: r.ID, Modified: r.Modified, Hash: hex.EncodeToString(sum[:])}, nil
}

// Hash returns the hex SHA-256 of the record's canonical serialization.
func (r *Record) Hash() (string, error) {
	d, err := digestOf(r)
	if err != nil {
		return "", err
	}
	return d.Hash, nil
}
