package vaultfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/localpdub/localpdub/internal/store"
)

// Save encodes the store and atomically replaces the file at path:
// write <path>.tmp, fsync, copy the previous file to <path>.bak, rename.
// A file lock serializes concurrent saves of the same vault; the vault file
// is single-writer by contract, the lock enforces it across processes.
func Save(path string, s *store.Store, key, salt []byte) error {
	data, err := Encode(s, key, salt)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// Load reads and decodes the vault at path with password. The in-progress
// <path>.tmp is never consulted.
func Load(path, password string) (*store.Store, []byte, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	return Decode(data, []byte(password))
}

// LoadWithKey re-reads the vault with an already-derived key.
func LoadWithKey(path string, key []byte) (*store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeWithKey(data, key)
}

// ReadSalt returns the salt of an existing vault file, or nil when the file
// does not exist yet.
func ReadSalt(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Salt(data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock vault: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// One rollback step: keep the previous content as .bak.
	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+".bak"); err != nil {
			os.Remove(tmp)
			return err
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	_ = syncDir(dir)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
