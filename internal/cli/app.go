// Package cli implements the interactive menu around the session
// coordinator: vault CRUD, search, password generation, peer discovery and
// sync.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/localpdub/localpdub/internal/common"
	"github.com/localpdub/localpdub/internal/config"
	"github.com/localpdub/localpdub/internal/history"
	"github.com/localpdub/localpdub/internal/logging"
	"github.com/localpdub/localpdub/internal/session"
	"github.com/localpdub/localpdub/internal/store"
	"github.com/localpdub/localpdub/internal/syncnet"
)

// App wires the menu loop to a vault session.
type App struct {
	cfg      *config.Config
	log      logging.Logger
	deviceID string
	session  *session.Session
	journal  *history.Journal
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp builds the CLI against the given config.
func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0o700); err != nil {
		return nil, err
	}
	journal, err := history.Open(context.Background(), cfg.HistoryPath)
	if err != nil {
		// The journal is a convenience; a vault session works without it.
		log.Warn(context.Background(), "sync journal unavailable", "err", err)
		journal = nil
	}

	deviceID := store.NewID()
	sess := session.New(session.Config{
		VaultPath:  cfg.VaultPath,
		DeviceID:   deviceID,
		DeviceName: cfg.DeviceName,
		SyncPort:   cfg.SyncPort,
		Logger:     log,
		Journal:    journal,
	})

	return &App{
		cfg:      cfg,
		log:      log,
		deviceID: deviceID,
		session:  sess,
		journal:  journal,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Run opens (or creates) the vault and enters the menu loop. The returned
// error is non-nil only when the vault could not be opened or created.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := a.unlock(); err != nil {
		return err
	}
	a.menuLoop(ctx)
	return nil
}

// unlock opens an existing vault or offers to create a fresh one.
func (a *App) unlock() error {
	if _, err := os.Stat(a.cfg.VaultPath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(a.out, titleStyle.Render("No vault found at "+a.cfg.VaultPath))
		ok, err := GetConfirm(a.reader, "Create a new vault?", a.out)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("no vault to open")
		}
		password, err := GetPassword(a.out, "New master password")
		if err != nil {
			return err
		}
		confirm, err := GetPassword(a.out, "Repeat master password")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}
		if err := a.session.Create(password); err != nil {
			return err
		}
		fmt.Fprintln(a.out, successStyle.Render("Vault created."))
		return nil
	}

	// Three attempts, then give up.
	for attempt := 0; attempt < 3; attempt++ {
		password, err := GetPassword(a.out, "Master password")
		if err != nil {
			return err
		}
		err = a.session.Open(password)
		if err == nil {
			fmt.Fprintln(a.out, successStyle.Render("Vault unlocked."))
			return nil
		}
		if errors.Is(err, common.ErrInvalidPassword) {
			fmt.Fprintln(a.out, errorStyle.Render("Invalid password."))
			continue
		}
		return err
	}
	return common.ErrInvalidPassword
}

func (a *App) close() {
	a.session.Close()
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

func (a *App) syncOptions(passphrase string) (session.SyncOptions, error) {
	strategy, err := syncnet.ParseStrategy(a.cfg.Strategy)
	if err != nil {
		return session.SyncOptions{}, err
	}
	auth := syncnet.AuthNone
	if a.cfg.Auth == "passphrase" {
		auth = syncnet.AuthPassphrase
	}
	return session.SyncOptions{Strategy: strategy, Auth: auth, Passphrase: passphrase}, nil
}
