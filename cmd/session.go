package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"

	"github.com/illarion/receiptvault/internal/config"
	"github.com/illarion/receiptvault/internal/core"
	"github.com/illarion/receiptvault/internal/crypto"
	"github.com/illarion/receiptvault/internal/keyring"
	"github.com/illarion/receiptvault/internal/storage"
)

// PassphraseSource tells where a passphrase came from
type PassphraseSource int

const (
	SourceEnv PassphraseSource = iota
	SourceKeyring
	SourcePrompt
)

// maxPromptAttempts bounds how often a mistyped passphrase is asked again
const maxPromptAttempts = 3

var errNoPassphrase = errors.New("no passphrase available")

// GetPassphraseWithRetry returns the passphrase from the environment, the
// keyring or a prompt, in that order. A keyring entry that no longer opens
// the vault is removed and the user is prompted instead. newVault asks for
// the passphrase twice.
func GetPassphraseWithRetry(ctx context.Context, vaultID string, newVault bool, verify func(context.Context, []byte) error) ([]byte, PassphraseSource, error) {
	if passphrase := config.PassphraseFromEnv(); passphrase != nil {
		Logger.Debugf("using passphrase from %s", config.EnvPassphrase)
		return passphrase, SourceEnv, nil
	}

	if cfg.Keyring && vaultID != "" && !newVault {
		passphrase, err := keyring.GetPassphrase(vaultID)
		if err == nil {
			stop := startSpinner("Checking keyring passphrase...")
			err = verify(ctx, passphrase)
			stop()
			if err == nil {
				Logger.Debugf("using passphrase from keyring")
				return passphrase, SourceKeyring, nil
			}
			crypto.ClearBytes(passphrase)
			if !errors.Is(err, core.ErrWrongPassphrase) {
				return nil, 0, err
			}
			Logger.Warnf("passphrase in keyring no longer opens the vault, removing it")
			if err := keyring.DeletePassphrase(vaultID); err != nil {
				Logger.Warnf("failed to remove stale keyring entry: %v", err)
			}
		} else if !errors.Is(err, keyring.ErrNotFound) {
			Logger.Debugf("keyring unavailable: %v", err)
		}
	}

	if !core.IsTerminal() {
		return nil, 0, errNoPassphrase
	}

	if newVault {
		fmt.Fprintln(os.Stderr, "No vault found, creating a new one.")
		passphrase, err := core.ReadPassphraseConfirm()
		return passphrase, SourcePrompt, err
	}
	passphrase, err := core.ReadPassphrase("Passphrase: ")
	return passphrase, SourcePrompt, err
}

// startSpinner shows progress on stderr unless verbose output is on.
// The returned function stops it.
func startSpinner(message string) func() {
	if Logger.Verbose || !core.IsTerminal() {
		Logger.Infof("%s", message)
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriterFile(os.Stderr))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}
	s.Start()
	return s.Stop
}

// session is an unlocked vault for the lifetime of one command
type session struct {
	db      *storage.Storage
	mgr     *core.Manager
	vaultID string
}

// openSession opens the store and unlocks it. On an empty store the vault
// is created under the entered passphrase.
func openSession(ctx context.Context) (*session, error) {
	db, err := openStore()
	if err != nil {
		return nil, err
	}

	hasVault, err := db.HasVault()
	if err != nil {
		db.Close()
		return nil, err
	}
	vaultID, err := db.GetOrCreateVaultID()
	if err != nil {
		db.Close()
		return nil, err
	}

	mgr := core.New(db, core.WithLogger(Logger))
	s := &session{db: db, mgr: mgr, vaultID: vaultID}

	for attempt := 1; ; attempt++ {
		passphrase, source, err := GetPassphraseWithRetry(ctx, vaultID, !hasVault, mgr.VerifyPassphrase)
		if err != nil {
			db.Close()
			return nil, err
		}

		stop := startSpinner("Unlocking vault...")
		err = mgr.Unlock(ctx, passphrase)
		stop()

		if err == nil {
			if source == SourcePrompt {
				OfferToSavePassphrase(vaultID, passphrase)
			}
			crypto.ClearBytes(passphrase)
			return s, nil
		}
		crypto.ClearBytes(passphrase)

		if source != SourcePrompt || !errors.Is(err, core.ErrWrongPassphrase) || attempt >= maxPromptAttempts {
			db.Close()
			return nil, err
		}
		fmt.Fprintln(os.Stderr, "Wrong passphrase, try again.")
	}
}

// Close locks the vault and closes the store
func (s *session) Close() {
	s.mgr.Lock()
	if err := s.db.Close(); err != nil {
		Logger.Warnf("failed to close vault: %v", err)
	}
}

// withSession runs fn against an unlocked vault
func withSession(ctx context.Context, fn func(*session) error) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
