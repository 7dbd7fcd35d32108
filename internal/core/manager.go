package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/illarion/receiptvault/internal/codec"
	"github.com/illarion/receiptvault/internal/crypto"
	"github.com/illarion/receiptvault/internal/ledger"
	"github.com/illarion/receiptvault/internal/logging"
	"github.com/illarion/receiptvault/internal/storage"
)

// VaultStore is the durable slot holding the encrypted vault and its salt.
// *storage.Storage satisfies it.
type VaultStore interface {
	crypto.SaltStore
	ClearSalt() error
	LoadVault() (*storage.Record, error)
	SaveVault(*storage.Record) error
	ClearVault() error
}

// State is the lifecycle state of a session
type State int32

const (
	StateLocked State = iota
	StateUnlocking
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocking:
		return "unlocking"
	case StateUnlocked:
		return "unlocked"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for state transitions
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces time.Now for receipt timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the random UUID generator
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// Manager owns the single live session over a VaultStore. All operations
// are serialized; a mutation either fully persists and becomes visible or
// leaves the session exactly as it was.
type Manager struct {
	store VaultStore
	log   *logging.Logger
	now   func() time.Time
	newID func() string

	state atomic.Int32

	mu    sync.Mutex
	key   []byte
	vault *ledger.Vault
}

// New creates a locked Manager over store
func New(store VaultStore, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		log:   logging.Discard(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current state without waiting for in-flight operations
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	m.log.Debugf("session %s", s)
}

// Unlock derives the key from passphrase and decrypts the stored vault.
// When nothing is stored yet, an empty vault with the default categories is
// created and persisted under this passphrase.
func (m *Manager) Unlock(ctx context.Context, passphrase []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.vault != nil {
		return ErrAlreadyUnlocked
	}

	m.setState(StateUnlocking)
	key, vault, err := m.open(ctx, passphrase)
	if err != nil {
		m.setState(StateLocked)
		return err
	}

	m.key, m.vault = key, vault
	m.setState(StateUnlocked)
	return nil
}

func (m *Manager) open(ctx context.Context, passphrase []byte) ([]byte, *ledger.Vault, error) {
	salt, err := crypto.GetOrCreateSalt(m.store)
	if err != nil {
		return nil, nil, storageErr("salt", err)
	}

	key := crypto.DeriveKey(passphrase, salt)

	if err := ctx.Err(); err != nil {
		crypto.ClearBytes(key)
		return nil, nil, err
	}

	rec, err := m.store.LoadVault()
	if err != nil {
		crypto.ClearBytes(key)
		return nil, nil, storageErr("load", err)
	}

	if rec == nil {
		m.log.Debugf("no vault stored, creating a new one")
		vault := ledger.New()
		if err := m.persist(vault, key); err != nil {
			crypto.ClearBytes(key)
			return nil, nil, err
		}
		return key, vault, nil
	}

	vault, err := decryptRecord(rec, key)
	if err != nil {
		crypto.ClearBytes(key)
		return nil, nil, err
	}
	return key, vault, nil
}

func decryptRecord(rec *storage.Record, key []byte) (*ledger.Vault, error) {
	if rec.Version != storage.RecordVersion {
		return nil, fmt.Errorf("unsupported vault record version %d", rec.Version)
	}
	vault, err := codec.DecryptVault(&codec.Sealed{Ciphertext: rec.Ciphertext, IV: rec.IV}, key)
	if errors.Is(err, crypto.ErrAuthFailed) {
		return nil, ErrWrongPassphrase
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode vault: %w", err)
	}
	return vault, nil
}

func (m *Manager) persist(v *ledger.Vault, key []byte) error {
	sealed, err := codec.EncryptVault(v, key)
	if err != nil {
		return err
	}
	rec := &storage.Record{
		Ciphertext: sealed.Ciphertext,
		IV:         sealed.IV,
		Version:    storage.RecordVersion,
	}
	if err := m.store.SaveVault(rec); err != nil {
		return storageErr("save", err)
	}
	m.log.Debugf("vault persisted (%d receipts)", len(v.Receipts))
	return nil
}

// Lock forgets the key and the decrypted vault. Nothing is written.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lock()
}

func (m *Manager) lock() {
	crypto.ClearBytes(m.key)
	m.key = nil
	m.vault = nil
	m.setState(StateLocked)
}

// Reset deletes the stored vault and locks the session. The salt is kept,
// so the next Unlock starts a new vault under the same salt.
func (m *Manager) Reset(ctx context.Context) error {
	return m.reset(ctx, false)
}

// ResetAll is Reset that also deletes the salt
func (m *Manager) ResetAll(ctx context.Context) error {
	return m.reset(ctx, true)
}

func (m *Manager) reset(ctx context.Context, salt bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.store.ClearVault(); err != nil {
		return storageErr("clear", err)
	}
	if salt {
		if err := m.store.ClearSalt(); err != nil {
			return storageErr("clear salt", err)
		}
	}
	m.lock()
	m.log.Debugf("vault reset")
	return nil
}

// Mutate applies fn to a copy of the vault, persists the copy under a fresh
// nonce and only then makes it current. If fn or persistence fails the
// session is unchanged.
func (m *Manager) Mutate(ctx context.Context, fn func(*ledger.Vault) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutate(ctx, fn)
}

func (m *Manager) mutate(ctx context.Context, fn func(*ledger.Vault) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.vault == nil {
		return ErrLocked
	}

	next := m.vault.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.persist(next, m.key); err != nil {
		return err
	}
	m.vault = next
	return nil
}

// VerifyPassphrase checks passphrase against the stored vault without
// changing the session. With no stored vault any passphrase is accepted.
func (m *Manager) VerifyPassphrase(ctx context.Context, passphrase []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := m.store.LoadVault()
	if err != nil {
		return storageErr("load", err)
	}
	salt, err := m.store.GetSalt()
	if err != nil {
		return storageErr("salt", err)
	}
	if rec == nil || salt == nil {
		return nil
	}

	key := crypto.DeriveKey(passphrase, salt)
	defer crypto.ClearBytes(key)

	_, err = decryptRecord(rec, key)
	return err
}

// Snapshot returns a deep copy of the vault
func (m *Manager) Snapshot() (*ledger.Vault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vault == nil {
		return nil, ErrLocked
	}
	return m.vault.Clone(), nil
}
