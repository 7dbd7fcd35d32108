// Package codec turns a ledger vault into an authenticated ciphertext and back.
//
// The plaintext is the JSON encoding of ledger.Vault. Every call to
// EncryptVault seals under a fresh random 12-byte IV, so the same vault
// encrypted twice never produces the same ciphertext.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/receiptvault/internal/crypto"
	"github.com/illarion/receiptvault/internal/ledger"
)

var (
	// ErrAuthentication is returned when the ciphertext fails its integrity
	// check: wrong key, tampering, or a mismatched IV.
	ErrAuthentication = crypto.ErrAuthFailed

	// ErrCorrupt is returned when an authenticated payload is not a vault
	ErrCorrupt = errors.New("vault payload is corrupt")
)

// Sealed is an encrypted vault together with its IV
type Sealed struct {
	Ciphertext []byte
	IV         []byte
}

// EncryptVault encodes and encrypts the vault under key
func EncryptVault(v *ledger.Vault, key []byte) (*Sealed, error) {
	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("invalid key length %d", len(key))
	}

	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vault: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	enc := crypto.NewEncryptor(key)
	defer enc.Destroy()

	ciphertext, iv, err := enc.Seal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt vault: %w", err)
	}

	return &Sealed{Ciphertext: ciphertext, IV: iv}, nil
}

// DecryptVault verifies and decrypts a sealed vault
func DecryptVault(s *Sealed, key []byte) (*ledger.Vault, error) {
	if s == nil {
		return nil, crypto.ErrInvalidCiphertext
	}
	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("invalid key length %d", len(key))
	}

	enc := crypto.NewEncryptor(key)
	defer enc.Destroy()

	plaintext, err := enc.Open(s.Ciphertext, s.IV)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	var v ledger.Vault
	if err := json.Unmarshal(plaintext, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &v, nil
}
