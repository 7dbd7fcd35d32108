package core

import (
	"errors"
	"fmt"

	"github.com/illarion/receiptvault/internal/crypto"
)

var (
	ErrLocked          = errors.New("vault is locked")
	ErrAlreadyUnlocked = errors.New("vault is already unlocked")

	// ErrWrongPassphrase does not distinguish a wrong passphrase from
	// ciphertext that was damaged on disk; both fail authentication.
	ErrWrongPassphrase = fmt.Errorf("wrong passphrase or undecryptable data: %w", crypto.ErrAuthFailed)

	// ErrStorage wraps any failure of the underlying store. The session is
	// never advanced when it is returned.
	ErrStorage = errors.New("vault storage failed")

	ErrReceiptNotFound  = errors.New("receipt not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidReceipt   = errors.New("invalid receipt")
	ErrInvalidCategory  = errors.New("invalid category")

	errNothingChanged = errors.New("nothing changed")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
