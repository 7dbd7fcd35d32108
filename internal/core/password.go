package core

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/illarion/receiptvault/internal/crypto"
)

var ErrPassphraseMismatch = errors.New("passphrases do not match")

// ReadPassphrase reads a passphrase from the terminal without echoing.
// The prompt goes to stderr so stdout stays clean for exports.
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// ReadPassphraseConfirm reads a passphrase twice and ensures they match
func ReadPassphraseConfirm() ([]byte, error) {
	first, err := ReadPassphrase("New passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(first)

	second, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		return nil, ErrPassphraseMismatch
	}

	result := make([]byte, len(first))
	copy(result, first)
	return result, nil
}

// IsTerminal reports whether stdin can be used for a passphrase prompt
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
