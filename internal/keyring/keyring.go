package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "receiptvault"

// ErrNotFound is returned when no passphrase is stored for a vault
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a passphrase in the OS keyring under the vault id
func SavePassphrase(vaultID string, passphrase []byte) error {
	return keyring.Set(serviceName, vaultID, string(passphrase))
}

// GetPassphrase retrieves a passphrase from the OS keyring
func GetPassphrase(vaultID string) ([]byte, error) {
	secret, err := keyring.Get(serviceName, vaultID)
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

// DeletePassphrase removes a passphrase from the OS keyring. Deleting a
// missing entry is not an error.
func DeletePassphrase(vaultID string) error {
	err := keyring.Delete(serviceName, vaultID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassphrase checks if a passphrase is stored in the keyring
func HasPassphrase(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
