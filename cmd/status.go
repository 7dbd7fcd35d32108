package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/keyring"
	"github.com/illarion/receiptvault/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault file status",
	Long:  "Show where the vault lives and when it changed. Does not require a passphrase.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Vault: %s\n", cfg.VaultPath)

		db, err := openExistingStore()
		if errors.Is(err, storage.ErrNotInitialized) {
			fmt.Println("State: no vault yet (run 'receiptvault unlock' to create one)")
			return nil
		}
		if err != nil {
			return err
		}
		defer db.Close()

		hasVault, err := db.HasVault()
		if err != nil {
			return err
		}
		if !hasVault {
			fmt.Println("State: empty (next unlock creates a new vault)")
		} else {
			fmt.Println("State: encrypted")
		}

		if info, err := os.Stat(cfg.VaultPath); err == nil {
			fmt.Printf("Size: %s\n", formatSize(info.Size()))
		}
		if created, err := db.GetCreated(); err == nil && !created.IsZero() {
			fmt.Printf("Created: %s\n", created.Local().Format(time.RFC3339))
		}
		if modified, err := db.GetModified(); err == nil && !modified.IsZero() {
			fmt.Printf("Modified: %s\n", modified.Local().Format(time.RFC3339))
		}

		switch vaultID, err := db.GetVaultID(); {
		case !cfg.Keyring:
			fmt.Println("Keyring: disabled")
		case err == nil && vaultID != "" && keyring.HasPassphrase(vaultID):
			fmt.Println("Keyring: passphrase stored")
		default:
			fmt.Println("Keyring: not stored")
		}
		return nil
	},
}
