package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/config"
	"github.com/illarion/receiptvault/internal/core"
	"github.com/illarion/receiptvault/internal/crypto"
	"github.com/illarion/receiptvault/internal/keyring"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manage the passphrase stored in the OS keyring",
}

var keyringSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the passphrase to the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingStore()
		if err != nil {
			return err
		}
		defer db.Close()

		passphrase := config.PassphraseFromEnv()
		if passphrase == nil {
			if passphrase, err = core.ReadPassphrase("Passphrase: "); err != nil {
				return err
			}
		}
		defer crypto.ClearBytes(passphrase)

		mgr := core.New(db, core.WithLogger(Logger))
		stop := startSpinner("Checking passphrase...")
		err = mgr.VerifyPassphrase(cmd.Context(), passphrase)
		stop()
		if err != nil {
			return err
		}

		vaultID, err := db.GetOrCreateVaultID()
		if err != nil {
			return err
		}
		if err := keyring.SavePassphrase(vaultID, passphrase); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		fmt.Println("Passphrase saved to keyring")
		return nil
	},
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the passphrase from the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingStore()
		if err != nil {
			return err
		}
		defer db.Close()

		vaultID, err := db.GetVaultID()
		if err != nil || vaultID == "" || !keyring.HasPassphrase(vaultID) {
			fmt.Println("No passphrase stored in keyring")
			return nil
		}
		if err := keyring.DeletePassphrase(vaultID); err != nil {
			return fmt.Errorf("failed to remove from keyring: %w", err)
		}
		fmt.Println("Passphrase removed from keyring")
		return nil
	},
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a passphrase is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingStore()
		if err != nil {
			fmt.Println("Passphrase: not stored")
			return nil
		}
		defer db.Close()

		vaultID, err := db.GetVaultID()
		if err == nil && vaultID != "" && keyring.HasPassphrase(vaultID) {
			fmt.Println("Passphrase: stored in keyring")
		} else {
			fmt.Println("Passphrase: not stored")
		}
		return nil
	},
}

func init() {
	keyringCmd.AddCommand(keyringSaveCmd)
	keyringCmd.AddCommand(keyringDeleteCmd)
	keyringCmd.AddCommand(keyringStatusCmd)
}

