package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/core"
	"github.com/illarion/receiptvault/internal/keyring"
)

var (
	resetForce      bool
	resetForgetSalt bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all receipts and start over",
	Long: `Delete the encrypted vault. No passphrase is needed, so this is also the
way out when the passphrase is lost or the vault file is damaged. The next
unlock creates a new empty vault.

The key derivation salt is kept unless --forget-salt is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetForce && !confirm("Delete all receipts in the vault? This cannot be undone.") {
			fmt.Println("aborted")
			return nil
		}

		db, err := openExistingStore()
		if err != nil {
			return err
		}
		defer db.Close()

		mgr := core.New(db, core.WithLogger(Logger))
		if resetForgetSalt {
			err = mgr.ResetAll(cmd.Context())
		} else {
			err = mgr.Reset(cmd.Context())
		}
		if err != nil {
			return err
		}

		if vaultID, err := db.GetVaultID(); err == nil && vaultID != "" {
			if err := keyring.DeletePassphrase(vaultID); err != nil {
				Logger.Warnf("failed to remove keyring entry: %v", err)
			}
		}
		fmt.Println("vault reset")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "do not ask for confirmation")
	resetCmd.Flags().BoolVar(&resetForgetSalt, "forget-salt", false, "also delete the key derivation salt")
}
