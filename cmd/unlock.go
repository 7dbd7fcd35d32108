package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Check the passphrase, creating the vault on first use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			v, err := s.mgr.Snapshot()
			if err != nil {
				return err
			}
			fmt.Printf("vault unlocked: %d receipts, %d categories\n", len(v.Receipts), len(v.Categories))
			return nil
		})
	},
}
