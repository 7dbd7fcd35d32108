package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <id> [id...]",
	Short: "Delete receipts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			ids, err := resolveReceiptIDs(s.mgr, args)
			if err != nil {
				return err
			}
			n, err := s.mgr.DeleteReceipts(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			fmt.Printf("removed: %d receipts\n", n)
			return nil
		})
	},
}
