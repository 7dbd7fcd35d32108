package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/ocr"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a stored receipt",
	Long: `Change fields of a stored receipt. Only the flags given are changed.
--item replaces all line items. The total is never recomputed from items.`,
	Example: `  receiptvault edit 3f2a --total 1080 --note "incl. bag"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes := &ocr.Extraction{}
		if err := applyReceiptFlags(cmd, changes); err != nil {
			return err
		}

		return withSession(cmd.Context(), func(s *session) error {
			id, err := resolveReceiptID(s.mgr, args[0])
			if err != nil {
				return err
			}
			r, err := s.mgr.Receipt(id)
			if err != nil {
				return err
			}

			changes.ApplyTo(&r, func() string { return "" })
			if cmd.Flags().Changed("note") {
				r.Note = recNote
			}

			r, err = s.mgr.UpdateReceipt(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Printf("updated %s: %s %s %s\n", shortID(r.ID), r.Date, r.DisplayStore(), formatYen(r.Total))
			return nil
		})
	},
}

func init() {
	addReceiptFlags(editCmd)
}
