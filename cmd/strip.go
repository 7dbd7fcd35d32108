package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stripImagesCmd = &cobra.Command{
	Use:   "strip-images [id...]",
	Short: "Remove embedded receipt images",
	Long:  "Remove embedded images from the given receipts, or from all receipts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			var ids []string
			if len(args) > 0 {
				var err error
				if ids, err = resolveReceiptIDs(s.mgr, args); err != nil {
					return err
				}
			}

			v, err := s.mgr.Snapshot()
			if err != nil {
				return err
			}
			before := v.ImageBytes()

			n, err := s.mgr.StripImages(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("no images to remove")
				return nil
			}
			freed := before
			if v, err = s.mgr.Snapshot(); err == nil {
				freed -= v.ImageBytes()
			}
			fmt.Printf("removed images from %d receipts (%s)\n", n, formatSize(int64(freed)))
			fmt.Println("run 'receiptvault compact' to reclaim the space on disk")
			return nil
		})
	},
}
