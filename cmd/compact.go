package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact the vault file to reclaim disk space",
	Long: `Compact the vault file to reclaim space left behind by deleted receipts
and removed images. Does not require a passphrase.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := os.Stat(cfg.VaultPath)
		if err != nil {
			return err
		}
		sizeBefore := info.Size()

		db, err := openExistingStore()
		if err != nil {
			return err
		}
		err = db.Compact()
		if cerr := db.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}

		info, err = os.Stat(cfg.VaultPath)
		if err != nil {
			return err
		}
		fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
		return nil
	},
}
