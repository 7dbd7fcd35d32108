package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/config"
	"github.com/illarion/receiptvault/internal/logging"
)

var (
	cfgFile string
	verbose bool
	debug   bool

	cfg    *config.Config
	Logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "receiptvault",
	Short: "Encrypted local receipt ledger",
	Long: `receiptvault keeps receipts in a single passphrase-encrypted file.

The passphrase is taken from RECEIPTVAULT_PASSPHRASE, then the OS keyring,
then a terminal prompt. The first unlock creates a new empty vault.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		Logger = logging.New(verbose || cfg.Verbose, debug)
		Logger.Debugf("config loaded from %s, vault at %s", cfgFile, cfg.VaultPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(stripImagesCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(keyringCmd)
}

// Execute runs the command tree and returns the process exit code
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		HandleError(err)
		return 1
	}
	return 0
}
