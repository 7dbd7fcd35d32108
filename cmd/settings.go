package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/illarion/receiptvault/internal/core"
	"github.com/illarion/receiptvault/internal/crypto"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Settings stored inside the encrypted vault",
}

var apiKeyCmd = &cobra.Command{
	Use:   "api-key",
	Short: "Manage the AI vision API key",
}

var apiKeySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the AI vision API key in the vault",
	Long: `Store the AI vision API key in the vault. Without an argument the key is
read from the terminal, which keeps it out of shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			input, err := core.ReadPassphrase("API key: ")
			if err != nil {
				return err
			}
			key = string(input)
			crypto.ClearBytes(input)
		}
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("empty API key, use 'settings api-key clear' to remove it")
		}

		return withSession(cmd.Context(), func(s *session) error {
			if err := s.mgr.SetVisionAPIKey(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Println("API key saved")
			return nil
		})
	},
}

var apiKeyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the AI vision API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			if err := s.mgr.SetVisionAPIKey(cmd.Context(), ""); err != nil {
				return err
			}
			fmt.Println("API key removed")
			return nil
		})
	},
}

var apiKeyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured API key, masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(s *session) error {
			vision, err := s.mgr.VisionConfig()
			if err != nil {
				return err
			}
			if !vision.Enabled() {
				fmt.Println("API key: not set")
				return nil
			}
			fmt.Printf("API key: %s (model %s)\n", vision.MaskedKey(), vision.ModelName())
			return nil
		})
	},
}

func init() {
	apiKeyCmd.AddCommand(apiKeySetCmd)
	apiKeyCmd.AddCommand(apiKeyClearCmd)
	apiKeyCmd.AddCommand(apiKeyShowCmd)
	settingsCmd.AddCommand(apiKeyCmd)
}
