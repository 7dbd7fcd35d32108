package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/illarion/receiptvault/internal/config"
	"github.com/illarion/receiptvault/internal/core"
	"github.com/illarion/receiptvault/internal/keyring"
	"github.com/illarion/receiptvault/internal/storage"
)

// HandleError prints err in a user-facing form
func HandleError(err error) {
	red := color.New(color.FgRed).SprintFunc()

	switch {
	case errors.Is(err, core.ErrWrongPassphrase):
		fmt.Fprintf(os.Stderr, "%s wrong passphrase or undecryptable data\n", red("Error:"))
		fmt.Fprintf(os.Stderr, "If the vault file is damaged, 'receiptvault reset' starts over\n")
	case errors.Is(err, core.ErrStorage):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		fmt.Fprintf(os.Stderr, "Nothing was changed; retry the command\n")
	case errors.Is(err, errNoPassphrase):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		fmt.Fprintf(os.Stderr, "Set %s or run in a terminal\n", config.EnvPassphrase)
	case errors.Is(err, storage.ErrBusy):
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		fmt.Fprintln(os.Stderr, "Another receiptvault process is using the vault")
	case errors.Is(err, storage.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "%s no vault yet\n", red("Error:"))
		fmt.Fprintln(os.Stderr, "Run 'receiptvault unlock' to create one")
	default:
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
	}
}

// openStore opens the vault database, creating it and its directory on
// first use
func openStore() (*storage.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.VaultPath), config.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	db, err := storage.Open(cfg.VaultPath)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openExistingStore opens the vault database only if the file exists
func openExistingStore() (*storage.Storage, error) {
	if _, err := os.Stat(cfg.VaultPath); err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotInitialized
		}
		return nil, err
	}
	return openStore()
}

// confirm asks a yes/no question on stderr. Defaults to no.
func confirm(question string) bool {
	if !core.IsTerminal() {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// OfferToSavePassphrase asks to store a manually entered passphrase in the
// OS keyring
func OfferToSavePassphrase(vaultID string, passphrase []byte) {
	if !cfg.Keyring || vaultID == "" || keyring.HasPassphrase(vaultID) {
		return
	}
	if !confirm("Save passphrase to the OS keyring?") {
		return
	}
	if err := keyring.SavePassphrase(vaultID, passphrase); err != nil {
		Logger.Warnf("failed to save passphrase to keyring: %v", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Passphrase saved to keyring")
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

// formatYen formats a whole-yen amount with thousands separators
func formatYen(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}
