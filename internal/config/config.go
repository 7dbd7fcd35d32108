package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	AppName        = "receiptvault"
	ConfigFileName = "config.yaml"
	VaultFileName  = "vault.db"

	// EnvVaultPath overrides vault_path
	EnvVaultPath = "RECEIPTVAULT_VAULT"
	// EnvPassphrase supplies the passphrase non-interactively
	EnvPassphrase = "RECEIPTVAULT_PASSPHRASE"

	DirPerm  = 0700
	FilePerm = 0600
)

// Config is the user configuration file
type Config struct {
	VaultPath  string `yaml:"vault_path"`
	Keyring    bool   `yaml:"keyring"`
	SaveImages bool   `yaml:"save_images"`
	Verbose    bool   `yaml:"verbose"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		VaultPath: defaultVaultPath(),
		Keyring:   true,
	}
}

func defaultVaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return VaultFileName
	}
	return filepath.Join(dir, AppName, VaultFileName)
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(dir, AppName, ConfigFileName)
}

// Load reads the config file at path. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvVaultPath); v != "" {
		cfg.VaultPath = v
	}
	if cfg.VaultPath == "" {
		cfg.VaultPath = defaultVaultPath()
	}

	return cfg, nil
}

// Save writes the config file, creating its directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, content, FilePerm); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// PassphraseFromEnv reads the passphrase from RECEIPTVAULT_PASSPHRASE.
// Returns nil when unset.
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		return nil
	}
	// Return a copy so callers can clear it
	result := make([]byte, len(passphrase))
	copy(result, passphrase)
	return result
}
