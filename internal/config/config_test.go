package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvVaultPath, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.Keyring)
	assert.False(t, cfg.SaveImages)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvVaultPath, "")
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := "vault_path: /tmp/receipts.db\nkeyring: false\nsave_images: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/receipts.db", cfg.VaultPath)
	assert.False(t, cfg.Keyring)
	assert.True(t, cfg.SaveImages)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("vault_path: [unterminated"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesVaultPath(t *testing.T) {
	t.Setenv(EnvVaultPath, "/elsewhere/vault.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/vault.db", cfg.VaultPath)
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv(EnvVaultPath, "")
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg := &Config{VaultPath: "/data/vault.db", SaveImages: true}
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerm), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPassphraseFromEnv(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	assert.Nil(t, PassphraseFromEnv())

	t.Setenv(EnvPassphrase, "correct-horse")
	assert.Equal(t, []byte("correct-horse"), PassphraseFromEnv())
}
