package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/airchains-network/token-ledger/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.toml")

	cfg := config.DefaultConfig(home)
	cfg.Token.Owner = "0x00000000000000000000000000000000000000aa"
	cfg.General.RPCPort = ":9000"
	require.NoError(t, cfg.Save(path))

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, filepath.Join(home, "data", "state_db"), loaded.Database.StatePath)
}

func TestLoadMissing(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	assert.Error(t, err)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[token]\nowner = \"0xabc\"\n"), 0644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", cfg.Token.Owner)
	assert.Equal(t, ":11111", cfg.General.RPCPort)
	assert.Equal(t, "5m", cfg.Auth.MaxSkew)
}

func TestEnvOverrides(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.toml")
	require.NoError(t, config.DefaultConfig(home).Save(path))

	t.Setenv("TOKEND_RPC_PORT", ":7000")
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("TOKEND_LOG_LEVEL=debug\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("TOKEND_LOG_LEVEL") })

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.General.RPCPort)
	assert.Equal(t, "debug", cfg.General.LogLevel)
}

func TestMaxSkewDuration(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())
	d, err := cfg.MaxSkewDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	cfg.Auth.MaxSkew = "soon"
	_, err = cfg.MaxSkewDuration()
	assert.Error(t, err)

	cfg.Auth.MaxSkew = "-1s"
	_, err = cfg.MaxSkewDuration()
	assert.Error(t, err)
}
