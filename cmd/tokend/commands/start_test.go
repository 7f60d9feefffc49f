package commands

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/airchains-network/token-ledger/config"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/airchains-network/token-ledger/state"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	firstOwner  = "0x00000000000000000000000000000000000000aa"
	secondOwner = "0x00000000000000000000000000000000000000bb"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestOpenLedgerCreatesThenRestores(t *testing.T) {
	home := t.TempDir()
	cfg := config.DefaultConfig(home)
	cfg.Token.Owner = "0x00000000000000000000000000000000000000AA"

	store, err := state.Open(cfg.Database.StatePath)
	require.NoError(t, err)

	l, err := openLedger(cfg, store, quietLogger())
	require.NoError(t, err)
	owner, ok := l.Owner()
	require.True(t, ok)
	assert.Equal(t, ledger.Account(firstOwner), owner)

	_, err = l.Mint(owner, "0x00000000000000000000000000000000000000cc", 70)
	require.NoError(t, err)
	_, err = store.Save(l.Snapshot())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// a different configured owner does not replace the stored one
	cfg.Token.Owner = secondOwner
	store, err = state.Open(cfg.Database.StatePath)
	require.NoError(t, err)
	defer store.Close()

	restored, err := openLedger(cfg, store, quietLogger())
	require.NoError(t, err)
	owner, ok = restored.Owner()
	require.True(t, ok)
	assert.Equal(t, ledger.Account(firstOwner), owner)
	assert.Equal(t, uint64(70), restored.TokenInfo().TotalSupply)
	assert.Equal(t, l.Snapshot(), restored.Snapshot())
}

func TestOpenLedgerRejectsBadOwner(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())
	cfg.Token.Owner = "alice"

	store, err := state.Open(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer store.Close()

	_, err = openLedger(cfg, store, quietLogger())
	assert.Error(t, err)

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
}
