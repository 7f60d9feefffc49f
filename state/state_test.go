package state_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/airchains-network/token-ledger/ledger"
	"github.com/airchains-network/token-ledger/state"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *state.Store {
	t.Helper()
	store, err := state.Open(path)
	require.NoError(t, err)
	return store
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func sampleLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New("owner")
	_, err := l.Mint("owner", "alice", 100)
	require.NoError(t, err)
	_, err = l.Mint("owner", "bob", 50)
	require.NoError(t, err)
	return l
}

func TestLoadEmpty(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state"))
	defer store.Close()

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveLoadAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	l := sampleLedger(t)

	store := openStore(t, path)
	written, err := store.Save(l.Snapshot())
	require.NoError(t, err)
	assert.True(t, written)
	require.NoError(t, store.Close())

	store = openStore(t, path)
	defer store.Close()
	snap, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, l.Snapshot(), snap)

	restored, err := ledger.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), restored.BalanceOf("alice"))
}

func TestSaveDropsEmptiedAccounts(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state"))
	defer store.Close()

	l := sampleLedger(t)
	_, err := store.Save(l.Snapshot())
	require.NoError(t, err)

	_, err = l.Burn("bob", 50)
	require.NoError(t, err)
	_, err = store.Save(l.Snapshot())
	require.NoError(t, err)

	snap, _, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []ledger.Balance{{Account: "alice", Amount: 100}}, snap.Balances)
	assert.Equal(t, uint64(100), snap.Metadata.TotalSupply)
}

func TestSaveIgnoresStaleSnapshot(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state"))
	defer store.Close()

	l := sampleLedger(t)
	old := l.Snapshot()
	_, err := l.Transfer("alice", "bob", 10)
	require.NoError(t, err)

	written, err := store.Save(l.Snapshot())
	require.NoError(t, err)
	assert.True(t, written)

	written, err = store.Save(old)
	require.NoError(t, err)
	assert.False(t, written)

	snap, _, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, l.Snapshot(), snap)
}

func TestPersisterWritesNewest(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state"))
	defer store.Close()
	p := state.NewPersister(store, quietLogger())

	l := sampleLedger(t)
	for i := 0; i < 20; i++ {
		_, err := l.Transfer("alice", "bob", 1)
		require.NoError(t, err)
		p.Submit(l.Snapshot())
	}
	p.Flush()

	snap, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, l.Snapshot(), snap)
	p.Close()
}

func TestPersisterCloseWritesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	store := openStore(t, path)
	p := state.NewPersister(store, quietLogger())

	l := sampleLedger(t)
	p.Submit(l.Snapshot())
	p.Close()
	// submissions after close are dropped
	p.Submit(ledger.New("x").Snapshot())
	require.NoError(t, store.Close())

	store = openStore(t, path)
	defer store.Close()
	snap, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, l.Snapshot(), snap)
}
