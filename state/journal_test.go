package state_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalPrune(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state"))
	defer store.Close()

	require.NoError(t, store.Record("old", 100))
	require.NoError(t, store.Record("new", 200))
	require.NoError(t, store.Prune(150))

	seen, err := store.Seen("old")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = store.Seen("new")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestJournalKeepsAccountsAndMeta(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "state"))
	defer store.Close()

	l := sampleLedger(t)
	_, err := store.Save(l.Snapshot())
	require.NoError(t, err)
	require.NoError(t, store.Record("req", 1))
	require.NoError(t, store.Prune(10))

	snap, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, l.Snapshot(), snap)
}

func TestReplayRejectedAfterRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)
	params := []byte(`["0x00000000000000000000000000000000000000aa",10]`)

	proof, err := auth.Sign(key, "token_transfer", params, now)
	require.NoError(t, err)

	store := openStore(t, path)
	v := auth.NewVerifier(time.Minute).WithClock(func() time.Time { return now }).WithJournal(store)
	_, err = v.Verify("token_transfer", params, proof)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store = openStore(t, path)
	defer store.Close()
	restarted := auth.NewVerifier(time.Minute).WithClock(func() time.Time { return now.Add(10 * time.Second) }).WithJournal(store)
	_, err = restarted.Verify("token_transfer", params, proof)
	assert.ErrorIs(t, err, auth.ErrReplay)

	fresh, err := auth.Sign(key, "token_transfer", params, now.Add(time.Second))
	require.NoError(t, err)
	caller, err := restarted.Verify("token_transfer", params, fresh)
	require.NoError(t, err)
	assert.Equal(t, ledger.Account(proof.From), caller)
}
