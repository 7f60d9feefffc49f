package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/airchains-network/token-ledger/client"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/airchains-network/token-ledger/proxy"
	"github.com/airchains-network/token-ledger/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAgainstDaemon(t *testing.T) {
	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	daveKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := string(auth.AddressOf(ownerKey.PublicKey))
	dave := string(auth.AddressOf(daveKey.PublicKey))

	log := logrus.New()
	log.SetOutput(io.Discard)
	l := ledger.New(ledger.Account(owner))
	d := proxy.NewDispatcher(l, auth.NewVerifier(time.Minute), nil, log)
	srv := httptest.NewServer(proxy.NewServer(d, log).RPCRouter())
	defer srv.Close()

	ctx := context.Background()
	asOwner := client.NewClient(srv.URL, ownerKey)
	asDave := client.NewClient(srv.URL, daveKey)
	anonymous := client.NewClient(srv.URL, nil)

	msg, err := asOwner.Mint(ctx, owner, 100)
	require.NoError(t, err)
	assert.Contains(t, msg, "Successfully minted 100 tokens")

	_, err = asOwner.Transfer(ctx, dave, 40)
	require.NoError(t, err)

	_, err = asOwner.Transfer(ctx, owner, 10)
	var rpcErr *types.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, ledger.KindSelfTransfer, rpcErr.Data)

	_, err = asDave.Mint(ctx, dave, 5)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, ledger.KindUnauthorized, rpcErr.Data)

	_, err = asDave.Burn(ctx, 40)
	require.NoError(t, err)

	_, err = asOwner.Transfer(ctx, dave, 1000)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, ledger.KindInsufficientBalance, rpcErr.Data)

	mine, err := asOwner.MyBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), mine.Balance)

	bal, err := anonymous.BalanceOf(ctx, dave)
	require.NoError(t, err)
	assert.Zero(t, bal.Balance)

	info, err := anonymous.TokenInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), info.TotalSupply)

	gotOwner, err := anonymous.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, gotOwner)

	all, err := anonymous.AllBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Balance{{Account: ledger.Account(owner), Amount: 60}}, all)

	root, err := anonymous.StateRoot(ctx)
	require.NoError(t, err)
	assert.Len(t, root, 66)
}

func TestClientUnsignedMutationRejected(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	d := proxy.NewDispatcher(ledger.New("0x00000000000000000000000000000000000000aa"), auth.NewVerifier(time.Minute), nil, log)
	srv := httptest.NewServer(proxy.NewServer(d, log).RPCRouter())
	defer srv.Close()

	_, err := client.NewClient(srv.URL, nil).Burn(context.Background(), 1)
	var rpcErr *types.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, types.CodeAuthFailed, rpcErr.Code)
}

func TestClientGivesUpOnDeadServer(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c := client.NewClient(url, nil)
	c.Log.SetOutput(io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.TokenInfo(ctx)
	assert.Error(t, err)
}

func TestClientReportsLostResponse(t *testing.T) {
	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := auth.AddressOf(ownerKey.PublicKey)

	log := logrus.New()
	log.SetOutput(io.Discard)
	l := ledger.New(owner)
	router := proxy.NewServer(proxy.NewDispatcher(l, auth.NewVerifier(time.Minute), nil, log), log).RPCRouter()

	// the first request is applied but its connection drops before the reply
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			router.ServeHTTP(httptest.NewRecorder(), r)
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		router.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := client.NewClient(srv.URL, ownerKey)
	c.Log.SetOutput(io.Discard)
	_, err = c.Mint(context.Background(), string(owner), 100)
	assert.ErrorIs(t, err, client.ErrMaybeApplied)
	assert.Equal(t, uint64(100), l.BalanceOf(owner))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
