package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/airchains-network/token-ledger/types"
	"github.com/sirupsen/logrus"
)

const maxRetries = 3

// ErrMaybeApplied is returned when a retried signed request is refused as a replay:
// an earlier attempt reached the daemon and was most likely applied, but its response was lost.
var ErrMaybeApplied = errors.New("request may already have been applied")

// Client calls the token daemon's JSON-RPC endpoint.
// When Key is set every request is signed with it.
type Client struct {
	URL  string
	Key  *ecdsa.PrivateKey
	HTTP *http.Client
	Log  *logrus.Logger
}

// NewClient creates a client for url, signing with key when it is not nil
func NewClient(url string, key *ecdsa.PrivateKey) *Client {
	return &Client{
		URL:  url,
		Key:  key,
		HTTP: &http.Client{Timeout: 30 * time.Second},
		Log:  logrus.New(),
	}
}

// Call sends method with params and decodes the result into out (which may be nil).
// Transport failures are retried with the same signed request, which the daemon
// accepts at most once. If a retry is refused as a replay, Call returns ErrMaybeApplied.
func (c *Client) Call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	req := types.RPCRequest{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      1,
	}
	if c.Key != nil {
		req.Auth, err = auth.Sign(c.Key, method, rawParams, time.Now())
		if err != nil {
			return err
		}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var rpcResp *types.RPCResponse
	retried := false
	for attempt := 0; attempt < maxRetries; attempt++ {
		retried = attempt > 0
		rpcResp, err = c.post(ctx, data)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warnf("RPC call attempt %d failed: %v", attempt+1, err)
		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second * time.Duration(attempt+1)):
			}
		}
	}
	if err != nil {
		return fmt.Errorf("RPC call failed after %d retries: %w", maxRetries, err)
	}

	if rpcResp.Error != nil {
		if retried && req.Auth != nil && rpcResp.Error.Data == auth.KindReplay {
			return fmt.Errorf("%w: %v", ErrMaybeApplied, rpcResp.Error)
		}
		return rpcResp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) (*types.RPCResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rpcResp types.RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &rpcResp, nil
}

// Mint credits amount to the given account; the client key must be the owner's
func (c *Client) Mint(ctx context.Context, to string, amount uint64) (string, error) {
	var res types.MessageResult
	err := c.Call(ctx, &res, types.MethodMint, to, amount)
	return res.Message, err
}

// Transfer moves amount from the client's account to another
func (c *Client) Transfer(ctx context.Context, to string, amount uint64) (string, error) {
	var res types.MessageResult
	err := c.Call(ctx, &res, types.MethodTransfer, to, amount)
	return res.Message, err
}

// Burn destroys amount of the client's own tokens
func (c *Client) Burn(ctx context.Context, amount uint64) (string, error) {
	var res types.MessageResult
	err := c.Call(ctx, &res, types.MethodBurn, amount)
	return res.Message, err
}

func (c *Client) BalanceOf(ctx context.Context, account string) (types.BalanceResult, error) {
	var res types.BalanceResult
	err := c.Call(ctx, &res, types.MethodBalanceOf, account)
	return res, err
}

func (c *Client) MyBalance(ctx context.Context) (types.BalanceResult, error) {
	var res types.BalanceResult
	err := c.Call(ctx, &res, types.MethodMyBalance)
	return res, err
}

func (c *Client) TokenInfo(ctx context.Context) (ledger.Metadata, error) {
	var res ledger.Metadata
	err := c.Call(ctx, &res, types.MethodGetTokenInfo)
	return res, err
}

// Owner returns the owner address, "" when the ledger has none
func (c *Client) Owner(ctx context.Context) (string, error) {
	var res *string
	if err := c.Call(ctx, &res, types.MethodGetOwner); err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return *res, nil
}

func (c *Client) AllBalances(ctx context.Context) ([]ledger.Balance, error) {
	var res []ledger.Balance
	err := c.Call(ctx, &res, types.MethodGetAllBalances)
	return res, err
}

func (c *Client) StateRoot(ctx context.Context) (string, error) {
	var res string
	err := c.Call(ctx, &res, types.MethodStateRoot)
	return res, err
}
