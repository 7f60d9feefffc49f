package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/airchains-network/token-ledger/auth"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/airchains-network/token-ledger/state"
	"github.com/airchains-network/token-ledger/types"
	"github.com/sirupsen/logrus"
)

// Submitter receives the ledger snapshot after every successful mutation
type Submitter interface {
	Submit(snap ledger.Snapshot)
}

// Dispatcher maps JSON-RPC calls onto ledger operations
type Dispatcher struct {
	ledger   *ledger.Ledger
	verifier *auth.Verifier
	persist  Submitter
	log      *logrus.Logger
}

// NewDispatcher creates a dispatcher. persist may be nil.
func NewDispatcher(l *ledger.Ledger, verifier *auth.Verifier, persist Submitter, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		ledger:   l,
		verifier: verifier,
		persist:  persist,
		log:      log,
	}
}

type handlerFunc func(d *Dispatcher, caller ledger.Account, params []json.RawMessage) (interface{}, *types.RPCError)

type method struct {
	signed  bool
	mutates bool
	arity   int
	handle  handlerFunc
}

var methods = map[string]method{
	types.MethodMint:           {signed: true, mutates: true, arity: 2, handle: handleMint},
	types.MethodTransfer:       {signed: true, mutates: true, arity: 2, handle: handleTransfer},
	types.MethodBurn:           {signed: true, mutates: true, arity: 1, handle: handleBurn},
	types.MethodMyBalance:      {signed: true, arity: 0, handle: handleMyBalance},
	types.MethodBalanceOf:      {arity: 1, handle: handleBalanceOf},
	types.MethodGetTokenInfo:   {arity: 0, handle: handleTokenInfo},
	types.MethodGetOwner:       {arity: 0, handle: handleOwner},
	types.MethodGetAllBalances: {arity: 0, handle: handleAllBalances},
	types.MethodStateRoot:      {arity: 0, handle: handleStateRoot},
}

// Handle runs one request and always returns a response
func (d *Dispatcher) Handle(req *types.RPCRequest) *types.RPCResponse {
	resp := &types.RPCResponse{Jsonrpc: "2.0", ID: req.ID}

	if req.Jsonrpc != "2.0" || req.Method == "" {
		resp.Error = &types.RPCError{Code: types.CodeInvalidRequest, Message: "Invalid JSON-RPC request"}
		return resp
	}
	m, ok := methods[req.Method]
	if !ok {
		resp.Error = &types.RPCError{Code: types.CodeMethodNotFound, Message: fmt.Sprintf("Method %s not found", req.Method)}
		return resp
	}

	params, err := splitParams(req.Params)
	if err != nil || len(params) != m.arity {
		resp.Error = invalidParams(fmt.Sprintf("%s expects %d params", req.Method, m.arity))
		return resp
	}

	var caller ledger.Account
	if m.signed {
		caller, err = d.verifier.Verify(req.Method, req.Params, req.Auth)
		if err != nil {
			d.log.Warnf("Rejected %s: %v", req.Method, err)
			resp.Error = &types.RPCError{Code: types.CodeAuthFailed, Message: err.Error()}
			if errors.Is(err, auth.ErrReplay) {
				resp.Error.Data = auth.KindReplay
			}
			return resp
		}
	}

	result, rpcErr := m.handle(d, caller, params)
	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}

	if m.mutates {
		d.log.Infof("%s by %s: %s", req.Method, caller, result.(types.MessageResult).Message)
		if d.persist != nil {
			d.persist.Submit(d.ledger.Snapshot())
		}
	}

	data, err := json.Marshal(result)
	if err != nil {
		d.log.Errorf("Failed to encode %s result: %v", req.Method, err)
		resp.Error = &types.RPCError{Code: types.CodeInternal, Message: "Failed to encode result"}
		return resp
	}
	resp.Result = data
	return resp
}

func splitParams(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var params []json.RawMessage
	if err := json.Unmarshal(trimmed, &params); err != nil {
		return nil, err
	}
	return params, nil
}

func invalidParams(msg string) *types.RPCError {
	return &types.RPCError{Code: types.CodeInvalidParams, Message: msg}
}

func parseAccount(raw json.RawMessage) (ledger.Account, *types.RPCError) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalidParams("Account must be a hex address string")
	}
	account, err := auth.Normalize(s)
	if err != nil {
		return "", invalidParams(err.Error())
	}
	return account, nil
}

// parseAmount accepts a JSON integer or a decimal string of base units
func parseAmount(raw json.RawMessage) (uint64, *types.RPCError) {
	text := string(bytes.TrimSpace(raw))
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = s
	}
	amount, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, invalidParams(fmt.Sprintf("Invalid amount %s", text))
	}
	return amount, nil
}

// ledgerError converts a rejected ledger operation into its wire error
func ledgerError(err error) *types.RPCError {
	codes := map[string]int{
		ledger.KindUnauthorized:        types.CodeUnauthorized,
		ledger.KindInvalidAmount:       types.CodeInvalidAmount,
		ledger.KindSelfTransfer:        types.CodeSelfTransfer,
		ledger.KindInsufficientBalance: types.CodeInsufficientBalance,
		ledger.KindOverflow:            types.CodeOverflow,
	}
	kind := ledger.ErrorKind(err)
	code, ok := codes[kind]
	if !ok {
		return &types.RPCError{Code: types.CodeInternal, Message: err.Error()}
	}
	return &types.RPCError{Code: code, Message: err.Error(), Data: kind}
}

func handleMint(d *Dispatcher, caller ledger.Account, params []json.RawMessage) (interface{}, *types.RPCError) {
	to, rpcErr := parseAccount(params[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params[1])
	if rpcErr != nil {
		return nil, rpcErr
	}
	msg, err := d.ledger.Mint(caller, to, amount)
	if err != nil {
		return nil, ledgerError(err)
	}
	return types.MessageResult{Message: msg}, nil
}

func handleTransfer(d *Dispatcher, caller ledger.Account, params []json.RawMessage) (interface{}, *types.RPCError) {
	to, rpcErr := parseAccount(params[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params[1])
	if rpcErr != nil {
		return nil, rpcErr
	}
	msg, err := d.ledger.Transfer(caller, to, amount)
	if err != nil {
		return nil, ledgerError(err)
	}
	return types.MessageResult{Message: msg}, nil
}

func handleBurn(d *Dispatcher, caller ledger.Account, params []json.RawMessage) (interface{}, *types.RPCError) {
	amount, rpcErr := parseAmount(params[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	msg, err := d.ledger.Burn(caller, amount)
	if err != nil {
		return nil, ledgerError(err)
	}
	return types.MessageResult{Message: msg}, nil
}

func (d *Dispatcher) balanceResult(account ledger.Account, balance uint64) types.BalanceResult {
	return types.BalanceResult{
		Account: string(account),
		Balance: balance,
		Display: ledger.FormatAmount(balance, d.ledger.TokenInfo().Decimals),
	}
}

func handleBalanceOf(d *Dispatcher, _ ledger.Account, params []json.RawMessage) (interface{}, *types.RPCError) {
	account, rpcErr := parseAccount(params[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	return d.balanceResult(account, d.ledger.BalanceOf(account)), nil
}

func handleMyBalance(d *Dispatcher, caller ledger.Account, _ []json.RawMessage) (interface{}, *types.RPCError) {
	return d.balanceResult(caller, d.ledger.MyBalance(caller)), nil
}

func handleTokenInfo(d *Dispatcher, _ ledger.Account, _ []json.RawMessage) (interface{}, *types.RPCError) {
	return d.ledger.TokenInfo(), nil
}

func handleOwner(d *Dispatcher, _ ledger.Account, _ []json.RawMessage) (interface{}, *types.RPCError) {
	owner, ok := d.ledger.Owner()
	if !ok {
		return nil, nil
	}
	return owner, nil
}

func handleAllBalances(d *Dispatcher, _ ledger.Account, _ []json.RawMessage) (interface{}, *types.RPCError) {
	return d.ledger.AllBalances(), nil
}

func handleStateRoot(d *Dispatcher, _ ledger.Account, _ []json.RawMessage) (interface{}, *types.RPCError) {
	root, err := state.Root(d.ledger.Snapshot())
	if err != nil {
		return nil, &types.RPCError{Code: types.CodeInternal, Message: err.Error()}
	}
	return "0x" + root, nil
}
