package types

import (
	"encoding/json"
	"fmt"

	"github.com/airchains-network/token-ledger/auth"
)

// JSON-RPC method names served by the token daemon
const (
	MethodMint           = "token_mint"
	MethodTransfer       = "token_transfer"
	MethodBurn           = "token_burn"
	MethodBalanceOf      = "token_balanceOf"
	MethodMyBalance      = "token_myBalance"
	MethodGetTokenInfo   = "token_getTokenInfo"
	MethodGetOwner       = "token_getOwner"
	MethodGetAllBalances = "token_getAllBalances"
	MethodStateRoot      = "token_stateRoot"
)

// JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	CodeUnauthorized        = -32001
	CodeInvalidAmount       = -32002
	CodeSelfTransfer        = -32003
	CodeInsufficientBalance = -32004
	CodeOverflow            = -32005
	CodeAuthFailed          = -32010
)

// RPCRequest is a JSON-RPC 2.0 request; Auth carries the caller proof
type RPCRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
	Auth    *auth.Proof     `json:"auth,omitempty"`
}

// RPCError is the error member of a response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("%s (%s, code %d)", e.Message, e.Data, e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// RPCResponse is a JSON-RPC 2.0 response
type RPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

// MessageResult is returned by mint, transfer and burn
type MessageResult struct {
	Message string `json:"message"`
}

// BalanceResult is returned by balanceOf and myBalance
type BalanceResult struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
	Display string `json:"display"`
}
