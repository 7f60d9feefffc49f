package ledger

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

const (
	DefaultName     = "Simple Token"
	DefaultSymbol   = "STK"
	DefaultDecimals = 8
)

// Account identifies a token holder. The ledger never looks inside it.
type Account string

// Metadata describes the token
type Metadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply uint64 `json:"total_supply"`
}

// Balance is one non-zero entry of the balance mapping
type Balance struct {
	Account Account `json:"account"`
	Amount  uint64  `json:"balance"`
}

// Ledger holds the balance mapping, the token metadata and the owner.
// All methods are safe for concurrent use; every mutation runs its
// check-then-mutate sequence under a single lock.
type Ledger struct {
	mu       sync.RWMutex
	owner    Account
	hasOwner bool
	meta     Metadata
	balances map[Account]uint64
	version  uint64
}

// New creates a ledger owned by creator with the default metadata.
// An empty creator yields a ledger without an owner, on which mint always fails.
func New(creator Account) *Ledger {
	return &Ledger{
		owner:    creator,
		hasOwner: creator != "",
		meta: Metadata{
			Name:     DefaultName,
			Symbol:   DefaultSymbol,
			Decimals: DefaultDecimals,
		},
		balances: make(map[Account]uint64),
	}
}

// Mint credits amount new tokens to the given account. Only the owner may mint.
func (l *Ledger) Mint(caller, to Account, amount uint64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.hasOwner || caller != l.owner {
		return "", ErrUnauthorized
	}
	if amount == 0 {
		return "", ErrInvalidAmount
	}
	// total supply bounds every balance, so checking it covers the credit too
	if l.meta.TotalSupply > math.MaxUint64-amount {
		return "", ErrOverflow
	}

	l.balances[to] += amount
	l.meta.TotalSupply += amount
	l.version++

	return fmt.Sprintf("Successfully minted %d tokens to %s", amount, to), nil
}

// Transfer moves amount from the caller to another account
func (l *Ledger) Transfer(caller, to Account, amount uint64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == 0 {
		return "", ErrInvalidAmount
	}
	if caller == to {
		return "", ErrSelfTransfer
	}
	if l.balances[caller] < amount {
		return "", ErrInsufficientBalance
	}

	l.debit(caller, amount)
	l.balances[to] += amount
	l.version++

	return fmt.Sprintf("Transferred %d tokens from %s to %s", amount, caller, to), nil
}

// Burn destroys amount tokens held by the caller
func (l *Ledger) Burn(caller Account, amount uint64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == 0 {
		return "", ErrInvalidAmount
	}
	if l.balances[caller] < amount {
		return "", ErrInsufficientBalance
	}

	l.debit(caller, amount)
	l.meta.TotalSupply -= amount
	l.version++

	return fmt.Sprintf("Successfully burned %d tokens", amount), nil
}

// debit assumes the balance was checked. Emptied entries are dropped.
func (l *Ledger) debit(account Account, amount uint64) {
	left := l.balances[account] - amount
	if left == 0 {
		delete(l.balances, account)
		return
	}
	l.balances[account] = left
}

// BalanceOf returns the balance of account, 0 when it holds nothing
func (l *Ledger) BalanceOf(account Account) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// MyBalance returns the caller's own balance
func (l *Ledger) MyBalance(caller Account) uint64 {
	return l.BalanceOf(caller)
}

// TokenInfo returns a copy of the current metadata
func (l *Ledger) TokenInfo() Metadata {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta
}

// Owner returns the minting principal, if any
func (l *Ledger) Owner() (Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner, l.hasOwner
}

// AllBalances lists every account holding tokens, ordered by account
func (l *Ledger) AllBalances() []Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sortedBalances()
}

func (l *Ledger) sortedBalances() []Balance {
	out := make([]Balance, 0, len(l.balances))
	for account, amount := range l.balances {
		if amount == 0 {
			continue
		}
		out = append(out, Balance{Account: account, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Account < out[j].Account
	})
	return out
}
