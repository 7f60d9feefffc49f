package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable copy of the whole ledger state
type Snapshot struct {
	Version  uint64    `json:"version"`
	Owner    Account   `json:"owner,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Balances []Balance `json:"balances"`
}

// Snapshot copies the ledger state in one consistent read
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Version:  l.version,
		Metadata: l.meta,
		Balances: l.sortedBalances(),
	}
	if l.hasOwner {
		snap.Owner = l.owner
	}
	return snap
}

// Restore rebuilds a ledger from a snapshot, refusing one whose balances
// do not add up to its total supply.
func Restore(snap Snapshot) (*Ledger, error) {
	l := &Ledger{
		owner:    snap.Owner,
		hasOwner: snap.Owner != "",
		meta:     snap.Metadata,
		balances: make(map[Account]uint64, len(snap.Balances)),
		version:  snap.Version,
	}

	var sum uint64
	for _, b := range snap.Balances {
		if b.Amount == 0 {
			return nil, fmt.Errorf("%w: zero balance for %s", ErrCorruptSnapshot, b.Account)
		}
		if _, dup := l.balances[b.Account]; dup {
			return nil, fmt.Errorf("%w: duplicate account %s", ErrCorruptSnapshot, b.Account)
		}
		if sum+b.Amount < sum {
			return nil, fmt.Errorf("%w: balances overflow", ErrCorruptSnapshot)
		}
		sum += b.Amount
		l.balances[b.Account] = b.Amount
	}
	if sum != snap.Metadata.TotalSupply {
		return nil, fmt.Errorf("%w: balances sum to %d, total supply is %d",
			ErrCorruptSnapshot, sum, snap.Metadata.TotalSupply)
	}
	return l, nil
}

// FormatAmount renders base units as a decimal string with the given number
// of decimals, e.g. 150000000 with 8 decimals is "1.5".
func FormatAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}
