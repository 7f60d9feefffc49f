package auth

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airchains-network/token-ledger/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrMissing   = errors.New("request is not signed")
	ErrSignature = errors.New("invalid signature")
	ErrSigner    = errors.New("signature does not match sender")
	ErrStale     = errors.New("request timestamp outside the accepted window")
	ErrReplay    = errors.New("request already seen")
)

// KindReplay names ErrReplay on the wire
const KindReplay = "Replay"

// Proof is the identity claim attached to a request
type Proof struct {
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// Digest is the hash a caller signs: method, raw params and timestamp
func Digest(method string, params []byte, timestamp int64) []byte {
	return crypto.Keccak256(
		[]byte(method), []byte("\n"),
		params, []byte("\n"),
		[]byte(strconv.FormatInt(timestamp, 10)),
	)
}

// AddressOf renders the account identity for a public key
func AddressOf(pub ecdsa.PublicKey) ledger.Account {
	return ledger.Account(strings.ToLower(crypto.PubkeyToAddress(pub).Hex()))
}

// Normalize validates a hex address and returns it as an account identity
func Normalize(addr string) (ledger.Account, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return ledger.Account(strings.ToLower(common.HexToAddress(addr).Hex())), nil
}

// Sign produces the proof for a request at the given time
func Sign(key *ecdsa.PrivateKey, method string, params []byte, at time.Time) (*Proof, error) {
	ts := at.Unix()
	sig, err := crypto.Sign(Digest(method, params, ts), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	return &Proof{
		From:      string(AddressOf(key.PublicKey)),
		Timestamp: ts,
		Signature: hexutil.Encode(sig),
	}, nil
}

// Journal persists accepted request keys so replays are caught across restarts
type Journal interface {
	// Seen reports whether key was recorded
	Seen(key string) (bool, error)
	// Record stores key with the request timestamp
	Record(key string, ts int64) error
	// Prune drops every key recorded with a timestamp before cutoff
	Prune(cutoff int64) error
}

// Verifier resolves caller identities from signed requests
type Verifier struct {
	maxSkew time.Duration
	now     func() time.Time
	journal Journal

	mu   sync.Mutex
	seen map[string]int64
}

// NewVerifier accepts timestamps within maxSkew of the local clock
func NewVerifier(maxSkew time.Duration) *Verifier {
	return &Verifier{
		maxSkew: maxSkew,
		now:     time.Now,
		seen:    make(map[string]int64),
	}
}

// WithClock replaces the time source, for tests
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// WithJournal backs the replay check with j
func (v *Verifier) WithJournal(j Journal) *Verifier {
	v.journal = j
	return v
}

// Verify checks proof against the request and returns the caller identity
func (v *Verifier) Verify(method string, params []byte, proof *Proof) (ledger.Account, error) {
	if proof == nil || proof.Signature == "" {
		return "", ErrMissing
	}
	claimed, err := Normalize(proof.From)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigner, err)
	}

	now := v.now()
	at := time.Unix(proof.Timestamp, 0)
	if at.Before(now.Add(-v.maxSkew)) || at.After(now.Add(v.maxSkew)) {
		return "", ErrStale
	}

	sig, err := hexutil.Decode(proof.Signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", ErrSignature
	}
	// only the low-S form is accepted, so each request has one valid signature
	r, s := new(big.Int).SetBytes(sig[:32]), new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return "", fmt.Errorf("%w: non-canonical signature", ErrSignature)
	}
	digest := Digest(method, params, proof.Timestamp)
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if AddressOf(*pub) != claimed {
		return "", ErrSigner
	}

	if err := v.remember(string(claimed)+":"+hex.EncodeToString(digest), proof.Timestamp, now); err != nil {
		return "", err
	}
	return claimed, nil
}

// remember records a request key until it can no longer pass the window check
func (v *Verifier) remember(key string, ts int64, now time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[key]; ok {
		return ErrReplay
	}
	if v.journal != nil {
		seen, err := v.journal.Seen(key)
		if err != nil {
			return fmt.Errorf("failed to check request journal: %w", err)
		}
		if seen {
			return ErrReplay
		}
	}

	cutoff := now.Add(-v.maxSkew).Unix()
	for k, t := range v.seen {
		if t < cutoff {
			delete(v.seen, k)
		}
	}
	if v.journal != nil {
		if err := v.journal.Prune(cutoff); err != nil {
			return fmt.Errorf("failed to prune request journal: %w", err)
		}
		if err := v.journal.Record(key, ts); err != nil {
			return fmt.Errorf("failed to record request: %w", err)
		}
	}
	v.seen[key] = ts
	return nil
}
