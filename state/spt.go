package state

import (
	"encoding/hex"
	"sort"

	"github.com/airchains-network/token-ledger/ledger"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// SPTNode represents a node in the sparse prefix tree
type SPTNode struct {
	Hash     []byte
	Children map[byte]*SPTNode
	Value    []byte
	IsLeaf   bool
}

// NewSPTNode creates a new SPT node
func NewSPTNode() *SPTNode {
	return &SPTNode{
		Children: make(map[byte]*SPTNode),
	}
}

// SPT is a byte-wise prefix tree whose root hash commits to every leaf
type SPT struct {
	Root  *SPTNode
	dirty bool
}

// NewSPT creates an empty tree
func NewSPT() *SPT {
	return &SPT{
		Root: NewSPTNode(),
	}
}

func keccak(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// hash commits to the present children only, each tagged with its branch byte
func (n *SPTNode) hash() []byte {
	if n.IsLeaf {
		return n.Value
	}

	branches := make([]int, 0, len(n.Children))
	for b := range n.Children {
		branches = append(branches, int(b))
	}
	sort.Ints(branches)

	buf := make([]byte, 0, len(branches)*33)
	for _, b := range branches {
		buf = append(buf, byte(b))
		buf = append(buf, n.Children[byte(b)].Hash...)
	}
	return keccak(buf)
}

// Insert stores value under key. Hashes are recomputed lazily by RootHash.
func (t *SPT) Insert(key []byte, value []byte) {
	current := t.Root
	for _, b := range key {
		if _, exists := current.Children[b]; !exists {
			current.Children[b] = NewSPTNode()
		}
		current = current.Children[b]
	}
	current.IsLeaf = true
	current.Value = value
	current.Hash = value
	t.dirty = true
}

// Get retrieves a value from the tree
func (t *SPT) Get(key []byte) ([]byte, bool) {
	current := t.Root
	for _, b := range key {
		child, exists := current.Children[b]
		if !exists {
			return nil, false
		}
		current = child
	}
	if current.IsLeaf {
		return current.Value, true
	}
	return nil, false
}

func (t *SPT) updateNodeHash(node *SPTNode) {
	if node.IsLeaf {
		return
	}
	for _, child := range node.Children {
		t.updateNodeHash(child)
	}
	node.Hash = node.hash()
}

// RootHash returns the hex root hash
func (t *SPT) RootHash() string {
	if t.dirty || t.Root.Hash == nil {
		t.updateNodeHash(t.Root)
		t.dirty = false
	}
	return hex.EncodeToString(t.Root.Hash)
}

type rlpAccount struct {
	Account string
	Balance uint64
}

type rlpHeader struct {
	AccountsRoot []byte
	Owner        string
	Name         string
	Symbol       string
	Decimals     uint8
	TotalSupply  uint64
}

// accountKey hashes the opaque account so every key has the same depth
func accountKey(account ledger.Account) []byte {
	return keccak([]byte(account))
}

func accountLeaf(b ledger.Balance) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(rlpAccount{Account: string(b.Account), Balance: b.Amount})
	if err != nil {
		return nil, err
	}
	return keccak(enc), nil
}

// Root computes the state root of a snapshot: the account tree root bound
// together with the owner and the token metadata.
func Root(snap ledger.Snapshot) (string, error) {
	spt := NewSPT()
	for _, b := range snap.Balances {
		leaf, err := accountLeaf(b)
		if err != nil {
			return "", err
		}
		spt.Insert(accountKey(b.Account), leaf)
	}
	accountsRoot, err := hex.DecodeString(spt.RootHash())
	if err != nil {
		return "", err
	}

	header, err := rlp.EncodeToBytes(rlpHeader{
		AccountsRoot: accountsRoot,
		Owner:        string(snap.Owner),
		Name:         snap.Metadata.Name,
		Symbol:       snap.Metadata.Symbol,
		Decimals:     snap.Metadata.Decimals,
		TotalSupply:  snap.Metadata.TotalSupply,
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(keccak(header)), nil
}
