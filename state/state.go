package state

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/airchains-network/token-ledger/db"
	"github.com/airchains-network/token-ledger/ledger"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	accountPrefix = "account:"
	metaKey       = "meta"
)

type storedMeta struct {
	Version  uint64          `json:"version"`
	Owner    ledger.Account  `json:"owner,omitempty"`
	Metadata ledger.Metadata `json:"metadata"`
}

type storedAccount struct {
	Balance uint64 `json:"balance"`
}

// Store keeps the latest ledger snapshot in a key-value database
type Store struct {
	db      db.DB
	mu      sync.Mutex
	version uint64
	loaded  bool
}

// NewStore wraps an open database
func NewStore(database db.DB) *Store {
	return &Store{db: database}
}

// Open opens the LevelDB at path and wraps it in a Store
func Open(path string) (*Store, error) {
	database, err := db.NewLevelDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	return NewStore(database), nil
}

// Load reads the stored snapshot. found is false on an empty database.
func (s *Store) Load() (ledger.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap ledger.Snapshot
	data, err := s.db.Get([]byte(metaKey))
	if err != nil {
		return snap, false, fmt.Errorf("failed to get ledger metadata: %v", err)
	}
	if data == nil {
		s.loaded = true
		return snap, false, nil
	}

	var meta storedMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return snap, false, fmt.Errorf("failed to decode ledger metadata: %v", err)
	}
	snap.Version = meta.Version
	snap.Owner = meta.Owner
	snap.Metadata = meta.Metadata

	err = s.db.Iterate([]byte(accountPrefix), func(key, value []byte) error {
		account := ledger.Account(key[len(accountPrefix):])
		var acc storedAccount
		if err := json.Unmarshal(value, &acc); err != nil {
			return fmt.Errorf("failed to decode account %s: %v", account, err)
		}
		snap.Balances = append(snap.Balances, ledger.Balance{Account: account, Amount: acc.Balance})
		return nil
	})
	if err != nil {
		return snap, false, err
	}

	s.version = meta.Version
	s.loaded = true
	return snap, true, nil
}

// Save writes snap in a single batch, replacing the previous one.
// It returns false without writing when snap is older than what is stored.
func (s *Store) Save(snap ledger.Snapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && snap.Version < s.version {
		return false, nil
	}

	batch := new(leveldb.Batch)
	keep := make(map[string]struct{}, len(snap.Balances))
	for _, b := range snap.Balances {
		key := accountPrefix + string(b.Account)
		data, err := json.Marshal(storedAccount{Balance: b.Amount})
		if err != nil {
			return false, fmt.Errorf("failed to encode account: %v", err)
		}
		batch.Put([]byte(key), data)
		keep[key] = struct{}{}
	}

	// accounts that emptied since the last save
	err := s.db.Iterate([]byte(accountPrefix), func(key, _ []byte) error {
		if _, ok := keep[string(key)]; !ok {
			batch.Delete(append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to scan accounts: %v", err)
	}

	data, err := json.Marshal(storedMeta{Version: snap.Version, Owner: snap.Owner, Metadata: snap.Metadata})
	if err != nil {
		return false, fmt.Errorf("failed to encode ledger metadata: %v", err)
	}
	batch.Put([]byte(metaKey), data)

	if err := s.db.Write(batch); err != nil {
		return false, fmt.Errorf("failed to write snapshot: %v", err)
	}
	s.version = snap.Version
	s.loaded = true
	return true, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
