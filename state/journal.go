package state

import (
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
)

const seenPrefix = "seen:"

// Seen reports whether a request key was recorded
func (s *Store) Seen(key string) (bool, error) {
	data, err := s.db.Get([]byte(seenPrefix + key))
	if err != nil {
		return false, fmt.Errorf("failed to get request %s: %v", key, err)
	}
	return data != nil, nil
}

// Record stores a request key with its timestamp
func (s *Store) Record(key string, ts int64) error {
	batch := new(leveldb.Batch)
	batch.Put([]byte(seenPrefix+key), []byte(strconv.FormatInt(ts, 10)))
	if err := s.db.Write(batch); err != nil {
		return fmt.Errorf("failed to record request %s: %v", key, err)
	}
	return nil
}

// Prune drops request keys recorded with a timestamp before cutoff
func (s *Store) Prune(cutoff int64) error {
	batch := new(leveldb.Batch)
	err := s.db.Iterate([]byte(seenPrefix), func(key, value []byte) error {
		ts, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil || ts < cutoff {
			batch.Delete(append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan request journal: %v", err)
	}
	if batch.Len() == 0 {
		return nil
	}
	return s.db.Write(batch)
}
