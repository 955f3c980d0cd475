// Package cache implements the expiring key-value store backing the resolver.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// BadgerStore implements the RateStore interface on top of BadgerDB,
// namespacing every key with a per-resolver prefix. Expiration is handled
// by Badger's native entry TTL.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

// NewBadgerStore creates a store scoped to the given namespace prefix.
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	if prefix == "" {
		prefix = "rates"
	}
	return &BadgerStore{db: db, prefix: prefix}
}

func (s *BadgerStore) key(k string) []byte {
	return []byte(s.prefix + ":" + k)
}

// Get returns the value stored under key, or ok=false if the key is absent
// or expired.
func (s *BadgerStore) Get(key string) ([]byte, bool, error) {
	var val []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte(nil), v...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}

	return val, true, nil
}

// Set stores value under key for the given TTL.
func (s *BadgerStore) Set(key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(s.key(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}
