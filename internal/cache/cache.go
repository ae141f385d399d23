// Package cache persists the most recent successful hydration so the
// dashboard can still open, read-only, when the ledger service is down.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"platen/internal/ledger"
)

var bucketSnapshots = []byte("snapshots")

// ErrNoSnapshot is returned by Load when the cache holds nothing for the
// requested period.
var ErrNoSnapshot = errors.New("no cached snapshot for period")

// Store is a small bbolt-backed cache keyed by accounting period. One
// snapshot per period; a new save for the same period replaces the old one.
type Store struct {
	db *bolt.DB
}

// envelope wraps the payload with the time it was captured so the UI can
// show how stale an offline view is.
type envelope struct {
	SavedAt time.Time             `json:"saved_at"`
	Orders  ledger.OrdersResponse `json:"orders"`
}

// Open opens the cache database at path, creating parent directories and
// the snapshot bucket as needed. The one-second timeout keeps a second
// process from hanging forever on the file lock.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores orders as the snapshot for its period, replacing any
// previous one.
func (s *Store) Save(orders *ledger.OrdersResponse) error {
	if s == nil || s.db == nil {
		return errors.New("cache is not open")
	}
	if orders == nil || orders.Period == "" {
		return errors.New("snapshot has no period")
	}

	data, err := json.Marshal(envelope{SavedAt: time.Now().UTC(), Orders: *orders})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte(orders.Period), data)
	})
}

// Load returns the cached snapshot for period and the time it was saved.
// A period with no snapshot returns ErrNoSnapshot.
func (s *Store) Load(period ledger.Period) (*ledger.OrdersResponse, time.Time, error) {
	if s == nil || s.db == nil {
		return nil, time.Time{}, errors.New("cache is not open")
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSnapshots).Get([]byte(period)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read cache: %w", err)
	}
	if data == nil {
		return nil, time.Time{}, ErrNoSnapshot
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return &env.Orders, env.SavedAt, nil
}

// Periods lists the periods that currently have a snapshot, in key order.
func (s *Store) Periods() ([]ledger.Period, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("cache is not open")
	}

	var periods []ledger.Period
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, _ []byte) error {
			periods = append(periods, ledger.Period(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	return periods, nil
}
