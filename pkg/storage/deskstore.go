// Package storage persists the desk's order book to Pebble so a restarted
// service comes back with the same listings it went down with.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/tokendesk/tokendesk/pkg/desk"
)

// DeskStore snapshots the whole order book under one key after every
// committed mutation. The book is capacity-bounded and small, so a full
// rewrite is cheaper than per-order keys would be worth.
type DeskStore struct {
	db *pebble.DB
}

// keys: ob:orders -> JSON []desk.Order
func kOrders() []byte { return []byte("ob:orders") }

// NewDeskStore opens (or creates) the Pebble database at path.
func NewDeskStore(path string) (*DeskStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open desk db at %s: %w", path, err)
	}
	return &DeskStore{db: db}, nil
}

// Close closes the database.
func (s *DeskStore) Close() error { return s.db.Close() }

// SaveOrders persists the current book snapshot.
func (s *DeskStore) SaveOrders(orders []desk.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	if err := s.db.Set(kOrders(), data, pebble.Sync); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	return nil
}

// LoadOrders returns the persisted book, or an empty book if none was saved.
func (s *DeskStore) LoadOrders() ([]desk.Order, error) {
	data, closer, err := s.db.Get(kOrders())
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	defer closer.Close()

	var orders []desk.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}
	return orders, nil
}
