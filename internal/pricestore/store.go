// Package pricestore implements the item → (price, tradeable) mapping and
// its effective-price rule. The store is a process-wide singleton: loaded
// once (or on the scheduler's refresh cadence) then read concurrently.
package pricestore

import (
	"sync"
	"time"
)

type entry struct {
	price     int64
	tradeable bool
	known     bool
}

// Store is the price/effective-cost store. The zero value is not usable;
// construct with New.
type Store struct {
	mu            sync.RWMutex
	prices        map[int64]entry
	lastFetchedAt time.Time
}

// New returns an empty, ready-to-use Store.
func New() *Store {
	return &Store{prices: make(map[int64]entry)}
}

// SetPrice records price for id. A nil price implies untradeable unless
// tradeable is explicitly passed true (a known item whose current price is
// simply unavailable).
func (s *Store) SetPrice(id int64, price *int64, tradeable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if price == nil {
		s.prices[id] = entry{price: 0, tradeable: tradeable, known: false}
		return
	}
	s.prices[id] = entry{price: *price, tradeable: true, known: true}
}

// PriceQuote is one id's bulk-load input.
type PriceQuote struct {
	Price     *int64
	Tradeable bool
}

// SetPrices bulk-loads a map of id → PriceQuote.
func (s *Store) SetPrices(quotes map[int64]PriceQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range quotes {
		if q.Price == nil {
			s.prices[id] = entry{price: 0, tradeable: q.Tradeable, known: false}
			continue
		}
		s.prices[id] = entry{price: *q.Price, tradeable: true, known: true}
	}
}

// SetUntradeable marks id as untradeable (effective price 0, but distinct
// from "unknown").
func (s *Store) SetUntradeable(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[id] = entry{price: 0, tradeable: false, known: true}
}

// Clear empties the store. Called before every fresh load so a failed fetch
// never leaves a stale partial price set behind.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = make(map[int64]entry)
}

// GetPrice returns (0, true) for untradeable items, (0, false) for unknown
// items, and (price, true) otherwise.
func (s *Store) GetPrice(id int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.prices[id]
	if !ok {
		return 0, false
	}
	if !e.tradeable {
		return 0, true
	}
	if !e.known {
		return 0, false
	}
	return e.price, true
}

// EffectivePrice returns 0 if owned is true; otherwise behaves as GetPrice.
func (s *Store) EffectivePrice(id int64, owned bool) (int64, bool) {
	if owned {
		return 0, true
	}
	return s.GetPrice(id)
}

// WithinBudget reports whether id's effective price is within cap. An
// unknown price passes unless excludeUnknown is set.
func (s *Store) WithinBudget(id int64, cap int64, owned bool, excludeUnknown bool) bool {
	price, known := s.EffectivePrice(id, owned)
	if !known {
		return !excludeUnknown
	}
	return price <= cap
}

// LastFetchedAt returns the timestamp of the most recent successful load.
func (s *Store) LastFetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetchedAt
}

// Load replaces the store's contents with quotes in a single locked
// section and stamps lastFetchedAt. Used by the loader after a successful
// fetch; never called with a partial result.
func (s *Store) Load(quotes map[int64]PriceQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = make(map[int64]entry, len(quotes))
	for id, q := range quotes {
		if q.Price == nil {
			s.prices[id] = entry{price: 0, tradeable: q.Tradeable, known: false}
			continue
		}
		s.prices[id] = entry{price: *q.Price, tradeable: true, known: true}
	}
	s.lastFetchedAt = time.Now()
}

// Size returns the number of ids currently tracked, for diagnostics.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prices)
}
