// Package cart maintains the user's pending purchase selections as the
// single source of truth, persisted to local storage across restarts.
package cart

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"labelmart/localstore"
	"labelmart/notify"
)

// Store owns the CartState. All mutation goes through AddItem, RemoveItem
// and Clear; every mutation is written through to storage best-effort.
type Store struct {
	storage  localstore.Store
	notifier notify.Notifier
	logger   *zap.Logger

	mu    sync.Mutex
	state State
}

func NewStore(storage localstore.Store, notifier notify.Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
}

// Load hydrates the cart from storage. Each persisted item is replayed
// through the add path so the replace-on-duplicate-key rule holds even for
// stored data. Malformed or missing data yields an empty cart, never an error.
func (s *Store) Load() {
	raw, ok, err := s.storage.Get(localstore.KeyCart)
	if err != nil {
		s.logger.Warn("cart: read stored cart", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var stored State
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("cart: discard malformed stored cart", zap.Error(err))
		return
	}

	s.mu.Lock()
	for _, item := range stored.Items {
		s.applyAdd(item)
	}
	s.mu.Unlock()
}

// AddItem builds a line item from the three selections and adds it to the
// cart, replacing any existing item with the same key in place.
func (s *Store) AddItem(p Product, size Size, qty Quantity) {
	item := LineItem{
		ProductID:      p.ID,
		SizeID:         size.ID,
		QuantityID:     qty.ID,
		ProductName:    p.Name,
		Dimensions:     size.Dimensions,
		ImageURL:       p.ImageURL,
		Price:          qty.Price,
		QuantityAmount: qty.Amount,
	}

	s.mu.Lock()
	s.applyAdd(item)
	s.persistLocked()
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Notify(notify.Notification{
			Title:       "Added to cart",
			Description: fmt.Sprintf("%s (%d labels)", p.Name, qty.Amount),
			Severity:    notify.SeverityNormal,
		})
	}
}

// RemoveItem deletes the matching line item. Removing an absent key is a no-op.
func (s *Store) RemoveItem(productID, sizeID, quantityID string) {
	key := Key{ProductID: productID, SizeID: sizeID, QuantityID: quantityID}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.state.Items {
		if item.Key() == key {
			s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
			s.recomputeLocked()
			s.persistLocked()
			return
		}
	}
}

// Clear resets the cart to its empty initial state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = State{}
	s.persistLocked()
}

// Snapshot returns a copy of the current state. Callers may not mutate the
// store through it.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.Items = make([]LineItem, len(s.state.Items))
	copy(out.Items, s.state.Items)
	return out
}

// applyAdd inserts or replaces the item, preserving position on replace.
// Caller holds s.mu.
func (s *Store) applyAdd(item LineItem) {
	key := item.Key()
	replaced := false
	for i, existing := range s.state.Items {
		if existing.Key() == key {
			s.state.Items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		s.state.Items = append(s.state.Items, item)
	}
	s.recomputeLocked()
}

// recomputeLocked rederives subtotal and item count from the items.
func (s *Store) recomputeLocked() {
	var subtotal float64
	for _, item := range s.state.Items {
		subtotal += item.Price
	}
	s.state.Subtotal = subtotal
	s.state.ItemCount = len(s.state.Items)
}

// persistLocked serializes the whole state under the cart key. Write failures
// are logged and swallowed; the in-memory state stays authoritative.
func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}
	encoded, err := json.Marshal(s.state)
	if err != nil {
		s.logger.Warn("cart: encode state", zap.Error(err))
		return
	}
	if err := s.storage.Set(localstore.KeyCart, string(encoded)); err != nil {
		s.logger.Warn("cart: persist state", zap.Error(err))
	}
}
