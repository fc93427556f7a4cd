// Package cart holds the in-memory cart of the active customer session.
package cart

import (
	"sync"
	"time"

	"foodkart/internal/model"

	"github.com/rs/zerolog"
)

// ConfirmSwitch asks the user whether the current cart may be discarded to
// start a cart at another restaurant. It must return true only on explicit
// confirmation.
type ConfirmSwitch func(current, requested model.Restaurant) bool

// Store is the authoritative cart for one user session. Mutations are
// synchronous; every successful mutation notifies subscribers exactly once,
// after the store lock has been released.
type Store struct {
	mu            sync.Mutex
	ownerID       string
	restaurant    *model.Restaurant
	lines         []model.CartLine
	lastMutatedAt time.Time
	version       uint64
	subscribers   []func()
	now           func() time.Time
	logger        zerolog.Logger
}

// NewStore creates an empty cart owned by ownerID.
func NewStore(ownerID string, logger zerolog.Logger) *Store {
	return &Store{
		ownerID: ownerID,
		now:     time.Now,
		logger:  logger.With().Str("component", "cart-store").Str("owner_id", ownerID).Logger(),
	}
}

// OwnerID returns the user the cart belongs to.
func (s *Store) OwnerID() string {
	return s.ownerID
}

// Subscribe registers fn to be called after every successful mutation.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// AddLine adds qty of item from restaurant. If the cart holds lines from a
// different restaurant, confirm decides whether they are discarded first;
// a nil or declining confirm leaves the cart unchanged.
func (s *Store) AddLine(restaurant model.Restaurant, item model.MenuItem, qty int, confirm ConfirmSwitch) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}

	s.mu.Lock()
	if s.restaurant != nil && s.restaurant.ID != restaurant.ID && len(s.lines) > 0 {
		current := *s.restaurant
		// Ask without holding the lock: the callback may block on user input.
		s.mu.Unlock()
		if confirm == nil || !confirm(current, restaurant) {
			s.logger.Debug().
				Str("current_restaurant", current.ID).
				Str("requested_restaurant", restaurant.ID).
				Msg("restaurant switch declined")
			return model.ErrRestaurantMismatch
		}
		s.mu.Lock()
		// Re-check: the cart may have changed while the user was asked.
		if s.restaurant != nil && s.restaurant.ID != current.ID {
			s.mu.Unlock()
			return model.ErrRestaurantMismatch
		}
		s.logger.Info().
			Str("discarded_restaurant", current.ID).
			Int("discarded_lines", len(s.lines)).
			Msg("cart discarded for restaurant switch")
		s.lines = nil
		s.restaurant = nil
	}

	r := restaurant
	s.restaurant = &r

	found := false
	for i := range s.lines {
		if s.lines[i].ItemID == item.ID {
			s.lines[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, model.CartLine{
			ItemID:    item.ID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  qty,
		})
	}
	s.touchLocked()
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetQuantity sets the quantity of an existing line. Zero removes the line.
func (s *Store) SetQuantity(itemID string, qty int) error {
	if qty < 0 {
		return model.ErrInvalidQuantity
	}
	if qty == 0 {
		return s.RemoveLine(itemID)
	}

	s.mu.Lock()
	idx := s.indexLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return model.ErrLineNotFound
	}
	s.lines[idx].Quantity = qty
	s.touchLocked()
	s.mu.Unlock()

	s.notify()
	return nil
}

// RemoveLine removes a line. Removing the last line also drops the
// restaurant binding.
func (s *Store) RemoveLine(itemID string) error {
	s.mu.Lock()
	idx := s.indexLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return model.ErrLineNotFound
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	if len(s.lines) == 0 {
		s.lines = nil
		s.restaurant = nil
	}
	s.touchLocked()
	s.mu.Unlock()

	s.notify()
	return nil
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.restaurant = nil
	s.touchLocked()
	s.mu.Unlock()

	s.notify()
}

// Load replaces the cart contents with a snapshot obtained at session
// start. It does not notify subscribers.
func (s *Store) Load(snapshot model.CartSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.restaurant = nil
	for _, l := range snapshot.Lines {
		if l.Quantity < 1 || s.indexLocked(l.ItemID) >= 0 {
			s.logger.Warn().
				Str("item_id", l.ItemID).
				Int("quantity", l.Quantity).
				Msg("dropping invalid line from loaded cart")
			continue
		}
		s.lines = append(s.lines, l)
	}
	if len(s.lines) > 0 && snapshot.Restaurant != nil {
		r := *snapshot.Restaurant
		s.restaurant = &r
	} else {
		s.lines = nil
	}
	s.lastMutatedAt = snapshot.LastMutatedAt
	s.version++
}

// Snapshot returns a deep copy of the current cart.
func (s *Store) Snapshot() model.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.CartSnapshot{
		OwnerID:       s.ownerID,
		LastMutatedAt: s.lastMutatedAt,
		Version:       s.version,
	}
	if s.restaurant != nil {
		r := *s.restaurant
		snap.Restaurant = &r
	}
	if len(s.lines) > 0 {
		snap.Lines = make([]model.CartLine, len(s.lines))
		copy(snap.Lines, s.lines)
	}
	return snap
}

// Version returns the mutation counter of the cart.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// ItemCount returns the total number of units in the cart.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *Store) indexLocked(itemID string) int {
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func (s *Store) touchLocked() {
	s.lastMutatedAt = s.now()
	s.version++
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
