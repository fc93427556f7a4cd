package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is a single item in a cart.
type CartLine struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is an immutable copy of a cart session at a point in time.
type CartSnapshot struct {
	OwnerID       string      `json:"ownerId"`
	Restaurant    *Restaurant `json:"restaurant,omitempty"`
	Lines         []CartLine  `json:"lines"`
	LastMutatedAt time.Time   `json:"lastMutatedAt"`
	Version       uint64      `json:"version"`
}

// IsEmpty reports whether the snapshot holds no lines.
func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Subtotal returns the sum of all line totals.
func (s CartSnapshot) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range s.Lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// CartSyncRequest is the payload of a full cart replacement.
type CartSyncRequest struct {
	Items      []CartLine  `json:"items"`
	Restaurant *Restaurant `json:"restaurant,omitempty"`
}

// CartItemRequest adds a single item to the remote cart.
type CartItemRequest struct {
	Restaurant Restaurant `json:"restaurant"`
	Item       CartLine   `json:"item"`
}

// QuantityRequest updates the quantity of a remote cart item.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the remote representation of a pending cart.
type CartResponse struct {
	UserID     string      `json:"userId"`
	Restaurant *Restaurant `json:"restaurant,omitempty"`
	Items      []CartLine  `json:"items"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}
