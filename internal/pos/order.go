// Package pos implements the in-memory cart used by terminal sessions: line
// items bounded by the stock captured at add time, totals, and payment
// reconciliation. All mutations are synchronous; nothing here touches the
// network or the database.
package pos

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyInOrder  = errors.New("pos: product already in order")
	ErrLineNotFound    = errors.New("pos: line not found")
	ErrStockExceeded   = errors.New("pos: quantity exceeds stock")
	ErrInvalidQuantity = errors.New("pos: invalid quantity")
)

// PaymentMethod enumerates how a sale can be settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentVoucher  PaymentMethod = "voucher"
	PaymentOther    PaymentMethod = "other"
)

// KnownMethod reports whether m is one of the supported payment methods.
func KnownMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentVoucher, PaymentOther:
		return true
	}
	return false
}

// CatalogProduct carries the catalog fields the engine needs at add time.
type CatalogProduct struct {
	ID    uuid.UUID
	Name  string
	Price float64
	Stock int
}

// Line is one cart entry. StockCeiling is the product's stock captured when
// the line was added; Quantity never exceeds it and never drops below 1.
type Line struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	UnitPrice    float64   `json:"unit_price"`
	Quantity     int       `json:"quantity"`
	StockCeiling int       `json:"stock_ceiling"`
}

// Order is a mutable cart. It is not safe for concurrent use; callers
// serialize access per terminal session.
type Order struct {
	CustomerID *uuid.UUID
	lines      []Line
}

// NewOrder returns an empty cart.
func NewOrder() *Order {
	return &Order{}
}

// Add inserts a new line with quantity 1. Adding a product that is already in
// the order is a caller error; the engine never merges silently.
func (o *Order) Add(p CatalogProduct) error {
	if o.find(p.ID) != nil {
		return ErrAlreadyInOrder
	}
	if p.Stock < 1 {
		return ErrStockExceeded
	}

	o.lines = append(o.lines, Line{
		ProductID:    p.ID,
		Name:         p.Name,
		UnitPrice:    p.Price,
		Quantity:     1,
		StockCeiling: p.Stock,
	})
	return nil
}

// Increment raises the line's quantity by one, rejected at the stock ceiling.
func (o *Order) Increment(productID uuid.UUID) error {
	line := o.find(productID)
	if line == nil {
		return ErrLineNotFound
	}
	if line.Quantity+1 > line.StockCeiling {
		return ErrStockExceeded
	}
	line.Quantity++
	return nil
}

// Decrement lowers the line's quantity by one, rejected at 1. Reaching zero
// is only possible through Remove.
func (o *Order) Decrement(productID uuid.UUID) error {
	line := o.find(productID)
	if line == nil {
		return ErrLineNotFound
	}
	if line.Quantity-1 < 1 {
		return ErrInvalidQuantity
	}
	line.Quantity--
	return nil
}

// SetQuantity applies a direct edit. Values outside 1..ceiling are rejected
// and the prior quantity is retained.
func (o *Order) SetQuantity(productID uuid.UUID, quantity int) error {
	line := o.find(productID)
	if line == nil {
		return ErrLineNotFound
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > line.StockCeiling {
		return ErrStockExceeded
	}
	line.Quantity = quantity
	return nil
}

// Remove deletes the line unconditionally. Removing an absent product is a
// no-op.
func (o *Order) Remove(productID uuid.UUID) {
	for i := range o.lines {
		if o.lines[i].ProductID == productID {
			o.lines = append(o.lines[:i], o.lines[i+1:]...)
			return
		}
	}
}

// Total sums unit price times quantity over all lines.
func (o *Order) Total() float64 {
	var total float64
	for _, line := range o.lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// Lines returns a copy of the current line items.
func (o *Order) Lines() []Line {
	out := make([]Line, len(o.lines))
	copy(out, o.lines)
	return out
}

// Empty reports whether the cart has no lines.
func (o *Order) Empty() bool {
	return len(o.lines) == 0
}

// Clear drops every line and the customer reference.
func (o *Order) Clear() {
	o.lines = nil
	o.CustomerID = nil
}

// Snapshot captures the cart for holding.
type Snapshot struct {
	CustomerID *uuid.UUID `json:"customer_id"`
	Lines      []Line     `json:"lines"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Snapshot returns an immutable copy of the cart.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{
		CustomerID: o.CustomerID,
		Lines:      o.Lines(),
		CreatedAt:  time.Now(),
	}
}

// Restore replaces the entire cart with the snapshot's lines. It never
// merges; whatever was in the cart before is discarded.
func (o *Order) Restore(s Snapshot) {
	o.CustomerID = s.CustomerID
	o.lines = make([]Line, len(s.Lines))
	copy(o.lines, s.Lines)
}

func (o *Order) find(productID uuid.UUID) *Line {
	for i := range o.lines {
		if o.lines[i].ProductID == productID {
			return &o.lines[i]
		}
	}
	return nil
}
