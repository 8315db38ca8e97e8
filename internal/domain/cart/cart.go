package cart

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
	ErrUnknownCounter  = errors.New("cart: counter not in stock snapshot")
	ErrLineNotFound    = errors.New("cart: line not found")
)

// Line is one pending selection. Lines are immutable once handed to a
// checkout attempt; Cart.Lines returns a fresh copy for that purpose.
type Line struct {
	ItemID    string
	CounterID string
	Name      string
	UnitPrice int64
	Quantity  int
}

// QuantityExceedsStockError reports an add or update that would push a line
// past the locally mirrored stock for its counter.
type QuantityExceedsStockError struct {
	CounterID string
	Available int
}

func (e *QuantityExceedsStockError) Error() string {
	return fmt.Sprintf("cart: counter %s has only %d left", e.CounterID, e.Available)
}

// Cart holds one cashier's pending selection together with a locally mirrored
// stock snapshot. The snapshot is advanced optimistically as items are added
// and removed so the UI can bound quantities client-side; it is advisory only.
// The authoritative check happens inside the stock store at checkout time, so
// snapshot drift can only cause a late InsufficientStock, never corrupt
// committed state. A Cart belongs to a single session and must not be shared.
type Cart struct {
	lines    []Line
	snapshot map[string]int
}

// New builds a cart over the given stock snapshot, keyed by counter id. The
// map is copied; later server-side changes do not feed back into the cart.
func New(stockSnapshot map[string]int) *Cart {
	snap := make(map[string]int, len(stockSnapshot))
	for id, v := range stockSnapshot {
		snap[id] = v
	}
	return &Cart{snapshot: snap}
}

// AddItem merges the item into an existing line for the same (item, counter)
// pair or appends a new line, decrementing the mirrored stock.
func (c *Cart) AddItem(item Line) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	remaining, ok := c.snapshot[item.CounterID]
	if !ok {
		return ErrUnknownCounter
	}
	if item.Quantity > remaining {
		return &QuantityExceedsStockError{CounterID: item.CounterID, Available: remaining}
	}

	c.snapshot[item.CounterID] = remaining - item.Quantity
	for i := range c.lines {
		if c.lines[i].ItemID == item.ItemID && c.lines[i].CounterID == item.CounterID {
			c.lines[i].Quantity += item.Quantity
			return nil
		}
	}
	c.lines = append(c.lines, item)
	return nil
}

// RemoveItem drops the line and returns its quantity to the mirrored stock.
func (c *Cart) RemoveItem(itemID, counterID string) error {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID && c.lines[i].CounterID == counterID {
			c.snapshot[counterID] += c.lines[i].Quantity
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

// SetQuantity adjusts a line to an absolute quantity, keeping the mirrored
// stock in step. A quantity of zero or less removes the line.
func (c *Cart) SetQuantity(itemID, counterID string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(itemID, counterID)
	}
	for i := range c.lines {
		if c.lines[i].ItemID != itemID || c.lines[i].CounterID != counterID {
			continue
		}
		delta := quantity - c.lines[i].Quantity
		remaining := c.snapshot[counterID]
		if delta > remaining {
			return &QuantityExceedsStockError{CounterID: counterID, Available: remaining}
		}
		c.snapshot[counterID] = remaining - delta
		c.lines[i].Quantity = quantity
		return nil
	}
	return ErrLineNotFound
}

// AvailableStock returns the mirrored stock remaining for a counter after the
// cart's own pending selections.
func (c *Cart) AvailableStock(counterID string) int {
	return c.snapshot[counterID]
}

// Lines returns the attempt snapshot: a copy of the current selection in
// insertion order.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Clear drops the selection without touching the mirrored stock; it is called
// after a successful checkout, where the server-side decrement is now the
// truth the snapshot already reflects.
func (c *Cart) Clear() {
	c.lines = nil
}
