package stock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCounterMissing    = errors.New("stock: counter not found")
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	ErrInvalidQuantity   = errors.New("stock: quantity must be greater than zero")
	ErrInvalidStock      = errors.New("stock: stock must be zero or greater")
	ErrUnavailable       = errors.New("stock: store unavailable")
)

// Counter is the quantity-on-hand for one vendor stall. It is mutated only
// through a Store; callers never write stock directly except via SetStock.
type Counter struct {
	CounterID string
	Stock     int
	UpdatedAt time.Time
}

// Reservation is a committed decrement against one counter. PreviousStock is
// the value observed by the transaction that committed, and is the exact value
// a compensating Restore must write back.
type Reservation struct {
	CounterID     string
	Quantity      int
	PreviousStock int
}

// InsufficientStockError carries the live stock level observed by the failed
// transaction. It unwraps to ErrInsufficientStock.
type InsufficientStockError struct {
	CounterID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: counter %s has %d, requested %d", e.CounterID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Store is the per-counter optimistic transaction primitive.
//
// Reserve runs a read-check-write cycle: it fails with ErrCounterMissing or an
// InsufficientStockError without mutating anything, and transparently retries
// the whole cycle when a concurrent writer changed the value between read and
// write. Restore overwrites the counter with a caller-supplied prior value; it
// is an absolute write, not a relative increment, and must not retry against
// the live value.
type Store interface {
	Reserve(ctx context.Context, counterID string, quantity int) (Reservation, error)
	Restore(ctx context.Context, counterID string, previousStock int) error

	// SetStock is the explicit restock/seed path, the only legal direct write.
	SetStock(ctx context.Context, counterID string, value int) error
	GetStock(ctx context.Context, counterID string) (int, error)
}
