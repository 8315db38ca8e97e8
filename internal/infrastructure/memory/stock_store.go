package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/pasar-rakyat/kantin/internal/domain/stock"
)

type versionedStock struct {
	stock   int
	version uint64
}

// StockStore is an in-memory stock.Store. Each counter is an independently
// versioned value; Reserve runs the read-check-write cycle optimistically and
// retries when the version moved underneath it, mirroring how the production
// backend serializes conflicting writers on one key.
type StockStore struct {
	mu       sync.RWMutex
	counters map[string]versionedStock
}

func NewStockStore() *StockStore {
	return &StockStore{counters: make(map[string]versionedStock)}
}

func (s *StockStore) Reserve(ctx context.Context, counterID string, quantity int) (domain.Reservation, error) {
	if quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.Reservation{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}

		current, ok := s.read(counterID)
		if !ok {
			return domain.Reservation{}, fmt.Errorf("%w: %s", domain.ErrCounterMissing, counterID)
		}
		if current.stock < quantity {
			return domain.Reservation{}, &domain.InsufficientStockError{
				CounterID: counterID,
				Available: current.stock,
				Requested: quantity,
			}
		}

		if s.commit(counterID, current.version, current.stock-quantity) {
			return domain.Reservation{
				CounterID:     counterID,
				Quantity:      quantity,
				PreviousStock: current.stock,
			}, nil
		}
		// Lost the race to a concurrent writer; re-run the whole cycle
		// against the post-commit value.
	}
}

// Restore overwrites the counter with the captured pre-reservation value. It
// is deliberately not conflict-checked: correctness requires writing the exact
// snapshot taken at reservation time, not whatever the live value drifted to.
func (s *StockStore) Restore(ctx context.Context, counterID string, previousStock int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	if previousStock < 0 {
		return domain.ErrInvalidStock
	}
	s.overwrite(counterID, previousStock)
	return nil
}

func (s *StockStore) SetStock(ctx context.Context, counterID string, value int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	if value < 0 {
		return domain.ErrInvalidStock
	}
	s.overwrite(counterID, value)
	return nil
}

func (s *StockStore) GetStock(ctx context.Context, counterID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	current, ok := s.read(counterID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrCounterMissing, counterID)
	}
	return current.stock, nil
}

// Delete removes a counter entirely; subsequent reservations observe
// ErrCounterMissing. Used when a vendor stall is retired.
func (s *StockStore) Delete(counterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, counterID)
}

func (s *StockStore) read(counterID string) (versionedStock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.counters[counterID]
	return v, ok
}

// commit writes newStock only if the counter's version still matches the one
// observed by the caller's read.
func (s *StockStore) commit(counterID string, expectedVersion uint64, newStock int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.counters[counterID]
	if !ok || current.version != expectedVersion {
		return false
	}
	s.counters[counterID] = versionedStock{stock: newStock, version: current.version + 1}
	return true
}

func (s *StockStore) overwrite(counterID string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.counters[counterID]
	s.counters[counterID] = versionedStock{stock: value, version: current.version + 1}
}
