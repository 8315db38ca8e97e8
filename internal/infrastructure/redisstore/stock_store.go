package redisstore

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/pasar-rakyat/kantin/internal/domain/stock"
	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix = "stock:counter:"

	// maxTxRetries bounds the WATCH retry loop; conflicts beyond this point
	// mean the key is too contended and the caller gets ErrUnavailable.
	maxTxRetries = 32
)

// StockStore is a stock.Store backed by redis. Reserve uses WATCH/MULTI so
// the read-check-write cycle commits only when no concurrent writer touched
// the key, retrying transparently on redis.TxFailedErr.
type StockStore struct {
	client *redis.Client
}

func NewStockStore(client *redis.Client) *StockStore {
	return &StockStore{client: client}
}

func (s *StockStore) Reserve(ctx context.Context, counterID string, quantity int) (domain.Reservation, error) {
	if quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	key := stockKeyPrefix + counterID
	var reservation domain.Reservation

	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Int()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", domain.ErrCounterMissing, counterID)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		if current < quantity {
			return &domain.InsufficientStockError{
				CounterID: counterID,
				Available: current,
				Requested: quantity,
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, current-quantity, 0)
			return nil
		})
		if err != nil {
			return err
		}
		reservation = domain.Reservation{
			CounterID:     counterID,
			Quantity:      quantity,
			PreviousStock: current,
		}
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			// A concurrent writer changed the key between read and write;
			// re-run the whole cycle against the post-commit value.
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrCounterMissing) || errors.Is(err, domain.ErrInsufficientStock) {
				return domain.Reservation{}, err
			}
			return domain.Reservation{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return reservation, nil
	}
	return domain.Reservation{}, fmt.Errorf("%w: reserve %s: too many conflicts", domain.ErrUnavailable, counterID)
}

// Restore writes the captured pre-reservation snapshot unconditionally; no
// WATCH, since the compensation must win over whatever the live value is.
func (s *StockStore) Restore(ctx context.Context, counterID string, previousStock int) error {
	if previousStock < 0 {
		return domain.ErrInvalidStock
	}
	if err := s.client.Set(ctx, stockKeyPrefix+counterID, previousStock, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

func (s *StockStore) SetStock(ctx context.Context, counterID string, value int) error {
	if value < 0 {
		return domain.ErrInvalidStock
	}
	if err := s.client.Set(ctx, stockKeyPrefix+counterID, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

func (s *StockStore) GetStock(ctx context.Context, counterID string) (int, error) {
	value, err := s.client.Get(ctx, stockKeyPrefix+counterID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %s", domain.ErrCounterMissing, counterID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return value, nil
}
