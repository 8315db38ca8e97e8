package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "github.com/pasar-rakyat/kantin/internal/domain/stock"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveDecrementsAndCapturesPreviousStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStockStore()
	require.NoError(t, store.SetStock(ctx, "warung-a", 5))

	res, err := store.Reserve(ctx, "warung-a", 2)
	require.NoError(t, err)
	assert.Equal(t, "warung-a", res.CounterID)
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, 5, res.PreviousStock)

	remaining, err := store.GetStock(ctx, "warung-a")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestReserveInsufficientStockLeavesValueUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStockStore()
	require.NoError(t, store.SetStock(ctx, "warung-a", 5))

	_, err := store.Reserve(ctx, "warung-a", 10)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)
	assert.Equal(t, 10, insufficient.Requested)

	remaining, err := store.GetStock(ctx, "warung-a")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestReserveMissingCounter(t *testing.T) {
	store := memory.NewStockStore()

	_, err := store.Reserve(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, domain.ErrCounterMissing)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	store := memory.NewStockStore()

	_, err := store.Reserve(context.Background(), "warung-a", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = store.Reserve(context.Background(), "warung-a", -3)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestReserveHonorsCanceledContext(t *testing.T) {
	store := memory.NewStockStore()
	require.NoError(t, store.SetStock(context.Background(), "warung-a", 5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Reserve(ctx, "warung-a", 1)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestRestoreIsAnAbsoluteIdempotentWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStockStore()
	require.NoError(t, store.SetStock(ctx, "warung-a", 5))

	_, err := store.Reserve(ctx, "warung-a", 3)
	require.NoError(t, err)

	// Replaying the same restore any number of times lands on the same value.
	require.NoError(t, store.Restore(ctx, "warung-a", 5))
	require.NoError(t, store.Restore(ctx, "warung-a", 5))

	remaining, err := store.GetStock(ctx, "warung-a")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestRestoreRejectsNegativeValue(t *testing.T) {
	store := memory.NewStockStore()
	err := store.Restore(context.Background(), "warung-a", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
}

func TestSetStockRejectsNegativeValue(t *testing.T) {
	store := memory.NewStockStore()
	err := store.SetStock(context.Background(), "warung-a", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
}

func TestDeletedCounterReportsMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStockStore()
	require.NoError(t, store.SetStock(ctx, "warung-a", 5))

	store.Delete("warung-a")

	_, err := store.Reserve(ctx, "warung-a", 1)
	assert.ErrorIs(t, err, domain.ErrCounterMissing)
}

func TestConcurrentReservesSerializeOnOneKey(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStockStore()
	require.NoError(t, store.SetStock(ctx, "warung-a", 5))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Reserve(ctx, "warung-a", 3)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	remaining, err := store.GetStock(ctx, "warung-a")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestManyConcurrentSingleReserves(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStockStore()
	require.NoError(t, store.SetStock(ctx, "warung-a", 100))

	const workers = 150
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Reserve(ctx, "warung-a", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 100, succeeded)

	remaining, err := store.GetStock(ctx, "warung-a")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}
