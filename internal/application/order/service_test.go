package order_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	apporder "github.com/pasar-rakyat/kantin/internal/application/order"
	domain "github.com/pasar-rakyat/kantin/internal/domain/order"
	"github.com/pasar-rakyat/kantin/internal/infrastructure/memory"
	"github.com/pasar-rakyat/kantin/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDGenerator struct{ n atomic.Int64 }

func (g *seqIDGenerator) NewID() string {
	return fmt.Sprintf("order-%d", g.n.Add(1))
}

func newService() (*apporder.Service, *memory.OrderRepository) {
	repo := memory.NewOrderRepository()
	return apporder.NewService(repo, &seqIDGenerator{}, observability.NopTelemetry()), repo
}

func sampleLines() []domain.Line {
	return []domain.Line{
		{CounterID: "A", Food: "Nasi Goreng", Quantity: 2, Amount: 30000},
		{CounterID: "B", Food: "Es Teh", Quantity: 1, Amount: 5000},
	}
}

func TestRecordCashOrderIsCompleted(t *testing.T) {
	svc, _ := newService()

	entity, err := svc.Record(context.Background(), "budi", domain.PaymentCash, sampleLines())
	require.NoError(t, err)

	assert.Equal(t, "order-1", entity.ID)
	assert.Equal(t, domain.StatusCompleted, entity.Status)
	assert.Equal(t, int64(35000), entity.TotalAmount)
	assert.False(t, entity.Time.IsZero())
}

func TestRecordNonCashOrderIsPending(t *testing.T) {
	svc, _ := newService()

	for _, method := range []string{domain.PaymentQRIS, domain.PaymentTransfer} {
		entity, err := svc.Record(context.Background(), "budi", method, sampleLines())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, entity.Status, method)
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Record(ctx, "", domain.PaymentCash, sampleLines())
	assert.ErrorIs(t, err, domain.ErrCashierRequired)

	_, err = svc.Record(ctx, "budi", "voucher", sampleLines())
	assert.ErrorIs(t, err, domain.ErrUnknownPayment)

	_, err = svc.Record(ctx, "budi", domain.PaymentCash, nil)
	assert.ErrorIs(t, err, domain.ErrNoLines)
}

func TestConfirmPaymentCompletesPendingOrder(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	entity, err := svc.Record(ctx, "budi", domain.PaymentQRIS, sampleLines())
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, entity.Status)

	require.NoError(t, svc.ConfirmPayment(ctx, entity.ID))

	got, err := svc.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestConfirmPaymentTwiceIsRejected(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	entity, err := svc.Record(ctx, "budi", domain.PaymentQRIS, sampleLines())
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPayment(ctx, entity.ID))
	assert.ErrorIs(t, svc.ConfirmPayment(ctx, entity.ID), domain.ErrAlreadyCompleted)
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	svc, _ := newService()
	assert.ErrorIs(t, svc.ConfirmPayment(context.Background(), "nope"), domain.ErrNotFound)
}

func TestListReturnsNewestFirst(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	first, err := svc.Record(ctx, "budi", domain.PaymentCash, sampleLines())
	require.NoError(t, err)
	second, err := svc.Record(ctx, "sari", domain.PaymentCash, sampleLines())
	require.NoError(t, err)

	orders, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// Ties on Time fall back to insertion recency in the repository, so the
	// later order is never sorted behind the earlier one.
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}
