package stats_test

import (
	"context"
	"testing"

	"github.com/pasar-rakyat/kantin/internal/application/stats"
	domorder "github.com/pasar-rakyat/kantin/internal/domain/order"
	domoutbox "github.com/pasar-rakyat/kantin/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSubscriber captures handlers so tests can invoke them synchronously
// instead of going through the bus.
type recordingSubscriber struct {
	handlers map[string][]domoutbox.Handler
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{handlers: make(map[string][]domoutbox.Handler)}
}

func (s *recordingSubscriber) Subscribe(eventName string, handler domoutbox.Handler) {
	s.handlers[eventName] = append(s.handlers[eventName], handler)
}

func (s *recordingSubscriber) deliver(t *testing.T, e domoutbox.Event) {
	t.Helper()
	handlers := s.handlers[e.EventName()]
	require.NotEmpty(t, handlers, "no handler for %s", e.EventName())
	for _, h := range handlers {
		require.NoError(t, h(context.Background(), e))
	}
}

func createdEvent(counterLines ...domorder.Line) domorder.OrderCreatedEvent {
	order := &domorder.Order{
		ID:            "order-1",
		Cashier:       "budi",
		PaymentMethod: domorder.PaymentCash,
		Lines:         counterLines,
		Status:        domorder.StatusCompleted,
	}
	for _, l := range counterLines {
		order.TotalAmount += l.Amount
	}
	return domorder.NewOrderCreatedEvent(order)
}

func TestCollectorTalliesSalesPerCounter(t *testing.T) {
	sub := newRecordingSubscriber()
	collector := stats.NewCollector(sub, nil)
	collector.Start()

	sub.deliver(t, createdEvent(
		domorder.Line{CounterID: "B", Food: "Es Teh", Quantity: 2, Amount: 10000},
		domorder.Line{CounterID: "A", Food: "Nasi Goreng", Quantity: 1, Amount: 15000},
	))
	sub.deliver(t, createdEvent(
		domorder.Line{CounterID: "A", Food: "Nasi Goreng", Quantity: 3, Amount: 45000},
	))

	summary := collector.Snapshot()
	assert.Equal(t, 2, summary.OrdersRecorded)
	assert.Equal(t, 0, summary.RejectedAttempts)
	require.Len(t, summary.Counters, 2)

	// Sorted by counter id.
	assert.Equal(t, stats.CounterSales{CounterID: "A", Quantity: 4, Revenue: 60000}, summary.Counters[0])
	assert.Equal(t, stats.CounterSales{CounterID: "B", Quantity: 2, Revenue: 10000}, summary.Counters[1])
}

func TestCollectorCountsRejections(t *testing.T) {
	sub := newRecordingSubscriber()
	collector := stats.NewCollector(sub, nil)
	collector.Start()

	sub.deliver(t, domorder.NewCheckoutRejectedEvent("budi", []string{"insufficient stock for A"}))
	sub.deliver(t, domorder.NewCheckoutRejectedEvent("sari", []string{"counter B no longer exists"}))

	summary := collector.Snapshot()
	assert.Equal(t, 2, summary.RejectedAttempts)
	assert.Empty(t, summary.Counters)
}

func TestCollectorIgnoresForeignEventTypes(t *testing.T) {
	sub := newRecordingSubscriber()
	collector := stats.NewCollector(sub, nil)
	collector.Start()

	// Wrong concrete type under a subscribed name must not panic or count.
	handlers := sub.handlers[domorder.OrderCreatedEvent{}.EventName()]
	require.NotEmpty(t, handlers)
	require.NoError(t, handlers[0](context.Background(), fakeEvent{}))

	assert.Equal(t, 0, collector.Snapshot().OrdersRecorded)
}

type fakeEvent struct{}

func (fakeEvent) EventName() string { return "order.created" }
