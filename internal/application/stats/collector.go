package stats

import (
	"context"
	"sort"
	"sync"

	domorder "github.com/pasar-rakyat/kantin/internal/domain/order"
	domoutbox "github.com/pasar-rakyat/kantin/internal/domain/outbox"
	"github.com/pasar-rakyat/kantin/internal/observability"
)

const collectorComponent = "stats_collector"

// CounterSales is the running tally for one vendor stall.
type CounterSales struct {
	CounterID string `json:"counterId"`
	Quantity  int    `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

// Summary is a point-in-time snapshot of the tallies.
type Summary struct {
	Counters         []CounterSales `json:"counters"`
	OrdersRecorded   int            `json:"ordersRecorded"`
	RejectedAttempts int            `json:"rejectedAttempts"`
}

// Collector folds checkout events into per-counter sales totals, feeding the
// dashboard without touching the order log on every read. Counts are
// best-effort: the bus is not durable, so the log remains the source of truth.
type Collector struct {
	mu       sync.RWMutex
	sales    map[string]*CounterSales
	orders   int
	rejected int

	subscriber domoutbox.Subscriber
	log        observability.Logger
}

func NewCollector(subscriber domoutbox.Subscriber, tel observability.Telemetry) *Collector {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Collector{
		sales:      make(map[string]*CounterSales),
		subscriber: subscriber,
		log:        tel.Logger().With(observability.F("component", collectorComponent)),
	}
}

// Start registers the event handlers. Safe to call once before the bus runs.
func (c *Collector) Start() {
	if c.subscriber == nil {
		return
	}
	c.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), c.onOrderCreated)
	c.subscriber.Subscribe(domorder.CheckoutRejectedEvent{}.EventName(), c.onCheckoutRejected)
}

func (c *Collector) onOrderCreated(ctx context.Context, e domoutbox.Event) error {
	_ = ctx
	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders++
	for _, line := range evt.Lines {
		tally, ok := c.sales[line.CounterID]
		if !ok {
			tally = &CounterSales{CounterID: line.CounterID}
			c.sales[line.CounterID] = tally
		}
		tally.Quantity += line.Quantity
		tally.Revenue += line.Amount
	}
	return nil
}

func (c *Collector) onCheckoutRejected(ctx context.Context, e domoutbox.Event) error {
	_ = ctx
	if _, ok := e.(domorder.CheckoutRejectedEvent); !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected++
	return nil
}

// Snapshot returns the current tallies, counters sorted by id.
func (c *Collector) Snapshot() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counters := make([]CounterSales, 0, len(c.sales))
	for _, tally := range c.sales {
		counters = append(counters, *tally)
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i].CounterID < counters[j].CounterID })

	return Summary{
		Counters:         counters,
		OrdersRecorded:   c.orders,
		RejectedAttempts: c.rejected,
	}
}
