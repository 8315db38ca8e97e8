package checkout

import (
	"context"
	"sync"
	"time"

	domoutbox "github.com/pasar-rakyat/kantin/internal/domain/outbox"
	domstock "github.com/pasar-rakyat/kantin/internal/domain/stock"
	"github.com/pasar-rakyat/kantin/internal/observability"
)

const (
	compensatorComponent  = "compensation_worker"
	defaultRetryInterval  = 5 * time.Second
	defaultRestoreTimeout = 3 * time.Second
)

// Compensator drains the pending-compensation journal in the background,
// re-applying restores that failed during checkout rollback until they
// commit. Entries are resolved only after a successful restore, so a crash
// between restore and resolve replays the entry; replays are harmless because
// a restore writes an absolute snapshot value.
type Compensator struct {
	journal   domstock.CompensationJournal
	stock     domstock.Store
	publisher domoutbox.Publisher
	interval  time.Duration
	timeout   time.Duration

	log        observability.Logger
	compEvents observability.Counter

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewCompensator(
	journal domstock.CompensationJournal,
	store domstock.Store,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
	interval time.Duration,
) *Compensator {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	return &Compensator{
		journal:    journal,
		stock:      store,
		publisher:  publisher,
		interval:   interval,
		timeout:    defaultRestoreTimeout,
		log:        tel.Logger().With(observability.F("component", compensatorComponent)),
		compEvents: tel.Counter(observability.MetricCompensations),
		done:       make(chan struct{}),
	}
}

func (c *Compensator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c.cancel = cancel
		go c.loop(bg)
		c.log.Info("compensation_worker_started",
			observability.F("interval", c.interval.String()),
		)
	})
}

func (c *Compensator) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		<-c.done
		c.log.Info("compensation_worker_stopped")
	})
}

func (c *Compensator) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Drain(ctx)
		}
	}
}

// Drain attempts every pending entry once and returns the number restored.
// Exposed so tests and shutdown paths can force a pass without waiting for
// the ticker.
func (c *Compensator) Drain(ctx context.Context) int {
	pending, err := c.journal.Pending(ctx)
	if err != nil {
		c.log.Warn("journal_read_failed", observability.F("error", err.Error()))
		return 0
	}

	restored := 0
	for _, entry := range pending {
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		rerr := c.stock.Restore(rctx, entry.CounterID, entry.PreviousStock)
		cancel()
		if rerr != nil {
			c.log.Warn("compensation_retry_failed",
				observability.F("entry_id", entry.ID),
				observability.F("counter_id", entry.CounterID),
				observability.F("error", rerr.Error()),
			)
			continue
		}

		if err := c.journal.Resolve(ctx, entry.ID); err != nil {
			// The restore committed; a dangling journal entry just replays
			// the same absolute write next pass.
			c.log.Warn("journal_resolve_failed",
				observability.F("entry_id", entry.ID),
				observability.F("error", err.Error()),
			)
		}
		restored++
		c.compEvents.Add(1, observability.L("mode", "deferred"))
		c.log.Info("compensation_applied",
			observability.F("entry_id", entry.ID),
			observability.F("counter_id", entry.CounterID),
			observability.F("restored_to", entry.PreviousStock),
		)
		if c.publisher != nil {
			_ = c.publisher.Publish(ctx, domstock.NewStockRestoredEvent(entry.CounterID, entry.PreviousStock, true))
		}
	}
	return restored
}
