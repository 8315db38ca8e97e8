package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pasar-rakyat/kantin/internal/domain/cart"
	domorder "github.com/pasar-rakyat/kantin/internal/domain/order"
	domoutbox "github.com/pasar-rakyat/kantin/internal/domain/outbox"
	domstock "github.com/pasar-rakyat/kantin/internal/domain/stock"
	"github.com/pasar-rakyat/kantin/internal/observability"
	"github.com/pasar-rakyat/kantin/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	checkoutService = "checkout-service"
	useCaseCheckout = "checkout.reserve_and_record"
	spanPrefix      = "UC."
	publishTimeout  = 300 * time.Millisecond

	defaultReserveTimeout = 3 * time.Second
)

// ErrValidation wraps all input rejections so transport can map them to a
// client error.
var ErrValidation = errors.New("checkout: invalid input")

type IDGenerator interface {
	NewID() string
}

// Recorder persists a finalized order after every line reserved. Satisfied by
// the order application service.
type Recorder interface {
	Record(ctx context.Context, cashier, paymentMethod string, lines []domorder.Line) (*domorder.Order, error)
}

// Input is one checkout attempt, built from a cart snapshot. Lines are
// processed in their given order.
type Input struct {
	Cashier       string
	PaymentMethod string
	Lines         []cart.Line
}

// Result carries either the recorded order or the complete per-line failure
// set for a rejected attempt; never both.
type Result struct {
	Order   *domorder.Order
	Reasons []string
}

// Rejected reports whether the attempt failed reservation. A rejected attempt
// has already been fully compensated.
func (r *Result) Rejected() bool { return len(r.Reasons) > 0 }

// Coordinator drives one checkout attempt: reserve stock for every cart line
// or commit none of them, then record a single order. There is no transaction
// spanning the counters, so atomicity is a forward pass of per-key optimistic
// reservations plus a rollback list replayed in full on any failure.
type Coordinator struct {
	stock          domstock.Store
	journal        domstock.CompensationJournal
	recorder       Recorder
	idGenerator    IDGenerator
	publisher      domoutbox.Publisher
	reserveTimeout time.Duration

	log          observability.Logger
	tracer       observability.TraceCtx
	attempts     observability.Counter
	duration     observability.Histogram
	lineFailures observability.Counter
	compEvents   observability.Counter
}

func NewCoordinator(
	store domstock.Store,
	journal domstock.CompensationJournal,
	recorder Recorder,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
	reserveTimeout time.Duration,
) *Coordinator {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	if reserveTimeout <= 0 {
		reserveTimeout = defaultReserveTimeout
	}
	return &Coordinator{
		stock:          store,
		journal:        journal,
		recorder:       recorder,
		idGenerator:    idGen,
		publisher:      publisher,
		reserveTimeout: reserveTimeout,
		log:            tel.Logger().With(observability.F("service", checkoutService)),
		tracer:         tel.Tracer(),
		attempts:       tel.Counter(observability.MetricCheckoutAttempts),
		duration:       tel.Histogram(observability.MetricCheckoutDuration),
		lineFailures:   tel.Counter(observability.MetricReservationFailures),
		compEvents:     tel.Counter(observability.MetricCompensations),
	}
}

// Checkout runs one attempt. A *Result with Reasons means reservation failed
// and every committed line was restored; a non-nil error means the attempt
// could not run (bad input) or the order could not be recorded after the
// reservations were rolled back.
func (c *Coordinator) Checkout(ctx context.Context, cmd Input) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, c.log).With(
		observability.F("use_case", useCaseCheckout),
		observability.F("cashier", cmd.Cashier),
		observability.F("lines", len(cmd.Lines)),
	)

	ctx, span := c.tracer.Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.String("checkout.cashier", cmd.Cashier),
		attribute.String("checkout.payment_method", cmd.PaymentMethod),
		attribute.Int("checkout.lines", len(cmd.Lines)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		c.attempts.Add(1, observability.L("outcome", outcome))
		c.duration.Observe(lat)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("checkout_done", fields...)
	}()

	if verr := validate(cmd); verr != nil {
		outcome, statusText = "error", "INVALID_INPUT"
		return nil, verr
	}

	// Forward pass: attempt every line even after a failure so the cashier
	// sees the complete set of problems in one submission.
	rollback := make([]domstock.Reservation, 0, len(cmd.Lines))
	var reasons []string

	for _, line := range cmd.Lines {
		res, rerr := c.reserve(ctx, line.CounterID, line.Quantity)
		if rerr == nil {
			rollback = append(rollback, res)
			continue
		}
		reasons = append(reasons, c.failureReason(line.CounterID, rerr))
	}

	if len(reasons) > 0 {
		outcome, statusText = "rejected", "RESERVATION_FAILED"
		span.SetAttributes(attribute.Int("checkout.failed_lines", len(reasons)))
		c.compensate(ctx, rollback)
		c.publish(ctx, domorder.NewCheckoutRejectedEvent(cmd.Cashier, reasons))
		return &Result{Reasons: reasons}, nil
	}

	entity, rerr := c.recorder.Record(ctx, cmd.Cashier, cmd.PaymentMethod, toOrderLines(cmd.Lines))
	if rerr != nil {
		// Every reservation committed but no order can exist for them; undo
		// the whole attempt before surfacing the error.
		outcome, statusText = "error", "RECORD_FAILED"
		c.compensate(ctx, rollback)
		return nil, fmt.Errorf("checkout: record order: %w", rerr)
	}

	span.SetAttributes(attribute.String("order.id", entity.ID))
	c.publish(ctx, domorder.NewOrderCreatedEvent(entity))
	return &Result{Order: entity}, nil
}

func (c *Coordinator) reserve(ctx context.Context, counterID string, quantity int) (domstock.Reservation, error) {
	rctx, cancel := context.WithTimeout(ctx, c.reserveTimeout)
	defer cancel()
	return c.stock.Reserve(rctx, counterID, quantity)
}

func (c *Coordinator) failureReason(counterID string, err error) string {
	switch {
	case errors.Is(err, domstock.ErrInsufficientStock):
		c.lineFailures.Add(1, observability.L("reason", "insufficient_stock"))
		return fmt.Sprintf("insufficient stock for %s", counterID)
	case errors.Is(err, domstock.ErrCounterMissing):
		c.lineFailures.Add(1, observability.L("reason", "counter_missing"))
		return fmt.Sprintf("counter %s no longer exists", counterID)
	default:
		c.lineFailures.Add(1, observability.L("reason", "store_unavailable"))
		return fmt.Sprintf("stock transaction failed for %s", counterID)
	}
}

// compensate replays a restore for every committed reservation. Order does
// not matter: each entry targets a disjoint counter and writes back the value
// this same attempt captured. A restore that cannot be applied is journaled
// for the retry worker rather than dropped.
func (c *Coordinator) compensate(ctx context.Context, rollback []domstock.Reservation) {
	// The rollback must finish even if the request context died mid-attempt.
	ctx = context.WithoutCancel(ctx)
	logger := logctx.FromOr(ctx, c.log)

	for _, res := range rollback {
		rctx, cancel := context.WithTimeout(ctx, c.reserveTimeout)
		err := c.stock.Restore(rctx, res.CounterID, res.PreviousStock)
		cancel()

		if err == nil {
			c.compEvents.Add(1, observability.L("mode", "applied"))
			c.publish(ctx, domstock.NewStockRestoredEvent(res.CounterID, res.PreviousStock, false))
			continue
		}

		entry := domstock.CompensationEntry{
			ID:            c.idGenerator.NewID(),
			CounterID:     res.CounterID,
			PreviousStock: res.PreviousStock,
			QueuedAt:      time.Now().UTC(),
		}
		if jerr := c.journal.Append(ctx, entry); jerr != nil {
			// Both the restore and the journal write failed; nothing left but
			// to log loudly. The counter stays wrongly reserved.
			logger.Error("compensation_lost",
				observability.F("counter_id", res.CounterID),
				observability.F("previous_stock", res.PreviousStock),
				observability.F("restore_error", err.Error()),
				observability.F("journal_error", jerr.Error()),
			)
			c.compEvents.Add(1, observability.L("mode", "lost"))
			continue
		}
		logger.Warn("compensation_journaled",
			observability.F("counter_id", res.CounterID),
			observability.F("previous_stock", res.PreviousStock),
			observability.F("error", err.Error()),
		)
		c.compEvents.Add(1, observability.L("mode", "journaled"))
	}
}

func (c *Coordinator) publish(ctx context.Context, e domoutbox.Event) {
	if c.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(pctx, e); err != nil {
		logctx.FromOr(ctx, c.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}

func validate(cmd Input) error {
	if cmd.Cashier == "" {
		return fmt.Errorf("%w: cashier is required", ErrValidation)
	}
	if !domorder.KnownPaymentMethod(cmd.PaymentMethod) {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, cmd.PaymentMethod)
	}
	if len(cmd.Lines) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	for _, line := range cmd.Lines {
		if line.CounterID == "" {
			return fmt.Errorf("%w: line %q has no counter", ErrValidation, line.ItemID)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %q has quantity %d", ErrValidation, line.ItemID, line.Quantity)
		}
		if line.UnitPrice < 0 {
			return fmt.Errorf("%w: line %q has negative price", ErrValidation, line.ItemID)
		}
	}
	return nil
}

func toOrderLines(lines []cart.Line) []domorder.Line {
	out := make([]domorder.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, domorder.Line{
			CounterID: l.CounterID,
			Food:      l.Name,
			Quantity:  l.Quantity,
			Amount:    l.UnitPrice * int64(l.Quantity),
		})
	}
	return out
}
