package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: already exists")
	ErrNoLines           = errors.New("order: at least one line is required")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount     = errors.New("order: amount must be zero or greater")
	ErrCashierRequired   = errors.New("order: cashier is required")
	ErrUnknownPayment    = errors.New("order: unknown payment method")
	ErrAlreadyCompleted  = errors.New("order: already completed")
	ErrRepositoryFailure = errors.New("order: repository failure")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

const (
	PaymentCash     = "cash"
	PaymentQRIS     = "qris"
	PaymentTransfer = "transfer"
)

// KnownPaymentMethod reports whether m is one of the accepted payment methods.
func KnownPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentQRIS, PaymentTransfer:
		return true
	}
	return false
}

// Line is one accepted cart line inside a finalized order. Amount is the line
// total (unit price times quantity), in the smallest currency unit.
type Line struct {
	CounterID string
	Food      string
	Quantity  int
	Amount    int64
}

// Order is the append-only record of one successful checkout attempt. The
// checkout engine never mutates it; a later external confirmation may flip a
// pending order to completed.
type Order struct {
	ID            string
	Cashier       string
	PaymentMethod string
	Lines         []Line
	TotalAmount   int64
	Status        Status
	Time          time.Time
}

// New builds an order from accepted lines. Cash orders settle at the register
// and are completed immediately; every other payment method starts pending
// until an external confirmation arrives.
func New(id, cashier, paymentMethod string, lines []Line) (*Order, error) {
	if cashier == "" {
		return nil, ErrCashierRequired
	}
	if !KnownPaymentMethod(paymentMethod) {
		return nil, ErrUnknownPayment
	}
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	var total int64
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if l.Amount < 0 {
			return nil, ErrInvalidAmount
		}
		total += l.Amount
	}

	status := StatusPending
	if paymentMethod == PaymentCash {
		status = StatusCompleted
	}

	return &Order{
		ID:            id,
		Cashier:       cashier,
		PaymentMethod: paymentMethod,
		Lines:         append([]Line(nil), lines...),
		TotalAmount:   total,
		Status:        status,
		Time:          time.Now().UTC(),
	}, nil
}

func (o *Order) MarkCompleted() {
	o.Status = StatusCompleted
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	return &clone
}
