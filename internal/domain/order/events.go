package order

import "time"

// OrderCreatedEvent is emitted after a fully reserved checkout attempt has
// been recorded.
type OrderCreatedEvent struct {
	OrderID       string
	Cashier       string
	PaymentMethod string
	Lines         []Line
	TotalAmount   int64
	Status        Status
	OccurredAt    time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:       o.ID,
		Cashier:       o.Cashier,
		PaymentMethod: o.PaymentMethod,
		Lines:         append([]Line(nil), o.Lines...),
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		OccurredAt:    time.Now().UTC(),
	}
}

// CheckoutRejectedEvent is emitted when a checkout attempt fails reservation
// and every committed line has been handed to compensation.
type CheckoutRejectedEvent struct {
	Cashier    string
	Reasons    []string
	OccurredAt time.Time
}

func (CheckoutRejectedEvent) EventName() string { return "checkout.rejected" }

func NewCheckoutRejectedEvent(cashier string, reasons []string) CheckoutRejectedEvent {
	return CheckoutRejectedEvent{
		Cashier:    cashier,
		Reasons:    append([]string(nil), reasons...),
		OccurredAt: time.Now().UTC(),
	}
}
