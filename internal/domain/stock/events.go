package stock

import "time"

// StockRestoredEvent is emitted when a compensating restore commits, whether
// inline during checkout rollback or later via the compensation journal.
type StockRestoredEvent struct {
	CounterID  string
	RestoredTo int
	Deferred   bool
	OccurredAt time.Time
}

func (StockRestoredEvent) EventName() string { return "stock.restored" }

func NewStockRestoredEvent(counterID string, restoredTo int, deferred bool) StockRestoredEvent {
	return StockRestoredEvent{
		CounterID:  counterID,
		RestoredTo: restoredTo,
		Deferred:   deferred,
		OccurredAt: time.Now().UTC(),
	}
}
