package stock

import (
	"context"
	"time"
)

// CompensationEntry is a restore that could not be applied during checkout
// rollback, persisted so a retry worker can finish the compensation later.
// Without it, a store outage mid-rollback would leave stock reserved with no
// recorded order and nothing to retry.
type CompensationEntry struct {
	ID            string    `json:"id"`
	CounterID     string    `json:"counter_id"`
	PreviousStock int       `json:"previous_stock"`
	QueuedAt      time.Time `json:"queued_at"`
}

// CompensationJournal is the durable pending-compensation log. Entries stay
// pending until Resolve; replaying an entry is idempotent because a restore
// writes an absolute snapshot value.
type CompensationJournal interface {
	Append(ctx context.Context, entry CompensationEntry) error
	Pending(ctx context.Context) ([]CompensationEntry, error)
	Resolve(ctx context.Context, id string) error
}
