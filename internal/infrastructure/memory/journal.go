package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/pasar-rakyat/kantin/internal/domain/stock"
)

// CompensationJournal keeps pending restore intents in memory. It carries a
// process-crash durability gap by construction; deployments that need to
// survive restarts use the redis-backed journal instead.
type CompensationJournal struct {
	mu      sync.RWMutex
	entries map[string]domain.CompensationEntry
}

func NewCompensationJournal() *CompensationJournal {
	return &CompensationJournal{entries: make(map[string]domain.CompensationEntry)}
}

func (j *CompensationJournal) Append(ctx context.Context, entry domain.CompensationEntry) error {
	_ = ctx
	if entry.ID == "" {
		return fmt.Errorf("compensation journal: entry id is required")
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[entry.ID] = entry
	return nil
}

func (j *CompensationJournal) Pending(ctx context.Context) ([]domain.CompensationEntry, error) {
	_ = ctx

	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]domain.CompensationEntry, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].QueuedAt.Before(out[k].QueuedAt) })
	return out, nil
}

func (j *CompensationJournal) Resolve(ctx context.Context, id string) error {
	_ = ctx

	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, id)
	return nil
}
