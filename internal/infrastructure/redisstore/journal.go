package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	domain "github.com/pasar-rakyat/kantin/internal/domain/stock"
	"github.com/redis/go-redis/v9"
)

const journalKey = "stock:compensation:pending"

// CompensationJournal persists pending restore intents in a redis hash so
// they survive a process restart mid-rollback.
type CompensationJournal struct {
	client *redis.Client
}

func NewCompensationJournal(client *redis.Client) *CompensationJournal {
	return &CompensationJournal{client: client}
}

func (j *CompensationJournal) Append(ctx context.Context, entry domain.CompensationEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("compensation journal: entry id is required")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("compensation journal: marshal: %w", err)
	}
	if err := j.client.HSet(ctx, journalKey, entry.ID, payload).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

func (j *CompensationJournal) Pending(ctx context.Context) ([]domain.CompensationEntry, error) {
	raw, err := j.client.HGetAll(ctx, journalKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}

	out := make([]domain.CompensationEntry, 0, len(raw))
	for _, payload := range raw {
		var entry domain.CompensationEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("compensation journal: unmarshal: %w", err)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].QueuedAt.Before(out[k].QueuedAt) })
	return out, nil
}

func (j *CompensationJournal) Resolve(ctx context.Context, id string) error {
	if err := j.client.HDel(ctx, journalKey, id).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return nil
}
