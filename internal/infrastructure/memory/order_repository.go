package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/pasar-rakyat/kantin/internal/domain/order"
)

type orderRecord struct {
	order *domain.Order
	seq   uint64
}

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]orderRecord
	seq    uint64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]orderRecord)}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	r.seq++
	r.orders[order.ID] = orderRecord{order: order.Clone(), seq: r.seq}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.order.Clone(), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.order.Status = status
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]orderRecord, 0, len(r.orders))
	for _, rec := range r.orders {
		recs = append(recs, rec)
	}
	// Newest first; insertion order breaks ties on coarse clocks.
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].order.Time.Equal(recs[j].order.Time) {
			return recs[i].seq > recs[j].seq
		}
		return recs[i].order.Time.After(recs[j].order.Time)
	})

	out := make([]*domain.Order, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.order.Clone())
	}
	return out, nil
}
