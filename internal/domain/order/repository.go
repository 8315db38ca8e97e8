package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error

	// List returns all recorded orders, newest first.
	List(ctx context.Context) ([]*Order, error)
}
