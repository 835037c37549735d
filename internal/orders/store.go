package orders

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a mutation targets an order the store does not hold.
var ErrNotFound = errors.New("order not found")

// Store is the remote data store holding order documents.
type Store interface {
	// FetchAll returns every order with cart items dereferenced, in store order.
	FetchAll(ctx context.Context) ([]Order, error)
	// SetStatus patches the status field of one order.
	SetStatus(ctx context.Context, orderID string, status Status) error
	// Delete removes one order document.
	Delete(ctx context.Context, orderID string) error
}
