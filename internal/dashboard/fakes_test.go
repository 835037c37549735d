package dashboard

import (
	"context"
	"sync"

	"github.com/imrishuroy/go-order-dashboard/internal/events"
	"github.com/imrishuroy/go-order-dashboard/internal/orders"
)

// fakeStore is an in-memory orders.Store with injectable failures.
type fakeStore struct {
	mu        sync.Mutex
	orders    []orders.Order
	fetchErr  error
	setErr    error
	deleteErr error

	fetchCalls  int
	setCalls    []string
	deleteCalls []string

	// beforeSet runs before SetStatus applies, outside the lock.
	beforeSet func(orderID string, status orders.Status)
}

func (f *fakeStore) FetchAll(ctx context.Context) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]orders.Order{}, f.orders...), nil
}

func (f *fakeStore) SetStatus(ctx context.Context, orderID string, status orders.Status) error {
	if f.beforeSet != nil {
		f.beforeSet(orderID, status)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, orderID+"="+string(status))
	if f.setErr != nil {
		return f.setErr
	}
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = orders.StatusPtr(status)
			return nil
		}
	}
	return orders.ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, orderID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			break
		}
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, ev events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]float64

	// onCount runs before a count is recorded, outside the lock.
	onCount func(name string)
}

func (r *fakeRecorder) Count(ctx context.Context, name string, value float64) {
	if r.onCount != nil {
		r.onCount(name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]float64{}
	}
	r.counts[name] += value
}

func (r *fakeRecorder) get(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// flakyStates fails Load on demand and otherwise delegates to a MemoryStateStore.
type flakyStates struct {
	*MemoryStateStore
	loadErr error
}

func (f *flakyStates) Load(ctx context.Context, sessionID string) (*State, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryStateStore.Load(ctx, sessionID)
}

func order(id, first, last string, status *orders.Status) orders.Order {
	return orders.Order{ID: id, FirstName: first, LastName: last, Status: status}
}

func sampleOrders() []orders.Order {
	return []orders.Order{
		order("a1", "Jane", "Doe", orders.StatusPtr(orders.StatusPending)),
		order("b2", "John", "Roe", orders.StatusPtr(orders.StatusSuccess)),
		order("c3", "Ann", "Lee", nil),
	}
}

func ids(list []orders.Order) []string {
	out := make([]string, 0, len(list))
	for _, o := range list {
		out = append(out, o.ID)
	}
	return out
}
