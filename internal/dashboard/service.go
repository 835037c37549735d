package dashboard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-dashboard/internal/events"
	"github.com/imrishuroy/go-order-dashboard/internal/logging"
	"github.com/imrishuroy/go-order-dashboard/internal/metrics"
	"github.com/imrishuroy/go-order-dashboard/internal/orders"
)

var (
	// ErrOrderNotLoaded is returned for mutations on an id the session has not fetched.
	ErrOrderNotLoaded = errors.New("order is not loaded")
	// ErrInvalidStatus is returned for a status outside the settable set.
	ErrInvalidStatus = errors.New("invalid order status")
)

// Options configures the optional collaborators of a Service.
type Options struct {
	Events  events.Publisher
	Metrics metrics.Recorder
	// SerializeMutations makes mutations of the same order wait for each
	// other, so they complete in the order they were issued.
	SerializeMutations bool
}

// Service implements the dashboard operations on top of a remote order
// store and a per-session state store.
type Service struct {
	store   orders.Store
	states  StateStore
	events  events.Publisher
	metrics metrics.Recorder
	locks   *KeyedMutex
}

// NewService wires a Service. Nil collaborators in opts are replaced by no-ops.
func NewService(store orders.Store, states StateStore, opts Options) *Service {
	s := &Service{
		store:   store,
		states:  states,
		events:  opts.Events,
		metrics: opts.Metrics,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if opts.SerializeMutations {
		s.locks = NewKeyedMutex()
	}
	return s
}

// State returns the current state of a session without fetching.
func (s *Service) State(ctx context.Context, sessionID string) (*State, error) {
	return s.states.Load(ctx, sessionID)
}

// Mount starts the session over, as a fresh page load does, then loads orders.
func (s *Service) Mount(ctx context.Context, sessionID string) Outcome {
	if _, err := s.states.Update(ctx, sessionID, func(st *State) error {
		*st = *NewState()
		return nil
	}); err != nil {
		return Outcome{Err: fmt.Errorf("reset state: %w", err)}
	}
	return s.Load(ctx, sessionID)
}

// Load fetches every order and replaces the session's collection. On
// failure the previous collection is kept and an error modal is returned.
func (s *Service) Load(ctx context.Context, sessionID string) Outcome {
	logger := logging.FromContext(ctx)

	list, err := s.store.FetchAll(ctx)
	if err != nil {
		logger.Error("failed to fetch orders", zap.Error(err))
		s.metrics.Count(ctx, metrics.FetchFailed, 1)
		n := errorNotification("Error", "Failed to fetch orders: %v", err)
		return s.failure(ctx, sessionID, &n, fmt.Errorf("fetch orders: %w", err))
	}

	st, err := s.states.Update(ctx, sessionID, func(st *State) error {
		st.Orders = list
		if _, ok := st.Find(st.ExpandedID); !ok {
			st.ExpandedID = ""
		}
		return nil
	})
	if err != nil {
		return Outcome{Err: fmt.Errorf("store orders: %w", err)}
	}

	logger.Debug("orders loaded", zap.Int("count", len(list)))
	s.metrics.Count(ctx, metrics.OrdersFetched, float64(len(list)))
	return Outcome{State: st}
}

// ChangeStatus sets the status of a loaded order remotely and, once that
// succeeds, locally.
func (s *Service) ChangeStatus(ctx context.Context, sessionID, orderID string, status orders.Status) Outcome {
	if !status.Valid() {
		return Outcome{Err: fmt.Errorf("%w: %q", ErrInvalidStatus, status)}
	}

	out, counted := s.changeStatus(ctx, sessionID, orderID, status)
	s.count(ctx, counted)
	return out
}

// changeStatus runs under the order's lock and returns the metrics to count
// once the lock is released.
func (s *Service) changeStatus(ctx context.Context, sessionID, orderID string, status orders.Status) (Outcome, []string) {
	unlock := s.lock(orderID)
	defer unlock()

	st, err := s.states.Load(ctx, sessionID)
	if err != nil {
		return Outcome{Err: fmt.Errorf("load state: %w", err)}, nil
	}
	if _, ok := st.Find(orderID); !ok {
		return Outcome{State: st, Err: fmt.Errorf("%w: %s", ErrOrderNotLoaded, orderID)}, nil
	}

	logger := logging.FromContext(ctx).With(zap.String("order_id", orderID), zap.String("status", string(status)))

	if err := s.store.SetStatus(ctx, orderID, status); err != nil {
		logger.Error("failed to update order status", zap.Error(err))
		n := errorNotification("Error", "Failed to update order status: %v", err)
		return s.failure(ctx, sessionID, &n, fmt.Errorf("set status: %w", err)), []string{metrics.StatusChangeFailed}
	}

	// the order may have been deleted while the patch was in flight
	st, err = s.states.Update(ctx, sessionID, func(st *State) error {
		st.setStatus(orderID, status)
		return nil
	})
	if err != nil {
		return Outcome{Err: fmt.Errorf("store status: %w", err)}, nil
	}

	logger.Info("order status changed")
	counted := []string{metrics.StatusChanged}
	// published under the lock so events of one order leave in order
	if !s.publish(ctx, events.NewStatusChanged(orderID, string(status), sessionID)) {
		counted = append(counted, metrics.EventPublishFailed)
	}

	return Outcome{
		State: st,
		Notification: &Notification{
			Kind:     KindToast,
			Level:    LevelSuccess,
			Title:    fmt.Sprintf("Order status changed to %s", status),
			Position: toastPosition,
			TimerMs:  toastTimerMs,
		},
	}, counted
}

// Delete asks c for confirmation, then deletes the order remotely and
// drops it locally. An id that is not loaded only affects the remote store.
func (s *Service) Delete(ctx context.Context, sessionID, orderID string, c Confirmer) Outcome {
	ok, err := c.Confirm(ctx, DeleteDialog)
	if err != nil {
		return Outcome{Err: fmt.Errorf("confirm delete: %w", err)}
	}
	if !ok {
		d := DeleteDialog
		st, err := s.states.Load(ctx, sessionID)
		if err != nil {
			return Outcome{Dialog: &d, Err: fmt.Errorf("load state: %w", err)}
		}
		return Outcome{State: st, Dialog: &d}
	}

	out, counted := s.delete(ctx, sessionID, orderID)
	s.count(ctx, counted)
	return out
}

func (s *Service) delete(ctx context.Context, sessionID, orderID string) (Outcome, []string) {
	unlock := s.lock(orderID)
	defer unlock()

	logger := logging.FromContext(ctx).With(zap.String("order_id", orderID))

	if err := s.store.Delete(ctx, orderID); err != nil {
		logger.Error("failed to delete order", zap.Error(err))
		n := errorNotification("Error", "Failed to delete order: %v", err)
		return s.failure(ctx, sessionID, &n, fmt.Errorf("delete order: %w", err)), []string{metrics.DeleteFailed}
	}

	st, err := s.states.Update(ctx, sessionID, func(st *State) error {
		st.remove(orderID)
		return nil
	})
	if err != nil {
		return Outcome{Err: fmt.Errorf("store delete: %w", err)}, nil
	}

	logger.Info("order deleted")
	counted := []string{metrics.OrderDeleted}
	if !s.publish(ctx, events.NewDeleted(orderID, sessionID)) {
		counted = append(counted, metrics.EventPublishFailed)
	}

	return Outcome{
		State: st,
		Notification: &Notification{
			Kind:  KindModal,
			Level: LevelSuccess,
			Title: "Deleted",
			Text:  "Order has been deleted",
		},
	}, counted
}

// ToggleExpanded expands id, collapsing whichever row was expanded before.
// Toggling the expanded row collapses it.
func (s *Service) ToggleExpanded(ctx context.Context, sessionID, id string) (*State, error) {
	return s.states.Update(ctx, sessionID, func(st *State) error {
		st.Toggle(id)
		return nil
	})
}

// SetFilter changes the status filter.
func (s *Service) SetFilter(ctx context.Context, sessionID string, f Filter) (*State, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: filter %q", ErrInvalidStatus, f)
	}
	return s.states.Update(ctx, sessionID, func(st *State) error {
		st.Filter = f
		return nil
	})
}

// SetSearch changes the search term.
func (s *Service) SetSearch(ctx context.Context, sessionID, term string) (*State, error) {
	return s.states.Update(ctx, sessionID, func(st *State) error {
		st.Search = term
		return nil
	})
}

// SetView applies whichever of filter and search is non-nil in one update.
func (s *Service) SetView(ctx context.Context, sessionID string, filter *Filter, search *string) (*State, error) {
	if filter != nil && !filter.Valid() {
		return nil, fmt.Errorf("%w: filter %q", ErrInvalidStatus, *filter)
	}
	return s.states.Update(ctx, sessionID, func(st *State) error {
		if filter != nil {
			st.Filter = *filter
		}
		if search != nil {
			st.Search = *search
		}
		return nil
	})
}

// failure returns a failed outcome carrying the unchanged session state.
// The notification is kept even when the state cannot be read.
func (s *Service) failure(ctx context.Context, sessionID string, n *Notification, err error) Outcome {
	st, loadErr := s.states.Load(ctx, sessionID)
	if loadErr != nil {
		logging.FromContext(ctx).Warn("failed to load state", zap.Error(loadErr))
	}
	return Outcome{State: st, Notification: n, Err: err}
}

// publish reports whether ev was handed to the publisher.
func (s *Service) publish(ctx context.Context, ev events.OrderEvent) bool {
	if err := s.events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("failed to publish order event",
			zap.String("event_id", ev.EventID),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *Service) count(ctx context.Context, names []string) {
	for _, name := range names {
		s.metrics.Count(ctx, name, 1)
	}
}

func (s *Service) lock(orderID string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.Lock(orderID)
}
