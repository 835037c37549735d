package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/imrishuroy/go-order-dashboard/internal/orders"
)

// Filter selects orders by status. FilterAll disables status filtering.
type Filter string

const FilterAll Filter = "All"

// Valid reports whether f is FilterAll or a settable status.
func (f Filter) Valid() bool {
	return f == FilterAll || orders.Status(f).Valid()
}

// State is everything the dashboard keeps for one admin session.
type State struct {
	Orders     []orders.Order `json:"orders"`
	ExpandedID string         `json:"expanded_id,omitempty"` // empty when no row is expanded
	Filter     Filter         `json:"filter"`
	Search     string         `json:"search"`
}

// NewState returns the state of a freshly mounted dashboard.
func NewState() *State {
	return &State{
		Orders: []orders.Order{},
		Filter: FilterAll,
	}
}

// Find returns the index of the order with id.
func (s *State) Find(id string) (int, bool) {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Toggle expands id, or collapses it when it is already expanded.
func (s *State) Toggle(id string) {
	if s.ExpandedID == id {
		s.ExpandedID = ""
		return
	}
	s.ExpandedID = id
}

// setStatus replaces the status of one order. Other fields and orders are
// left as they are. Returns false when the order is not loaded.
func (s *State) setStatus(id string, status orders.Status) bool {
	i, ok := s.Find(id)
	if !ok {
		return false
	}
	s.Orders[i].Status = orders.StatusPtr(status)
	return true
}

// remove drops the order with id, keeping the order of the rest.
func (s *State) remove(id string) bool {
	i, ok := s.Find(id)
	if !ok {
		return false
	}
	s.Orders = append(s.Orders[:i:i], s.Orders[i+1:]...)
	if s.ExpandedID == id {
		s.ExpandedID = ""
	}
	return true
}

// Clone copies the order list so callers can keep the result after the
// store mutates its own copy. Orders are never modified in place.
func (s *State) Clone() *State {
	c := *s
	c.Orders = append([]orders.Order(nil), s.Orders...)
	if c.Orders == nil {
		c.Orders = []orders.Order{}
	}
	return &c
}

// ErrStateConflict is returned when an update keeps losing races with
// concurrent writers of the same session.
var ErrStateConflict = errors.New("dashboard: concurrent state update")

// StateStore holds dashboard state per session. Update must apply fn
// atomically with respect to other updates of the same session.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Update(ctx context.Context, sessionID string, fn func(*State) error) (*State, error)
}

// MemoryStateStore keeps state in process memory.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewMemoryStateStore returns an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: map[string]*State{}}
}

func (m *MemoryStateStore) Load(_ context.Context, sessionID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[sessionID]
	if !ok {
		return NewState(), nil
	}
	return st.Clone(), nil
}

// Update runs fn on a copy and stores it only when fn succeeds.
func (m *MemoryStateStore) Update(_ context.Context, sessionID string, fn func(*State) error) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[sessionID]
	if !ok {
		st = NewState()
	}
	next := st.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.states[sessionID] = next
	return next.Clone(), nil
}
