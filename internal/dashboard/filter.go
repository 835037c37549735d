package dashboard

import (
	"strings"

	"github.com/imrishuroy/go-order-dashboard/internal/orders"
)

// Matches reports whether o passes both the status filter and the search
// term. A nil status never matches a named filter. The search is a
// case-insensitive substring match on first name, last name and id.
func Matches(o orders.Order, filter Filter, search string) bool {
	if filter != FilterAll {
		if o.Status == nil || string(*o.Status) != string(filter) {
			return false
		}
	}
	if search == "" {
		return true
	}
	term := strings.ToLower(search)
	return strings.Contains(strings.ToLower(o.FirstName), term) ||
		strings.Contains(strings.ToLower(o.LastName), term) ||
		strings.Contains(strings.ToLower(o.ID), term)
}

// Visible returns the orders of st that pass its filter and search, in fetch order.
func Visible(st *State) []orders.Order {
	out := make([]orders.Order, 0, len(st.Orders))
	for _, o := range st.Orders {
		if Matches(o, st.Filter, st.Search) {
			out = append(out, o)
		}
	}
	return out
}
