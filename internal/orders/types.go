package orders

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
type Status string

// Known order statuses. Stored documents may carry other values; those are
// kept as-is and rendered as unknown.
const (
	StatusPending  Status = "pending"
	StatusDispatch Status = "dispatch"
	StatusSuccess  Status = "success"
)

// Statuses lists the values an admin can set, in display order.
var Statuses = []Status{StatusPending, StatusDispatch, StatusSuccess}

// Valid reports whether s is one of the settable statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDispatch, StatusSuccess:
		return true
	}
	return false
}

// Order is the projection of an order document the dashboard works with.
// A nil Status means the document has no status set.
type Order struct {
	ID        string          `json:"_id"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email"`
	Address   string          `json:"address"`
	City      string          `json:"city"`
	ZipCode   string          `json:"zipCode"`
	Total     decimal.Decimal `json:"total"`
	Discount  decimal.Decimal `json:"discount"`
	OrderDate string          `json:"orderDate"`
	Status    *Status         `json:"status"`
	CartItems []CartItem      `json:"cartItems"`
}

// CartItem is a dereferenced product reference of an order.
type CartItem struct {
	ProductName string   `json:"productName"`
	Image       ImageRef `json:"image"`
}

// StatusPtr returns a pointer to s, for building orders in code.
func StatusPtr(s Status) *Status { return &s }

// ImageRef is an opaque image reference. Documents carry either a plain
// reference string or an image object whose asset holds the reference.
type ImageRef string

// UnmarshalJSON accepts a string, null, or {"asset": {"_ref": "..."}}.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = ImageRef(s)
		return nil
	}
	var obj struct {
		Asset struct {
			Ref string `json:"_ref"`
			URL string `json:"url"`
		} `json:"asset"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("image reference: %w", err)
	}
	if obj.Asset.Ref != "" {
		*r = ImageRef(obj.Asset.Ref)
	} else {
		*r = ImageRef(obj.Asset.URL)
	}
	return nil
}
