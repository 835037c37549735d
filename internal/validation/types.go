package validation

// StatusChangeRequest is the payload for PATCH /admin/api/orders/:id/status.
type StatusChangeRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}

// ListQuery is the query of GET /admin/api/orders. Absent parameters leave
// the current filter or search unchanged.
type ListQuery struct {
	Filter *string `form:"filter" validate:"omitempty,status_filter"`
	Search *string `form:"search" validate:"omitempty,max=200"`
}
