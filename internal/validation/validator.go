package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-order-dashboard/internal/dashboard"
	"github.com/imrishuroy/go-order-dashboard/internal/orders"
)

// New returns a validator with the dashboard's custom tags registered:
// order_status accepts a settable status, status_filter also accepts All.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("order_status", func(fl validatorv10.FieldLevel) bool {
		return orders.Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status_filter", func(fl validatorv10.FieldLevel) bool {
		return dashboard.Filter(fl.Field().String()).Valid()
	})
	return v
}
