package dashboard

import (
	"context"
	"fmt"
)

// Level is the severity icon of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Kind tells the page how to present a notification.
type Kind string

const (
	// KindModal blocks until the admin dismisses it.
	KindModal Kind = "modal"
	// KindToast is small and dismisses itself.
	KindToast Kind = "toast"
)

const (
	toastTimerMs  = 1500
	toastPosition = "top-end"
)

// Notification is a message for the admin produced by a dashboard operation.
type Notification struct {
	Kind     Kind   `json:"kind"`
	Level    Level  `json:"level"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Position string `json:"position,omitempty"`
	TimerMs  int    `json:"timer_ms,omitempty"`
}

func errorNotification(title, format string, err error) Notification {
	return Notification{
		Kind:  KindModal,
		Level: LevelError,
		Title: title,
		Text:  fmt.Sprintf(format, err),
	}
}

// Dialog describes a confirmation prompt.
type Dialog struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	Icon         Level  `json:"icon"`
	ConfirmText  string `json:"confirm_text"`
	ConfirmColor string `json:"confirm_color"`
	CancelColor  string `json:"cancel_color"`
}

// DeleteDialog is shown before an order is deleted.
var DeleteDialog = Dialog{
	Title:        "Delete Order",
	Text:         "Are you sure you want to delete this order?",
	Icon:         LevelWarning,
	ConfirmText:  "Delete",
	ConfirmColor: "#d33",
	CancelColor:  "#3085d6",
}

// Confirmer asks the admin to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, d Dialog) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, d Dialog) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, d Dialog) (bool, error) { return f(ctx, d) }

// Confirmed returns a Confirmer with a fixed answer, for callers that
// collected the answer before calling in.
func Confirmed(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, Dialog) (bool, error) { return ok, nil })
}

// Outcome is the result of a dashboard operation. Err is nil on success.
// Notification is set whenever the admin should be told something.
type Outcome struct {
	State        *State
	Notification *Notification
	// Dialog is set when the operation was not confirmed and nothing was done.
	Dialog *Dialog
	Err    error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Err == nil && o.Dialog == nil }
