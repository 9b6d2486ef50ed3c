package core

import "context"

// Notification kinds emitted by the billing engine.
const (
	NotifyObligationDecided       = "obligation_decided"
	NotifyEnrollmentStatusChanged = "enrollment_status_changed"
)

type Notification struct {
	UserID  string
	Kind    string
	Payload map[string]interface{}
}

// Notifier delivers best-effort notifications after a state transition has
// committed. A failed delivery is reported to the caller (logged, surfaced as
// a warning) but must never roll back or block the transition itself.
type Notifier interface {
	Notify(ctx context.Context, n Notification) (sent bool, err error)
}
