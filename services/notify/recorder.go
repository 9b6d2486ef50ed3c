package notifysvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/vince-duran/TPLearn-sub006/core"
)

// Recorder captures notifications for tests instead of delivering them.
// Set Fail to simulate a notifier outage.
type Recorder struct {
	mu            sync.Mutex
	Notifications []core.Notification
	Fail          bool
}

var _ core.Notifier = (*Recorder)(nil)

func (r *Recorder) Notify(_ context.Context, n core.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return false, errors.New("notifier unavailable")
	}
	r.Notifications = append(r.Notifications, n)
	return true, nil
}

// Sent returns a copy of the captured notifications.
func (r *Recorder) Sent() []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := make([]core.Notification, len(r.Notifications))
	copy(sent, r.Notifications)
	return sent
}

// Reset clears the capture buffer between tests.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = nil
	r.Fail = false
}
