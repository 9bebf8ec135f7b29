package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agenttask/core"
)

// RecordingNotifier records every notification it receives. Err, if set, is
// returned from every Notify call after recording.
type RecordingNotifier struct {
	Err error

	mu    sync.Mutex
	notes []core.Notification
}

// Notify implements core.Notifier.
func (n *RecordingNotifier) Notify(_ context.Context, note core.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return n.Err
}

// Notifications returns a copy of the recorded notifications.
func (n *RecordingNotifier) Notifications() []core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Notification(nil), n.notes...)
}

// Finals returns the recorded final notifications.
func (n *RecordingNotifier) Finals() []core.Notification {
	var out []core.Notification
	for _, note := range n.Notifications() {
		if note.IsFinal {
			out = append(out, note)
		}
	}
	return out
}
