package core

import "context"

// NotifyTarget addresses an external conversation (for example a chat thread
// on a specific device) that should receive task updates.
type NotifyTarget struct {
	ConversationID string `json:"conversation_id"`
	DeviceID       string `json:"device_id"`
}

// Valid reports whether both halves of the target are set.
func (t *NotifyTarget) Valid() bool {
	return t != nil && t.ConversationID != "" && t.DeviceID != ""
}

// Notification is a single update delivered to a NotifyTarget.
type Notification struct {
	Target         NotifyTarget `json:"target"`
	Message        string       `json:"message"`
	OriginalPrompt string       `json:"original_prompt"`
	IsFinal        bool         `json:"is_final"`
}

// Notifier delivers task updates to an external sink. Delivery is best
// effort: callers log and swallow returned errors.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }
