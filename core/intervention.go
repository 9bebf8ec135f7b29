package core

import (
	"context"
	"sync"
)

// Intervention is the user-driven control signal consulted by an agent at its
// natural checkpoints (before tool execution, while polling process output,
// around knowledge aggregation). It is distinct from the task timeout: a pause
// blocks the checkpoint until Resume, and a pending message makes the
// checkpoint return early so the agent can take the message into account.
type Intervention struct {
	mu      sync.Mutex
	paused  bool
	resume  chan struct{}
	message string
	pending bool
}

// NewIntervention returns an idle intervention signal.
func NewIntervention() *Intervention { return &Intervention{} }

// Pause makes subsequent checkpoints block until Resume is called.
func (i *Intervention) Pause() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.paused {
		return
	}
	i.paused = true
	i.resume = make(chan struct{})
}

// Resume releases all checkpoints blocked by Pause.
func (i *Intervention) Resume() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.paused {
		return
	}
	i.paused = false
	close(i.resume)
}

// Paused reports whether the agent is currently paused.
func (i *Intervention) Paused() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.paused
}

// Intervene records a user message to be delivered at the next checkpoint.
// A newer message replaces an undelivered older one.
func (i *Intervention) Intervene(msg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.message = msg
	i.pending = true
}

// Triggered reports whether an intervention message is waiting.
func (i *Intervention) Triggered() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pending
}

// Take consumes the pending intervention message.
func (i *Intervention) Take() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.pending {
		return "", false
	}
	msg := i.message
	i.message, i.pending = "", false
	return msg, true
}

// Wait blocks while paused. It returns ctx.Err() if the context ends first.
func (i *Intervention) Wait(ctx context.Context) error {
	for {
		i.mu.Lock()
		if !i.paused {
			i.mu.Unlock()
			return nil
		}
		ch := i.resume
		i.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Check is the checkpoint helper: it waits out a pause and then reports
// whether the caller should stop early, either because an intervention
// message is pending or because the context is done.
func (i *Intervention) Check(ctx context.Context) bool {
	if i == nil {
		return ctx.Err() != nil
	}
	if err := i.Wait(ctx); err != nil {
		return true
	}
	return i.Triggered()
}
