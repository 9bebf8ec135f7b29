package core

import (
	"fmt"
	"sync/atomic"
)

// CallBudget counts model calls made by one agent. A zero limit never runs out.
type CallBudget struct {
	limit int64
	used  atomic.Int64
}

// NewCallBudget returns a budget allowing limit calls.
func NewCallBudget(limit int) *CallBudget {
	return &CallBudget{limit: int64(limit)}
}

// Spend records a call and fails with ErrModelCallLimit once the limit is passed.
func (b *CallBudget) Spend() error {
	if n := b.used.Add(1); b.limit > 0 && n > b.limit {
		return fmt.Errorf("%w: %d", ErrModelCallLimit, b.limit)
	}
	return nil
}

// Used reports the calls recorded so far, including the rejected ones.
func (b *CallBudget) Used() int { return int(b.used.Load()) }

// Left reports the calls still allowed, or -1 for an unlimited budget.
func (b *CallBudget) Left() int {
	if b.limit == 0 {
		return -1
	}
	return int(max(b.limit-b.used.Load(), 0))
}
