package session

import (
	"context"
	"strings"
	"time"
)

// Default idle policy: poll every 100ms, consider a command finished after
// 30 quiet polls once it has printed something, or give up after 100 quiet
// polls if it never printed anything.
const (
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultIdleWithOutput    = 30
	DefaultIdleWithoutOutput = 100
)

// Detector decides when a command's output has gone quiet long enough to be
// considered complete. The backing process exposes no explicit "done" signal,
// so completion is inferred from idle poll counts.
type Detector struct {
	// PollInterval is the sleep between two reads.
	PollInterval time.Duration
	// IdleWithOutput is the number of consecutive quiet polls after which a
	// command that has produced output is considered finished.
	IdleWithOutput int
	// IdleWithoutOutput is the number of consecutive quiet polls after which
	// a command that never produced output is given up on.
	IdleWithoutOutput int
}

// NewDetector returns a Detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{
		PollInterval:      DefaultPollInterval,
		IdleWithOutput:    DefaultIdleWithOutput,
		IdleWithoutOutput: DefaultIdleWithoutOutput,
	}
}

// DrainOptions carries the per-call hooks of Drain.
type DrainOptions struct {
	// Intervene is consulted on every poll; returning true stops draining
	// and returns the output accumulated so far.
	Intervene func(ctx context.Context) bool
	// OnOutput receives each new chunk as it is observed.
	OnOutput func(chunk string)
}

// Drain polls r until the idle policy declares the current command complete
// and returns the output observed during this call (everything unread when
// Drain started included). An empty result means the command printed
// nothing; callers substitute their own placeholder.
//
// Drain returns ErrSessionClosed (wrapped) when the session stops being
// usable, which callers must treat differently from "no output yet". A done
// context returns the output so far together with ctx.Err().
func (d *Detector) Drain(ctx context.Context, r Reader, opts DrainOptions) (string, error) {
	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var out strings.Builder
	idle := 0
	for {
		select {
		case <-ctx.Done():
			return out.String(), ctx.Err()
		case <-ticker.C:
		}

		_, partial := r.ReadOutput()
		out.WriteString(partial)

		if opts.Intervene != nil && opts.Intervene(ctx) {
			return out.String(), nil
		}

		if partial != "" {
			idle = 0
			if opts.OnOutput != nil {
				opts.OnOutput(partial)
			}
			continue
		}

		if err := r.Err(); err != nil {
			return out.String(), err
		}

		idle++
		seen := out.Len() > 0
		if (seen && idle > d.IdleWithOutput) || (!seen && idle > d.IdleWithoutOutput) {
			return out.String(), nil
		}
	}
}
