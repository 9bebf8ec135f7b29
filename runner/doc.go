// Package runner implements the agent task registry and lifecycle manager.
//
// A Runner creates one agent per task, registers the task under a fresh id,
// and drives the agent's message loop under the task's timeout. The timeout
// is enforced at the result level: when the deadline passes the caller gets
// a substitute message while the loop is cancelled cooperatively and its
// eventual result discarded.
//
// # Responsibilities
//   - Sync (Run) and async (Start) entry points
//   - Journal entries for started, interim and final results
//   - Best-effort notifications to an external conversation
//   - Deregistration and agent cleanup on every exit path, panics included
//   - Cancel, Pause, Resume and Intervene for live tasks
package runner
