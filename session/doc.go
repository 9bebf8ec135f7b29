// Package session implements the interactive process session backing an
// agent's code execution tool, and the polling detector that decides when a
// command's output is complete.
//
// A Local session owns one long-lived shell process. Commands are written to
// its stdin; stdout and stderr are merged into a single buffer read through
// ReadOutput, which distinguishes output that is new since the previous read
// from everything produced so far.
//
// The session does not serialize commands itself. Output attribution is only
// meaningful when a command is sent after the previous one has been drained,
// so callers must hold their own per-agent lock around Send + Detector.Drain.
package session
