// Package core provides the foundational domain types and small interfaces
// shared by the agenttask packages:
//
//   - Messages and tool calls exchanged with a model
//   - Scratch (per-agent private key/value data)
//   - Intervention (user-driven pause / interrupt signal)
//   - MemoryStore and MemoryDocument (long-term memory contract)
//   - Notifier and Journal (task lifecycle sinks)
//   - ToolContext (scoped execution surface handed to tools)
//
// Implementation concerns (process sessions, vector indexes, HTTP transports)
// live in their own packages and depend on core, never the other way round.
package core
