// Package agent implements the conversational agent driven by a task: it
// keeps the message history, calls the model and dispatches the tool calls
// the model requests until a tool ends the loop.
//
// Each Agent owns private scratch data (used by tools to cache resources such
// as a shell session), an intervention signal consulted at checkpoints, and
// a model call budget. An Agent is used by exactly one task; Close releases
// its resources.
package agent
