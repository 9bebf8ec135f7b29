// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when wiring agents, scripted models and notification
// sinks. They are not intended for production usage.
package testutil
