// Package logging defines the Logger interface used across agenttask and a
// slog based implementation.
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "text"})
//	r := runner.New(factory, func(o *runner.Options) { o.Logger = logging.WithComponent(logger, "runner") })
package logging
