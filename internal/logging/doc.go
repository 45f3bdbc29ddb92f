// Package logging constructs the process-wide slog logger.
//
// The logger is built once from configuration and passed to components
// explicitly; nothing in this package touches global state. Console output
// is colorized when attached to a terminal, and a JSON format is available
// for machine consumption. Log files are appended under the configured log
// directory alongside stdout.
package logging
