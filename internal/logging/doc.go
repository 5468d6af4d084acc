// Package logging builds slog loggers with a console handler for
// interactive use and a JSON handler for machine consumption. Output can
// fan out to stdout and a log file at the same time.
package logging
