// Package logging builds the slog loggers used across corkboard and
// provides shared attribute helpers so subsystems log with consistent keys.
package logging
