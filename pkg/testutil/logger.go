package testutil

import "log/slog"

// DiscardLogger returns a logger that drops everything, for tests that
// don't assert on log output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
