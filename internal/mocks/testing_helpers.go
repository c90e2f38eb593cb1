package mocks

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
)

// SetupLogger returns a logger whose output is buffered and only
// printed if the test fails.
func SetupLogger(t *testing.T) *slog.Logger {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	t.Cleanup(func() {
		if t.Failed() {
			os.Stdout.Write(buf.Bytes()) //nolint:errcheck
		}
	})

	return logger
}
