package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/enetx/hfsm/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
	}

	for in, want := range cases {
		assert.Equal(t, want, logging.ParseLevel(in), in)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "error", errors.New("boom"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "err=boom")
}
