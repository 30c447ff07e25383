package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tradepost/pkg/core"
)

var _ core.Logger = (*Logger)(nil)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(WithWriter(&buf), WithLevel(zerolog.DebugLevel))
	require.NoError(t, err)

	log.Error("sync failed", errors.New("boom"), "section", "browse", "count", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "sync failed", line["message"])
	require.Equal(t, "boom", line["error"])
	require.Equal(t, "browse", line["section"])
	require.Equal(t, float64(3), line["count"])
	require.Equal(t, "logger_test.go", line["file"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(WithWriter(&buf), WithLevel(zerolog.InfoLevel))
	require.NoError(t, err)

	log.Debug("hidden")
	require.Zero(t, buf.Len())

	log.Info("shown", "odd")
	require.Contains(t, buf.String(), "shown")
}

func TestAddWriterTeesOutput(t *testing.T) {
	var first, second bytes.Buffer
	log, err := NewLogger(WithWriter(&first))
	require.NoError(t, err)

	log.AddWriter(&second)
	log.Warn("teed")

	require.Contains(t, first.String(), "teed")
	require.Contains(t, second.String(), "teed")
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Info("nothing", "k", "v")
	log.Error("nothing", errors.New("x"))
	require.NoError(t, log.Close())
}
