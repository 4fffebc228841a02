package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/CZERTAINLY/jobvisor/internal/log"
	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := log.New(&buf, log.FormatJSON, false)
	require.NoError(t, err)

	ctx := log.ContextAttrs(t.Context(), slog.String("run_id", "r1"))
	child := log.ContextAttrs(ctx, slog.Int("job_id", 4))
	logger.With("static", true).InfoContext(child, "hello")
	logger.DebugContext(ctx, "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "r1", rec["run_id"])
	require.Equal(t, float64(4), rec["job_id"])
	require.Equal(t, true, rec["static"])
}

func TestContextAttrsSiblings(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := log.New(&buf, log.FormatText, true)
	require.NoError(t, err)

	parent := log.ContextAttrs(context.Background(), slog.String("run_id", "r1"))
	a := log.ContextAttrs(parent, slog.Int("job_id", 1))
	_ = log.ContextAttrs(parent, slog.Int("job_id", 2))
	logger.DebugContext(a, "sibling")

	require.Contains(t, buf.String(), "job_id=1")
	require.NotContains(t, buf.String(), "job_id=2")
}

func TestNewUnknownFormat(t *testing.T) {
	t.Parallel()
	_, err := log.New(&bytes.Buffer{}, "xml", false)
	require.Error(t, err)
}
