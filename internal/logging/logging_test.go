package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlerLevels(t *testing.T) {
	ctx := context.Background()

	var quiet bytes.Buffer
	l := New(slog.New(NewHandler(&quiet, Options{})))
	l.Debug(ctx, "hidden")
	l.Info(ctx, "shown")
	assert.NotContains(t, quiet.String(), "hidden")
	assert.Contains(t, quiet.String(), "shown")

	var verbose bytes.Buffer
	l = New(slog.New(NewHandler(&verbose, Options{Verbose: true})))
	l.Debug(ctx, "hidden")
	assert.Contains(t, verbose.String(), "hidden")
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.New(NewHandler(&buf, Options{JSON: true}))).With("stage", "shim")
	l.Warn(context.Background(), "archiver missing", "tool", "ar")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "shim", rec["stage"])
	assert.Equal(t, "ar", rec["tool"])
}

func TestNewNilUsesDefault(t *testing.T) {
	assert.NotNil(t, New(nil))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error(context.Background(), "dropped")
}

func TestTruncated(t *testing.T) {
	short := Truncated("out", "abc", 10)
	assert.Equal(t, "abc", short.Value.String())

	long := Truncated("out", strings.Repeat("x", 20), 5)
	assert.Equal(t, "xxxxx"+truncatedSuffix, long.Value.String())

	unlimited := Truncated("out", strings.Repeat("x", 20), 0)
	assert.Len(t, unlimited.Value.String(), 20)
}
