package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tally/internal/config"
	"github.com/runnerr0/tally/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestEnv builds an env over a migrated in-memory store.
func newTestEnv(t *testing.T, jsonOut bool) *env {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.Options{Path: storage.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return newEnv(config.DefaultConfig(), storage.MemoryPath, store, zerolog.Nop(), jsonOut)
}

// seedCounters adds counters through the tracker.
func seedCounters(t *testing.T, e *env, names ...string) {
	t.Helper()
	ctx := context.Background()
	st, err := e.tracker.Load(ctx)
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, e.tracker.AddCounter(ctx, st, n))
	}
}
