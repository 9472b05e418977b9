package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tally/internal/storage"
	"github.com/runnerr0/tally/internal/tracker"
)

func TestStatus_EmptyDB(t *testing.T) {
	e := newTestEnv(t, false)
	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.run(context.Background(), e))
	})

	assert.Contains(t, output, "Tally Status")
	assert.Contains(t, output, "Version:       dev")
	assert.Contains(t, output, "Schema:        v4")
	assert.Contains(t, output, "Stopwatch:     00:00:00.00 (stopped)")
	assert.Contains(t, output, "Counters:      0")
	assert.Contains(t, output, "Sessions:      0")
}

func TestStatus_JSONOutput(t *testing.T) {
	e := newTestEnv(t, true)
	seedCounters(t, e, "a", "b")
	cmd := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "dev"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.run(context.Background(), e))
	})

	var got statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	assert.Equal(t, "dev", got.Version)
	assert.Equal(t, storage.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, int64(2), got.Counters)
	assert.False(t, got.Running)
	assert.Greater(t, got.DatabaseBytes, int64(0))
}

func TestStartStopReset(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()

	out := captureOutput(t, func() {
		require.NoError(t, (&StartCommand{}).run(ctx, e))
	})
	assert.Contains(t, out, "(running)")

	out = captureOutput(t, func() {
		require.NoError(t, (&StopCommand{}).run(ctx, e))
	})
	assert.Contains(t, out, "(stopped)")

	st, err := e.stopwatch.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Zero(t, st.StartedAt)

	out = captureOutput(t, func() {
		require.NoError(t, (&ResetCommand{}).run(ctx, e))
	})
	assert.Contains(t, out, "00:00:00.00 (stopped)")
}

func TestCounterCommands(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()

	out := captureOutput(t, func() {
		require.NoError(t, (&CounterAddCommand{}).run(ctx, e, []string{"push", "ups"}))
	})
	assert.Equal(t, "push ups: 0\n", out)
	seedCounters(t, e, "squats")

	out = captureOutput(t, func() {
		require.NoError(t, (&CounterIncCommand{Times: 3}).run(ctx, e, []string{"push", "ups"}))
	})
	assert.Equal(t, "push ups: 3\n", out)

	out = captureOutput(t, func() {
		require.NoError(t, (&CounterDecCommand{Times: 1}).run(ctx, e, []string{"2"}))
	})
	assert.Equal(t, "squats: -1\n", out)

	out = captureOutput(t, func() {
		require.NoError(t, (&CounterMvCommand{}).run(ctx, e, []string{"squats", "1"}))
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "squats")
	assert.Contains(t, lines[1], "push ups")

	entries, err := e.series.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	out = captureOutput(t, func() {
		require.NoError(t, (&CounterRmCommand{}).run(ctx, e, []string{"1"}))
	})
	assert.NotContains(t, out, "squats")

	counters, err := e.counters.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, counters, 1)
	assert.Equal(t, "push ups", counters[0].Name)
}

func TestCounterCommands_Errors(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()
	seedCounters(t, e, "a")

	assert.Error(t, (&CounterAddCommand{}).run(ctx, e, nil))
	assert.ErrorIs(t, (&CounterIncCommand{Times: 1}).run(ctx, e, []string{"5"}), tracker.ErrNoSuchCounter)
	assert.ErrorIs(t, (&CounterIncCommand{Times: 1}).run(ctx, e, []string{"missing"}), tracker.ErrNoSuchCounter)
	assert.Error(t, (&CounterIncCommand{Times: 0}).run(ctx, e, []string{"a"}))
	assert.Error(t, (&CounterMvCommand{}).run(ctx, e, []string{"a"}))
	assert.ErrorIs(t, (&CounterMvCommand{}).run(ctx, e, []string{"a", "4"}), tracker.ErrNoSuchCounter)
}

func TestCounterList_JSON(t *testing.T) {
	e := newTestEnv(t, true)
	ctx := context.Background()

	out := captureOutput(t, func() {
		require.NoError(t, (&CounterListCommand{}).run(ctx, e))
	})
	assert.JSONEq(t, `[]`, out)

	seedCounters(t, e, "x")
	out = captureOutput(t, func() {
		require.NoError(t, (&CounterListCommand{}).run(ctx, e))
	})
	var got []storage.Counter
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Name)
}

func TestSessionCommands(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()
	seedCounters(t, e, "a")

	out := captureOutput(t, func() {
		require.NoError(t, (&SessionSaveCommand{}).run(ctx, e, []string{"Morning", "set"}))
	})
	assert.Contains(t, out, "Name:      Morning set")

	sessions, err := e.sessions.LoadAll(ctx, storage.AllSessions())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	id := sessions[0].ID

	out = captureOutput(t, func() {
		require.NoError(t, (&SessionSearchCommand{}).run(ctx, e, []string{"morning"}))
	})
	assert.Contains(t, out, id)

	out = captureOutput(t, func() {
		require.NoError(t, (&SessionListCommand{Name: "Morning set"}).run(ctx, e))
	})
	assert.Contains(t, out, id)

	today := time.Now().Format("2006-01-02")
	out = captureOutput(t, func() {
		require.NoError(t, (&SessionListCommand{From: today, To: today}).run(ctx, e))
	})
	assert.Contains(t, out, id)

	out = captureOutput(t, func() {
		require.NoError(t, (&SessionListCommand{To: "2000-01-01"}).run(ctx, e))
	})
	assert.Contains(t, out, "No sessions.")

	out = captureOutput(t, func() {
		require.NoError(t, (&SessionRenameCommand{}).run(ctx, e, []string{id, "Evening"}))
	})
	assert.Contains(t, out, "Name:      Evening")

	out = captureOutput(t, func() {
		require.NoError(t, (&SessionShowCommand{}).run(ctx, e, []string{id}))
	})
	assert.Contains(t, out, "Evening")
	assert.Contains(t, out, "a")

	// Restore after changing state.
	st, err := e.tracker.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, e.tracker.Increment(ctx, st, 0))

	out = captureOutput(t, func() {
		require.NoError(t, (&SessionLoadCommand{}).run(ctx, e, []string{id}))
	})
	assert.Contains(t, out, "Loaded session "+id)

	counters, err := e.counters.LoadAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, counters[0].Value)

	out = captureOutput(t, func() {
		require.NoError(t, (&SessionRmCommand{}).run(ctx, e, []string{id}))
	})
	assert.Contains(t, out, "Deleted session")
	_, err = e.sessions.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionCommands_Errors(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()

	assert.ErrorIs(t, (&SessionShowCommand{}).run(ctx, e, []string{"nope"}), storage.ErrNotFound)
	assert.ErrorIs(t, (&SessionRenameCommand{}).run(ctx, e, []string{"nope", "x"}), storage.ErrNotFound)
	assert.ErrorIs(t, (&SessionLoadCommand{}).run(ctx, e, []string{"nope"}), storage.ErrNotFound)
	assert.Error(t, (&SessionRenameCommand{}).run(ctx, e, []string{"only-id"}))
	assert.Error(t, (&SessionListCommand{Name: "x", From: "2024-01-01"}).run(ctx, e))
	assert.Error(t, (&SessionListCommand{From: "yesterday"}).run(ctx, e))
	assert.Error(t, (&SessionListCommand{From: "2024-02-01", To: "2024-01-01"}).run(ctx, e))
}

func TestSeriesCommands(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()
	seedCounters(t, e, "a", "b")
	st, err := e.tracker.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, e.tracker.Increment(ctx, st, 0))
	require.NoError(t, e.tracker.Decrement(ctx, st, 1))

	out := captureOutput(t, func() {
		require.NoError(t, (&SeriesListCommand{}).run(ctx, e))
	})
	assert.Contains(t, out, "increment")
	assert.Contains(t, out, "decrement")

	out = captureOutput(t, func() {
		require.NoError(t, (&SeriesListCommand{Counter: "b"}).run(ctx, e))
	})
	assert.NotContains(t, out, "increment")

	captureOutput(t, func() {
		require.NoError(t, (&SeriesClearCommand{}).run(ctx, e))
	})
	out = captureOutput(t, func() {
		require.NoError(t, (&SeriesListCommand{}).run(ctx, e))
	})
	assert.Contains(t, out, "No recorded changes.")
}

func TestExportCommand(t *testing.T) {
	e := newTestEnv(t, false)
	ctx := context.Background()
	seedCounters(t, e, "laps")
	st, err := e.tracker.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, e.tracker.Increment(ctx, st, 0))

	path := filepath.Join(t.TempDir(), "out", "export.csv")
	out := captureOutput(t, func() {
		require.NoError(t, (&ExportCommand{Out: path}).run(ctx, e))
	})
	assert.Contains(t, out, "Exported 1 counters and 1 entries")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("Counter Name,Value\n\"laps\",1\n")))
	assert.Contains(t, string(data), "Time Series Data")
}

func TestExportCommand_DefaultName(t *testing.T) {
	e := newTestEnv(t, false)
	e.cfg.Export.Dir = t.TempDir()

	captureOutput(t, func() {
		require.NoError(t, (&ExportCommand{}).run(context.Background(), e))
	})

	matches, err := filepath.Glob(filepath.Join(e.cfg.Export.Dir, "stopwatch-counter-export-*.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,234", formatNumber(1234))
	assert.Equal(t, "123,456", formatNumber(123456))
	assert.Equal(t, "-1,000", formatNumber(-1000))

	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))

	assert.Equal(t, "01:01:01.50", formatClock(3_661_500))
}

func TestParseDateBound(t *testing.T) {
	lo, err := parseDateBound("2024-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), lo)

	hi, err := parseDateBound("2024-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 999_000_000, time.Local), hi)

	exact, err := parseDateBound("2024-03-01T10:00:00Z", true)
	require.NoError(t, err)
	assert.True(t, exact.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	_, err = parseDateBound("March", false)
	assert.Error(t, err)
}
