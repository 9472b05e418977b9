package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/runnerr0/tally/internal/config"
	"github.com/runnerr0/tally/internal/logging"
	"github.com/runnerr0/tally/internal/storage"
	"github.com/runnerr0/tally/internal/tracker"
)

// env is everything a command needs: resolved config, the open store and
// the repositories and tracker built on it.
type env struct {
	cfg    *config.Config
	dbPath string
	log    zerolog.Logger
	json   bool

	store     *storage.Store
	stopwatch *storage.StopwatchRepository
	counters  *storage.CounterRepository
	sessions  *storage.SessionRepository
	series    *storage.TimeSeriesRepository
	tracker   *tracker.Tracker
}

func newEnv(cfg *config.Config, dbPath string, store *storage.Store, log zerolog.Logger, jsonOut bool) *env {
	e := &env{
		cfg:       cfg,
		dbPath:    dbPath,
		log:       log,
		json:      jsonOut,
		store:     store,
		stopwatch: storage.NewStopwatchRepository(store, log),
		counters:  storage.NewCounterRepository(store, log),
		sessions:  storage.NewSessionRepository(store, log),
		series:    storage.NewTimeSeriesRepository(store, log),
	}
	e.tracker = tracker.New(e.counters, e.stopwatch, e.sessions, e.series, log)
	return e
}

// loadConfig reads the config named by --config, or the default location.
func loadConfig(g *GlobalFlags) (*config.Config, error) {
	if g != nil && g.Config != "" {
		return config.LoadOrCreateAt(g.Config)
	}
	return config.LoadOrCreate()
}

// openEnv loads config, builds the logger and opens the migrated store.
func openEnv(ctx context.Context, g *GlobalFlags) (*env, error) {
	if g == nil {
		g = &GlobalFlags{}
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.Verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	dbPath := g.DBPath
	if dbPath == "" {
		dbPath, err = cfg.DatabasePath()
		if err != nil {
			return nil, err
		}
	}
	if dbPath != storage.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	store, err := storage.Open(ctx, storage.Options{
		Path:        dbPath,
		JournalMode: cfg.Storage.JournalMode,
		BusyTimeout: cfg.BusyTimeout(),
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", dbPath).Msg("store opened")

	return newEnv(cfg, dbPath, store, log, g.JSON), nil
}

// withEnv opens the store, runs fn and closes the store again.
func withEnv(g *GlobalFlags, fn func(ctx context.Context, e *env) error) error {
	ctx := context.Background()
	e, err := openEnv(ctx, g)
	if err != nil {
		return err
	}
	defer e.store.Close()
	return fn(ctx, e)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveCounter turns a 1-based position or a counter name into an index in
// st.Counters. A name matching several counters picks the first.
func resolveCounter(ctx context.Context, e *env, st *tracker.State, ref string) (int, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(st.Counters) {
			return 0, fmt.Errorf("%w: position %d (have %d)", tracker.ErrNoSuchCounter, n, len(st.Counters))
		}
		return n - 1, nil
	}

	matches, err := e.counters.FindByName(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("find counter: %w", err)
	}
	for _, m := range matches {
		for i, c := range st.Counters {
			if c.ID == m.ID {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", tracker.ErrNoSuchCounter, ref)
}

// parseDateBound parses a YYYY-MM-DD date or an RFC 3339 timestamp. A bare
// date used as an upper bound covers the whole day.
func parseDateBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, nil
}

// requireArgs checks the positional argument count for a command.
func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

// joinArgs returns the positional arguments as one space-separated string.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// stopwatchLabel renders the stopwatch reading with its state.
func stopwatchLabel(st *tracker.State, now time.Time) string {
	state := "stopped"
	if st.Running {
		state = "running"
	}
	return fmt.Sprintf("%s (%s)", formatClock(st.Elapsed(now)), state)
}

// formatClock renders milliseconds as HH:MM:SS.cc.
func formatClock(ms int64) string {
	return fmt.Sprintf("%02d:%02d:%02d.%02d", ms/3600000, ms%3600000/60000, ms%60000/1000, ms%1000/10)
}
