// Package tracker holds the in-process application state: the stopwatch,
// the ordered counter list and the operations a user performs on them. Every
// operation persists through the storage repositories before it returns.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/tally/internal/storage"
)

// ErrNoSuchCounter is returned for a counter index outside the list.
var ErrNoSuchCounter = errors.New("no such counter")

// CounterStore persists the counter list.
type CounterStore interface {
	LoadAll(ctx context.Context) ([]storage.Counter, error)
	ReplaceAll(ctx context.Context, counters []storage.Counter) ([]storage.Counter, error)
}

// StopwatchStore persists the stopwatch.
type StopwatchStore interface {
	SaveState(ctx context.Context, st storage.StopwatchState) error
	LoadState(ctx context.Context) (*storage.StopwatchState, error)
}

// SessionStore persists session snapshots.
type SessionStore interface {
	Save(ctx context.Context, s *storage.Session) error
	Get(ctx context.Context, id string) (*storage.Session, error)
}

// SeriesStore records counter mutations.
type SeriesStore interface {
	Append(ctx context.Context, e *storage.TimeSeriesEntry) error
	Clear(ctx context.Context) error
}

// State is the current stopwatch and counters.
type State struct {
	Counters    []storage.Counter
	ElapsedTime int64 // ms accumulated before StartedAt
	Running     bool
	StartedAt   int64 // ms since epoch while running
}

// Elapsed returns the stopwatch reading at now.
func (s *State) Elapsed(now time.Time) int64 {
	if !s.Running || s.StartedAt == 0 {
		return s.ElapsedTime
	}
	d := now.UnixMilli() - s.StartedAt
	if d < 0 {
		d = 0
	}
	return s.ElapsedTime + d
}

func (s *State) stopwatch() storage.StopwatchState {
	return storage.StopwatchState{ElapsedTime: s.ElapsedTime, Running: s.Running, StartedAt: s.StartedAt}
}

// Tracker applies user operations to a State and persists the result.
type Tracker struct {
	counters  CounterStore
	stopwatch StopwatchStore
	sessions  SessionStore
	series    SeriesStore
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a Tracker over the given repositories.
func New(counters CounterStore, stopwatch StopwatchStore, sessions SessionStore, series SeriesStore, log zerolog.Logger) *Tracker {
	return &Tracker{
		counters:  counters,
		stopwatch: stopwatch,
		sessions:  sessions,
		series:    series,
		log:       log,
		now:       time.Now,
	}
}

// Load reads the persisted state. A store that has never saved a stopwatch
// yields a stopped stopwatch at zero.
func (t *Tracker) Load(ctx context.Context) (*State, error) {
	st := &State{}
	sw, err := t.stopwatch.LoadState(ctx)
	switch {
	case err == nil:
		st.ElapsedTime, st.Running, st.StartedAt = sw.ElapsedTime, sw.Running, sw.StartedAt
	case storage.IsNotFound(err):
	default:
		return nil, fmt.Errorf("load stopwatch: %w", err)
	}

	counters, err := t.counters.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	st.Counters = counters
	return st, nil
}

// AddCounter appends a counter at zero.
func (t *Tracker) AddCounter(ctx context.Context, st *State, name string) error {
	next := append(copyCounters(st.Counters), storage.Counter{Name: strings.TrimSpace(name)})
	return t.saveCounters(ctx, st, next)
}

// Increment adds one to counter i and records the change.
func (t *Tracker) Increment(ctx context.Context, st *State, i int) error {
	return t.step(ctx, st, i, 1, storage.ActionIncrement)
}

// Decrement subtracts one from counter i and records the change. Values may
// go negative.
func (t *Tracker) Decrement(ctx context.Context, st *State, i int) error {
	return t.step(ctx, st, i, -1, storage.ActionDecrement)
}

func (t *Tracker) step(ctx context.Context, st *State, i int, delta int64, action storage.Action) error {
	if err := checkIndex(st, i); err != nil {
		return err
	}
	next := copyCounters(st.Counters)
	next[i].Value += delta

	now := t.now()
	entry := &storage.TimeSeriesEntry{
		Timestamp:   now,
		CounterName: next[i].Name,
		Value:       next[i].Value,
		Action:      action,
		ElapsedTime: st.Elapsed(now),
	}
	if err := t.series.Append(ctx, entry); err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return t.saveCounters(ctx, st, next)
}

// DeleteCounter removes counter i. Its recorded history is kept.
func (t *Tracker) DeleteCounter(ctx context.Context, st *State, i int) error {
	if err := checkIndex(st, i); err != nil {
		return err
	}
	next := copyCounters(st.Counters)
	next = append(next[:i], next[i+1:]...)
	return t.saveCounters(ctx, st, next)
}

// MoveCounter moves counter from to position to, shifting the others.
func (t *Tracker) MoveCounter(ctx context.Context, st *State, from, to int) error {
	if err := checkIndex(st, from); err != nil {
		return err
	}
	if err := checkIndex(st, to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	next := copyCounters(st.Counters)
	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]storage.Counter{moved}, next[to:]...)...)
	return t.saveCounters(ctx, st, next)
}

// Start runs the stopwatch. Starting a running stopwatch changes nothing.
func (t *Tracker) Start(ctx context.Context, st *State) error {
	if st.Running {
		return nil
	}
	next := *st
	next.Running = true
	next.StartedAt = t.now().UnixMilli()
	return t.saveStopwatch(ctx, st, next)
}

// Stop folds the running time into ElapsedTime and stops the stopwatch.
func (t *Tracker) Stop(ctx context.Context, st *State) error {
	if !st.Running {
		return nil
	}
	next := *st
	next.ElapsedTime = st.Elapsed(t.now())
	next.Running = false
	next.StartedAt = 0
	return t.saveStopwatch(ctx, st, next)
}

// Reset stops the stopwatch at zero and clears the time series.
func (t *Tracker) Reset(ctx context.Context, st *State) error {
	next := *st
	next.ElapsedTime, next.Running, next.StartedAt = 0, false, 0
	if err := t.saveStopwatch(ctx, st, next); err != nil {
		return err
	}
	if err := t.series.Clear(ctx); err != nil {
		return fmt.Errorf("clear time series: %w", err)
	}
	return nil
}

// SaveSession snapshots the current counters and stopwatch reading. An empty
// name gets the default session name.
func (t *Tracker) SaveSession(ctx context.Context, st *State, name string) (*storage.Session, error) {
	now := t.now()
	s := &storage.Session{
		Name:        strings.TrimSpace(name),
		Timestamp:   now.UnixMilli(),
		ElapsedTime: st.Elapsed(now),
		Counters:    storage.Snapshot(st.Counters),
	}
	if err := t.sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	t.log.Info().Str("id", s.ID).Str("name", s.Name).Msg("session saved")
	return s, nil
}

// LoadSession replaces the current state with session id: the time series
// is cleared, counters and elapsed time are taken from the session and the
// stopwatch is stopped.
func (t *Tracker) LoadSession(ctx context.Context, st *State, id string) error {
	s, err := t.sessions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	if err := t.series.Clear(ctx); err != nil {
		return fmt.Errorf("clear time series: %w", err)
	}

	counters := make([]storage.Counter, len(s.Counters))
	for i, c := range s.Counters {
		counters[i] = storage.Counter{Name: c.Name, Value: c.Value}
	}
	if err := t.saveCounters(ctx, st, counters); err != nil {
		return err
	}

	next := *st
	next.ElapsedTime, next.Running, next.StartedAt = s.ElapsedTime, false, 0
	if err := t.saveStopwatch(ctx, st, next); err != nil {
		return err
	}
	t.log.Info().Str("id", id).Msg("session loaded")
	return nil
}

func (t *Tracker) saveCounters(ctx context.Context, st *State, next []storage.Counter) error {
	stored, err := t.counters.ReplaceAll(ctx, next)
	if err != nil {
		return fmt.Errorf("save counters: %w", err)
	}
	st.Counters = stored
	return nil
}

func (t *Tracker) saveStopwatch(ctx context.Context, st *State, next State) error {
	if err := t.stopwatch.SaveState(ctx, next.stopwatch()); err != nil {
		return fmt.Errorf("save stopwatch: %w", err)
	}
	st.ElapsedTime, st.Running, st.StartedAt = next.ElapsedTime, next.Running, next.StartedAt
	return nil
}

func checkIndex(st *State, i int) error {
	if i < 0 || i >= len(st.Counters) {
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchCounter, i, len(st.Counters))
	}
	return nil
}

func copyCounters(cs []storage.Counter) []storage.Counter {
	out := make([]storage.Counter, len(cs))
	copy(out, cs)
	return out
}
