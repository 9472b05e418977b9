package storage

import (
	"fmt"
	"time"

	"github.com/gookit/validate"
)

// StopwatchKey is the fixed key of the single stopwatch record.
const StopwatchKey = "current"

// StopwatchState is the persisted stopwatch. Exactly one exists.
type StopwatchState struct {
	ElapsedTime int64 `json:"elapsedTime"` // ms accumulated before StartedAt
	Running     bool  `json:"running"`
	StartedAt   int64 `json:"startedAt,omitempty"` // ms since epoch, 0 when stopped
}

// Counter is one named counter. Order in a list is display order.
type Counter struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name" validate:"required"`
	Value int64  `json:"value"`
}

// CounterSnapshot is a counter value captured inside a session.
type CounterSnapshot struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Session is an immutable named snapshot of stopwatch and counters.
type Session struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Date        time.Time         `json:"date"`
	Timestamp   int64             `json:"timestamp"` // ms since epoch
	ElapsedTime int64             `json:"elapsedTime"`
	Counters    []CounterSnapshot `json:"counters"`
}

// Action is the kind of counter mutation recorded in the time series.
type Action string

const (
	ActionIncrement Action = "increment"
	ActionDecrement Action = "decrement"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionIncrement || a == ActionDecrement
}

// TimeSeriesEntry records one counter mutation.
type TimeSeriesEntry struct {
	ID          int64     `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	CounterName string    `json:"counterName" validate:"required"`
	Value       int64     `json:"value"`
	Action      Action    `json:"action" validate:"required"`
	ElapsedTime int64     `json:"elapsedTime"` // stopwatch ms when the mutation happened
}

// checkStruct runs the struct's validate tags and wraps the first failure.
func checkStruct(kind string, v interface{}) error {
	val := validate.Struct(v)
	if !val.Validate() {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRecord, kind, val.Errors.One())
	}
	return nil
}

func validateCounter(c *Counter) error {
	return checkStruct("counter", c)
}

func validateEntry(e *TimeSeriesEntry) error {
	if err := checkStruct("time series entry", e); err != nil {
		return err
	}
	if !e.Action.Valid() {
		return fmt.Errorf("%w: time series entry: unknown action %q", ErrInvalidRecord, e.Action)
	}
	return nil
}

// snapshot deep-copies counters into session form.
func snapshot(counters []CounterSnapshot) []CounterSnapshot {
	out := make([]CounterSnapshot, len(counters))
	copy(out, counters)
	return out
}

// Snapshot captures counters as session snapshots.
func Snapshot(counters []Counter) []CounterSnapshot {
	out := make([]CounterSnapshot, len(counters))
	for i, c := range counters {
		out[i] = CounterSnapshot{Name: c.Name, Value: c.Value}
	}
	return out
}
