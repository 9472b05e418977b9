package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// StopwatchRepository persists the singleton stopwatch state.
type StopwatchRepository struct {
	store *Store
	log   zerolog.Logger
}

// NewStopwatchRepository creates a StopwatchRepository over store.
func NewStopwatchRepository(store *Store, log zerolog.Logger) *StopwatchRepository {
	return &StopwatchRepository{store: store, log: log.With().Str("collection", CollectionStopwatch).Logger()}
}

// SaveState overwrites the stopwatch record.
func (r *StopwatchRepository) SaveState(ctx context.Context, st StopwatchState) error {
	if st.ElapsedTime < 0 {
		return fmt.Errorf("%w: stopwatch: negative elapsed time %d", ErrInvalidRecord, st.ElapsedTime)
	}
	_, err := r.store.Put(ctx, CollectionStopwatch, Record{
		"id":          StopwatchKey,
		"elapsedTime": st.ElapsedTime,
		"running":     st.Running,
		"startedAt":   st.StartedAt,
	})
	if err != nil {
		r.log.Error().Err(err).Msg("save stopwatch state")
		return err
	}
	r.log.Debug().Int64("elapsed_ms", st.ElapsedTime).Bool("running", st.Running).Msg("saved stopwatch state")
	return nil
}

// LoadState returns the saved state. ErrNotFound means nothing was saved yet.
func (r *StopwatchRepository) LoadState(ctx context.Context) (*StopwatchState, error) {
	rec, err := r.store.Get(ctx, CollectionStopwatch, StopwatchKey)
	if err != nil {
		if !IsNotFound(err) {
			r.log.Error().Err(err).Msg("load stopwatch state")
		}
		return nil, err
	}
	return &StopwatchState{
		ElapsedTime: rec.Int("elapsedTime"),
		Running:     rec.Bool("running"),
		StartedAt:   rec.Int("startedAt"),
	}, nil
}
