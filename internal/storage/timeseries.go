package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// TimeSeriesRepository is the append-only log of counter mutations.
type TimeSeriesRepository struct {
	store *Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewTimeSeriesRepository creates a TimeSeriesRepository over store.
func NewTimeSeriesRepository(store *Store, log zerolog.Logger) *TimeSeriesRepository {
	return &TimeSeriesRepository{
		store: store,
		log:   log.With().Str("collection", CollectionTimeSeries).Logger(),
		now:   time.Now,
	}
}

// Append stamps e with the current time when it has none and inserts it.
// e.ID is set to the assigned key.
func (r *TimeSeriesRepository) Append(ctx context.Context, e *TimeSeriesEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	if err := validateEntry(e); err != nil {
		return err
	}
	key, err := r.store.Add(ctx, CollectionTimeSeries, Record{
		"timestamp":   e.Timestamp,
		"counterName": e.CounterName,
		"value":       e.Value,
		"action":      string(e.Action),
		"elapsedTime": e.ElapsedTime,
	})
	if err != nil {
		r.log.Error().Err(err).Str("counter", e.CounterName).Msg("append time series entry")
		return err
	}
	e.ID = key.(int64)
	return nil
}

// QueryByCounter returns every entry recorded for one counter, in no
// particular order.
func (r *TimeSeriesRepository) QueryByCounter(ctx context.Context, name string) ([]TimeSeriesEntry, error) {
	recs, err := r.store.GetAllByIndex(ctx, CollectionTimeSeries, "counterName", Only(name))
	if err != nil {
		r.log.Error().Err(err).Str("counter", name).Msg("query time series by counter")
		return nil, err
	}
	return decodeEntries(recs)
}

// QueryAll returns every entry sorted by elapsed time ascending. Entries with
// equal elapsed time keep their recording order.
func (r *TimeSeriesRepository) QueryAll(ctx context.Context) ([]TimeSeriesEntry, error) {
	recs, err := r.store.GetAllByIndex(ctx, CollectionTimeSeries, "timestamp", KeyRange{})
	if err != nil {
		r.log.Error().Err(err).Msg("query time series")
		return nil, err
	}
	entries, err := decodeEntries(recs)
	if err != nil {
		r.log.Error().Err(err).Msg("decode time series")
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b TimeSeriesEntry) int {
		switch {
		case a.ElapsedTime < b.ElapsedTime:
			return -1
		case a.ElapsedTime > b.ElapsedTime:
			return 1
		}
		return 0
	})
	return entries, nil
}

// Clear deletes every entry.
func (r *TimeSeriesRepository) Clear(ctx context.Context) error {
	if err := r.store.Clear(ctx, CollectionTimeSeries); err != nil {
		r.log.Error().Err(err).Msg("clear time series")
		return err
	}
	r.log.Debug().Msg("cleared time series")
	return nil
}

func decodeEntries(recs []Record) ([]TimeSeriesEntry, error) {
	out := make([]TimeSeriesEntry, len(recs))
	for i, rec := range recs {
		ts, err := ParseISO(rec.Text("timestamp"))
		if err != nil {
			return nil, fmt.Errorf("time series entry %d: %w", rec.Int("id"), err)
		}
		out[i] = TimeSeriesEntry{
			ID:          rec.Int("id"),
			Timestamp:   ts,
			CounterName: rec.Text("counterName"),
			Value:       rec.Int("value"),
			Action:      Action(rec.Text("action")),
			ElapsedTime: rec.Int("elapsedTime"),
		}
	}
	return out, nil
}
