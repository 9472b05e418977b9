package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// CounterRepository stores the ordered counter list.
type CounterRepository struct {
	store *Store
	log   zerolog.Logger
}

// NewCounterRepository creates a CounterRepository over store.
func NewCounterRepository(store *Store, log zerolog.Logger) *CounterRepository {
	return &CounterRepository{store: store, log: log.With().Str("collection", CollectionCounters).Logger()}
}

// LoadAll returns every counter in display order.
func (r *CounterRepository) LoadAll(ctx context.Context) ([]Counter, error) {
	recs, err := r.store.GetAll(ctx, CollectionCounters)
	if err != nil {
		r.log.Error().Err(err).Msg("load counters")
		return nil, err
	}
	out := make([]Counter, len(recs))
	for i, rec := range recs {
		out[i] = counterFromRecord(rec)
	}
	return out, nil
}

// ReplaceAll clears the collection and inserts counters in order within a
// single unit of work, so readers see either the old list or the new one.
// Every counter gets a fresh key; the stored list is returned.
func (r *CounterRepository) ReplaceAll(ctx context.Context, counters []Counter) ([]Counter, error) {
	for i := range counters {
		if err := validateCounter(&counters[i]); err != nil {
			return nil, fmt.Errorf("counter %d: %w", i, err)
		}
	}

	stored := make([]Counter, len(counters))
	err := r.store.Update(ctx, func(tx *Tx) error {
		if err := tx.Clear(ctx, CollectionCounters); err != nil {
			return err
		}
		for i, c := range counters {
			key, err := tx.Add(ctx, CollectionCounters, Record{
				"name":  c.Name,
				"value": c.Value,
			})
			if err != nil {
				return fmt.Errorf("insert counter %q: %w", c.Name, err)
			}
			stored[i] = Counter{ID: key.(int64), Name: c.Name, Value: c.Value}
		}
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Int("count", len(counters)).Msg("replace counters")
		return nil, err
	}
	r.log.Debug().Int("count", len(stored)).Msg("replaced counters")
	return stored, nil
}

// UpsertOne inserts c when it has no ID, otherwise replaces the counter with
// that ID. c.ID is set to the stored key.
func (r *CounterRepository) UpsertOne(ctx context.Context, c *Counter) error {
	if err := validateCounter(c); err != nil {
		return err
	}
	rec := Record{"name": c.Name, "value": c.Value}
	if c.ID != 0 {
		rec["id"] = c.ID
	}
	key, err := r.store.Put(ctx, CollectionCounters, rec)
	if err != nil {
		r.log.Error().Err(err).Str("name", c.Name).Msg("upsert counter")
		return err
	}
	c.ID = key.(int64)
	return nil
}

// DeleteOne removes the counter with id.
func (r *CounterRepository) DeleteOne(ctx context.Context, id int64) error {
	if err := r.store.Delete(ctx, CollectionCounters, id); err != nil {
		r.log.Error().Err(err).Int64("id", id).Msg("delete counter")
		return err
	}
	return nil
}

// FindByName returns counters with exactly this name, in display order.
func (r *CounterRepository) FindByName(ctx context.Context, name string) ([]Counter, error) {
	recs, err := r.store.GetAllByIndex(ctx, CollectionCounters, "name", Only(name))
	if err != nil {
		r.log.Error().Err(err).Str("name", name).Msg("find counters by name")
		return nil, err
	}
	out := make([]Counter, len(recs))
	for i, rec := range recs {
		out[i] = counterFromRecord(rec)
	}
	return out, nil
}

func counterFromRecord(rec Record) Counter {
	return Counter{
		ID:    rec.Int("id"),
		Name:  rec.Text("name"),
		Value: rec.Int("value"),
	}
}
