package storage

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	db := openTestDB(t)

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run(context.Background()))

	store := NewStore(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

// --- Add + Get roundtrip ---

func TestStore_AddGet_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	key, err := store.Add(ctx, CollectionSessions, Record{
		"id":          "s1",
		"name":        "first",
		"date":        "2024-05-01T10:00:00.000Z",
		"timestamp":   int64(1714557600000),
		"elapsedTime": 42,
		"counters":    []CounterSnapshot{{Name: "a", Value: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", key)

	rec, err := store.Get(ctx, CollectionSessions, "s1")
	require.NoError(t, err)
	assert.Equal(t, "first", rec.Text("name"))
	assert.Equal(t, int64(1714557600000), rec.Int("timestamp"))
	assert.Equal(t, int64(42), rec.Int("elapsedTime"))
	assert.JSONEq(t, `[{"name":"a","value":1}]`, string(rec.JSON("counters")))
}

func TestStore_AddAssignsIncreasingKeys(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	k1, err := store.Add(ctx, CollectionCounters, Record{"name": "a"})
	require.NoError(t, err)
	k2, err := store.Add(ctx, CollectionCounters, Record{"name": "b"})
	require.NoError(t, err)

	assert.Greater(t, k2.(int64), k1.(int64))
}

func TestStore_AddDuplicateKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, CollectionSessions, Record{"id": "dup", "name": "one"})
	require.NoError(t, err)

	_, err = store.Add(ctx, CollectionSessions, Record{"id": "dup", "name": "two"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	rec, err := store.Get(ctx, CollectionSessions, "dup")
	require.NoError(t, err)
	assert.Equal(t, "one", rec.Text("name"), "original record should be untouched")
}

func TestStore_AddWithoutRequiredKey(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Add(context.Background(), CollectionSessions, Record{"name": "nokey"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStore_PutReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, CollectionStopwatch, Record{"id": StopwatchKey, "elapsedTime": 10})
	require.NoError(t, err)
	_, err = store.Put(ctx, CollectionStopwatch, Record{"id": StopwatchKey, "elapsedTime": 20, "running": true})
	require.NoError(t, err)

	n, err := store.Count(ctx, CollectionStopwatch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, err := store.Get(ctx, CollectionStopwatch, StopwatchKey)
	require.NoError(t, err)
	assert.Equal(t, int64(20), rec.Int("elapsedTime"))
	assert.True(t, rec.Bool("running"))
}

func TestStore_PutWithoutKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Surrogate-key collections insert.
	key, err := store.Put(ctx, CollectionCounters, Record{"name": "fresh"})
	require.NoError(t, err)
	assert.NotZero(t, key)

	// Natural-key collections refuse.
	_, err = store.Put(ctx, CollectionStopwatch, Record{"elapsedTime": 1})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), CollectionSessions, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestStore_GetAllEmpty(t *testing.T) {
	store := openTestStore(t)

	recs, err := store.GetAll(context.Background(), CollectionCounters)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	store := openTestStore(t)

	assert.NoError(t, store.Delete(context.Background(), CollectionCounters, int64(999)))
}

func TestStore_Clear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := store.Add(ctx, CollectionCounters, Record{"name": name})
		require.NoError(t, err)
	}
	require.NoError(t, store.Clear(ctx, CollectionCounters))

	n, err := store.Count(ctx, CollectionCounters)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_GetAllByIndex_Ranges(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, ts := range []int64{100, 200, 300, 400} {
		_, err := store.Add(ctx, CollectionSessions, Record{
			"id":        string(rune('a' + i)),
			"timestamp": ts,
		})
		require.NoError(t, err)
	}

	ids := func(recs []Record) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.Text("id")
		}
		return out
	}

	tests := []struct {
		name string
		r    KeyRange
		want []string
	}{
		{"all", KeyRange{}, []string{"a", "b", "c", "d"}},
		{"only", Only(300), []string{"c"}},
		{"bound inclusive", Bound(200, 300), []string{"b", "c"}},
		{"lower", LowerBound(300), []string{"c", "d"}},
		{"upper", UpperBound(200), []string{"a", "b"}},
		{"no match", Only(250), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := store.GetAllByIndex(ctx, CollectionSessions, "timestamp", tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(recs))
		})
	}
}

func TestStore_UnknownNames(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetAll(ctx, "widgets")
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = store.GetAllByIndex(ctx, CollectionCounters, "value", KeyRange{})
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = store.Add(ctx, CollectionCounters, Record{"name": "a", "colour": "red"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = store.Add(ctx, CollectionCounters, Record{"name": "a", "value": "ten"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, CollectionCounters, Record{"name": "keep"})
	require.NoError(t, err)

	err = store.Update(ctx, func(tx *Tx) error {
		if err := tx.Clear(ctx, CollectionCounters); err != nil {
			return err
		}
		_, err := tx.Add(ctx, CollectionCounters, Record{"name": "bad", "nope": 1})
		return err
	})
	require.ErrorIs(t, err, ErrInvalidRecord)

	recs, err := store.GetAll(ctx, CollectionCounters)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "keep", recs[0].Text("name"))
}

func TestStore_ViewDiscardsWrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.View(ctx, func(tx *Tx) error {
		_, err := tx.Add(ctx, CollectionCounters, Record{"name": "ghost"})
		return err
	})
	require.NoError(t, err)

	n, err := store.Count(ctx, CollectionCounters)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_MalformedJSON(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Add(context.Background(), CollectionSessions, Record{
		"id":       "bad",
		"counters": []byte("{not json"),
	})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
