package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultSessionNameLayout renders the timestamp in default session names.
const DefaultSessionNameLayout = "1/2/2006, 3:04:05 PM"

// DefaultSessionName is the name given to sessions saved without one.
func DefaultSessionName(ts time.Time) string {
	return "Session " + ts.Local().Format(DefaultSessionNameLayout)
}

type filterKind int

const (
	filterNone filterKind = iota
	filterName
	filterDateRange
)

// SessionFilter selects which sessions LoadAll returns.
type SessionFilter struct {
	kind       filterKind
	name       string
	start, end time.Time
}

// AllSessions matches every session.
func AllSessions() SessionFilter { return SessionFilter{} }

// ByName matches sessions whose name equals name exactly.
func ByName(name string) SessionFilter { return SessionFilter{kind: filterName, name: name} }

// ByDateRange matches sessions dated within [start, end].
func ByDateRange(start, end time.Time) SessionFilter {
	return SessionFilter{kind: filterDateRange, start: start, end: end}
}

// SessionRepository stores saved sessions.
type SessionRepository struct {
	store *Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewSessionRepository creates a SessionRepository over store.
func NewSessionRepository(store *Store, log zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		store: store,
		log:   log.With().Str("collection", CollectionSessions).Logger(),
		now:   time.Now,
	}
}

// Save fills in missing timestamp, date, name and ID, then inserts a copy
// of s. The counters are deep-copied so later changes to the caller's slice
// never reach the stored session. A colliding ID returns ErrDuplicateKey and
// leaves the existing session untouched.
func (r *SessionRepository) Save(ctx context.Context, s *Session) error {
	if s.Timestamp == 0 {
		s.Timestamp = r.now().UnixMilli()
	}
	ts := time.UnixMilli(s.Timestamp)
	if s.Date.IsZero() {
		s.Date = ts.UTC()
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = DefaultSessionName(ts)
	}
	if s.ID == "" {
		s.ID = FormatISO(ts)
	}
	s.Counters = snapshot(s.Counters)

	_, err := r.store.Add(ctx, CollectionSessions, sessionRecord(s))
	if err != nil {
		r.log.Error().Err(err).Str("id", s.ID).Msg("save session")
		return err
	}
	r.log.Debug().Str("id", s.ID).Str("name", s.Name).Int("counters", len(s.Counters)).Msg("saved session")
	return nil
}

// LoadAll returns the sessions matching f, newest first.
func (r *SessionRepository) LoadAll(ctx context.Context, f SessionFilter) ([]Session, error) {
	var (
		recs []Record
		err  error
	)
	switch f.kind {
	case filterName:
		recs, err = r.store.GetAllByIndex(ctx, CollectionSessions, "name", Only(f.name))
	case filterDateRange:
		recs, err = r.store.GetAllByIndex(ctx, CollectionSessions, "date", Bound(FormatISO(f.start), FormatISO(f.end)))
	default:
		recs, err = r.store.GetAllByIndex(ctx, CollectionSessions, "timestamp", KeyRange{})
	}
	if err != nil {
		r.log.Error().Err(err).Msg("load sessions")
		return nil, err
	}
	return r.decodeSorted(recs)
}

// SearchByName returns sessions whose name contains term, ignoring case,
// newest first.
func (r *SessionRepository) SearchByName(ctx context.Context, term string) ([]Session, error) {
	recs, err := r.store.GetAllByIndex(ctx, CollectionSessions, "name", KeyRange{})
	if err != nil {
		r.log.Error().Err(err).Str("term", term).Msg("search sessions")
		return nil, err
	}
	needle := strings.ToLower(term)
	matched := recs[:0]
	for _, rec := range recs {
		if strings.Contains(strings.ToLower(rec.Text("name")), needle) {
			matched = append(matched, rec)
		}
	}
	return r.decodeSorted(matched)
}

// Get returns one session. A missing id returns ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	rec, err := r.store.Get(ctx, CollectionSessions, id)
	if err != nil {
		if !IsNotFound(err) {
			r.log.Error().Err(err).Str("id", id).Msg("get session")
		}
		return nil, err
	}
	s, err := sessionFromRecord(rec)
	if err != nil {
		r.log.Error().Err(err).Str("id", id).Msg("decode session")
		return nil, err
	}
	return s, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollectionSessions, id); err != nil {
		r.log.Error().Err(err).Str("id", id).Msg("delete session")
		return err
	}
	return nil
}

// Rename changes a session's name and nothing else. A missing id returns
// ErrNotFound.
func (r *SessionRepository) Rename(ctx context.Context, id, newName string) error {
	err := r.store.Update(ctx, func(tx *Tx) error {
		rec, err := tx.Get(ctx, CollectionSessions, id)
		if err != nil {
			return err
		}
		rec["name"] = newName
		_, err = tx.Put(ctx, CollectionSessions, rec)
		return err
	})
	if err != nil {
		if !IsNotFound(err) {
			r.log.Error().Err(err).Str("id", id).Msg("rename session")
		}
		return err
	}
	r.log.Debug().Str("id", id).Str("name", newName).Msg("renamed session")
	return nil
}

func (r *SessionRepository) decodeSorted(recs []Record) ([]Session, error) {
	out := make([]Session, 0, len(recs))
	for _, rec := range recs {
		s, err := sessionFromRecord(rec)
		if err != nil {
			r.log.Error().Err(err).Str("id", rec.Text("id")).Msg("decode session")
			return nil, err
		}
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func sessionRecord(s *Session) Record {
	return Record{
		"id":          s.ID,
		"name":        s.Name,
		"date":        FormatISO(s.Date),
		"timestamp":   s.Timestamp,
		"elapsedTime": s.ElapsedTime,
		"counters":    s.Counters,
	}
}

func sessionFromRecord(rec Record) (*Session, error) {
	s := &Session{
		ID:          rec.Text("id"),
		Name:        rec.Text("name"),
		Timestamp:   rec.Int("timestamp"),
		ElapsedTime: rec.Int("elapsedTime"),
		Counters:    []CounterSnapshot{},
	}
	if d := rec.Text("date"); d != "" {
		t, err := ParseISO(d)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		s.Date = t
	}
	if raw := rec.JSON("counters"); len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &s.Counters); err != nil {
			return nil, fmt.Errorf("session %s counters: %w", s.ID, err)
		}
	}
	return s, nil
}
