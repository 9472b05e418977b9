package storage

import (
	"fmt"
	"sort"
)

// SchemaVersion is the newest schema version this build knows how to create.
const SchemaVersion = 4

// Collection names exposed to callers.
const (
	CollectionStopwatch  = "stopwatch"
	CollectionCounters   = "counters"
	CollectionSessions   = "sessions"
	CollectionTimeSeries = "timeSeries"
)

// Kind is the storage type of a field.
type Kind int

const (
	KindInt Kind = iota
	KindText
	KindBool
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindJSON:
		return "json"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field maps a record field name to its column.
type Field struct {
	Name   string
	Column string
	Kind   Kind
}

// Index is a secondary index over a single field.
type Index struct {
	Name  string // logical name, equal to the indexed field name
	Field string
}

// Collection describes one table at the current schema version.
type Collection struct {
	Name          string
	Table         string
	Key           Field
	AutoIncrement bool
	Fields        []Field
	Indexes       []Index
}

// IndexName returns the physical SQLite index name for a logical index.
func (c *Collection) IndexName(index string) string {
	f, ok := c.field(index)
	if !ok {
		return ""
	}
	return "idx_" + c.Table + "_" + f.Column
}

func (c *Collection) field(name string) (Field, bool) {
	if name == c.Key.Name {
		return c.Key, true
	}
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (c *Collection) index(name string) (Index, Field, error) {
	for _, idx := range c.Indexes {
		if idx.Name == name {
			f, ok := c.field(idx.Field)
			if !ok {
				break
			}
			return idx, f, nil
		}
	}
	return Index{}, Field{}, fmt.Errorf("%w: index %q on %s", ErrUnknownCollection, name, c.Name)
}

// columns returns the key column followed by every field column.
func (c *Collection) columns() []Field {
	out := make([]Field, 0, len(c.Fields)+1)
	out = append(out, c.Key)
	return append(out, c.Fields...)
}

var collections = map[string]*Collection{
	CollectionStopwatch: {
		Name:  CollectionStopwatch,
		Table: "stopwatch",
		Key:   Field{Name: "id", Column: "id", Kind: KindText},
		Fields: []Field{
			{Name: "elapsedTime", Column: "elapsed_time", Kind: KindInt},
			{Name: "running", Column: "running", Kind: KindBool},
			{Name: "startedAt", Column: "started_at", Kind: KindInt},
		},
	},
	CollectionCounters: {
		Name:          CollectionCounters,
		Table:         "counters",
		Key:           Field{Name: "id", Column: "id", Kind: KindInt},
		AutoIncrement: true,
		Fields: []Field{
			{Name: "name", Column: "name", Kind: KindText},
			{Name: "value", Column: "value", Kind: KindInt},
		},
		Indexes: []Index{
			{Name: "name", Field: "name"},
		},
	},
	CollectionSessions: {
		Name:  CollectionSessions,
		Table: "sessions",
		Key:   Field{Name: "id", Column: "id", Kind: KindText},
		Fields: []Field{
			{Name: "name", Column: "name", Kind: KindText},
			{Name: "date", Column: "date", Kind: KindText},
			{Name: "timestamp", Column: "timestamp", Kind: KindInt},
			{Name: "elapsedTime", Column: "elapsed_time", Kind: KindInt},
			{Name: "counters", Column: "counters", Kind: KindJSON},
		},
		Indexes: []Index{
			{Name: "timestamp", Field: "timestamp"},
			{Name: "name", Field: "name"},
			{Name: "date", Field: "date"},
		},
	},
	CollectionTimeSeries: {
		Name:          CollectionTimeSeries,
		Table:         "time_series",
		Key:           Field{Name: "id", Column: "id", Kind: KindInt},
		AutoIncrement: true,
		Fields: []Field{
			{Name: "timestamp", Column: "timestamp", Kind: KindText},
			{Name: "counterName", Column: "counter_name", Kind: KindText},
			{Name: "value", Column: "value", Kind: KindInt},
			{Name: "action", Column: "action", Kind: KindText},
			{Name: "elapsedTime", Column: "elapsed_time", Kind: KindInt},
		},
		Indexes: []Index{
			{Name: "counterName", Field: "counterName"},
			{Name: "timestamp", Field: "timestamp"},
			{Name: "elapsedTime", Field: "elapsedTime"},
		},
	},
}

// Collections returns the current-version layout, sorted by name.
func Collections() []Collection {
	out := make([]Collection, 0, len(collections))
	for _, c := range collections {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func lookup(name string) (*Collection, error) {
	c, ok := collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}
