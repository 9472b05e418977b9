package storage

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// ISOLayout is the ISO-8601 layout used for every stored timestamp text. It
// matches JavaScript's Date.toISOString, so stored values sort lexically in
// time order.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatISO formats t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses a timestamp written by FormatISO or any RFC 3339 value.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
	}
	return t, nil
}

// Record is a flat field/value map. Values read back from the store are
// int64 (KindInt), string (KindText), bool (KindBool) or []byte holding raw
// JSON (KindJSON).
type Record map[string]any

// Int returns an integer field, or 0 when absent.
func (r Record) Int(name string) int64 {
	v, _ := r[name].(int64)
	return v
}

// Text returns a text field, or "" when absent.
func (r Record) Text(name string) string {
	v, _ := r[name].(string)
	return v
}

// Bool returns a boolean field, or false when absent.
func (r Record) Bool(name string) bool {
	v, _ := r[name].(bool)
	return v
}

// JSON returns the raw JSON of a JSON field.
func (r Record) JSON(name string) []byte {
	v, _ := r[name].([]byte)
	return v
}

// KeyRange selects index values. The zero value matches everything.
type KeyRange struct {
	lower, upper any
	only         bool
}

// Only matches records whose indexed value equals v.
func Only(v any) KeyRange { return KeyRange{lower: v, upper: v, only: true} }

// Bound matches the closed interval [lower, upper].
func Bound(lower, upper any) KeyRange { return KeyRange{lower: lower, upper: upper} }

// LowerBound matches values >= lower.
func LowerBound(lower any) KeyRange { return KeyRange{lower: lower} }

// UpperBound matches values <= upper.
func UpperBound(upper any) KeyRange { return KeyRange{upper: upper} }

// encodeValue converts a Go value into the column representation for kind.
// A nil value encodes as the kind's zero.
func encodeValue(f Field, v any) (any, error) {
	switch f.Kind {
	case KindInt:
		if v == nil {
			return int64(0), nil
		}
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants an integer, got %T", ErrInvalidRecord, f.Name, v)
		}
		return n, nil
	case KindText:
		switch s := v.(type) {
		case nil:
			return "", nil
		case string:
			return s, nil
		case time.Time:
			return FormatISO(s), nil
		case fmt.Stringer:
			return s.String(), nil
		}
		return nil, fmt.Errorf("%w: field %q wants text, got %T", ErrInvalidRecord, f.Name, v)
	case KindBool:
		if v == nil {
			return false, nil
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants a bool, got %T", ErrInvalidRecord, f.Name, v)
		}
		return b, nil
	case KindJSON:
		if raw, ok := v.([]byte); ok {
			if !json.Valid(raw) {
				return nil, fmt.Errorf("%w: field %q holds malformed JSON", ErrInvalidRecord, f.Name)
			}
			return string(raw), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encode field %q: %w", ErrInvalidRecord, f.Name, err)
		}
		return string(data), nil
	}
	return nil, fmt.Errorf("%w: field %q has unsupported kind %s", ErrInvalidRecord, f.Name, f.Kind)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		return int64(n), n == math.Trunc(n)
	}
	return 0, false
}

// scanTarget returns a destination for rows.Scan matching the field kind.
func scanTarget(f Field) any {
	switch f.Kind {
	case KindInt:
		return new(sql.NullInt64)
	case KindBool:
		return new(sql.NullBool)
	default:
		return new(sql.NullString)
	}
}

// decodeValue reads a scanned destination back into a record value.
func decodeValue(f Field, dest any) any {
	switch d := dest.(type) {
	case *sql.NullInt64:
		return d.Int64
	case *sql.NullBool:
		return d.Bool
	case *sql.NullString:
		if f.Kind == KindJSON {
			if !d.Valid {
				return []byte("null")
			}
			return []byte(d.String)
		}
		return d.String
	}
	return nil
}
