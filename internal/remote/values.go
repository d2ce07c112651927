package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// String returns the column as a string; absent, null and non-string values yield "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	return ""
}

// Float returns a numeric column as float64 and whether it was present and numeric.
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns a numeric column truncated to int.
func (r Row) Int(col string) (int, bool) {
	f, ok := r.Float(col)
	return int(f), ok
}

// Bool returns a boolean column.
func (r Row) Bool(col string) (bool, bool) {
	v, ok := r[col].(bool)
	return v, ok
}

// Strings returns a text array column. JSON decoding yields []any, pgx yields []string or []any.
func (r Row) Strings(col string) ([]string, bool) {
	switch v := r[col].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

// Time returns a timestamp column, parsing RFC 3339 strings as delivered by the change feed.
func (r Row) Time(col string) (time.Time, bool) {
	switch v := r[col].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Has reports whether the column is present with a non-null value.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}
