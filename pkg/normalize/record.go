package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one item of a normalized payload. Backends spell the same field
// several ways ("category_id", "cid", "id"), so accessors take aliases.
type Record map[string]interface{}

func toRecord(v interface{}) (Record, bool) {
	switch x := v.(type) {
	case Record:
		return x, x != nil
	case map[string]interface{}:
		if x == nil {
			return nil, false
		}
		return Record(x), true
	case *Object:
		if x == nil {
			return nil, false
		}
		m, _ := plain(x).(map[string]interface{})
		return Record(m), true
	}
	return nil, false
}

// Lookup returns the first alias bound to a non-empty value.
func (r Record) Lookup(aliases ...string) (interface{}, bool) {
	for _, alias := range aliases {
		v, ok := r[alias]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// Has reports whether any alias carries a value.
func (r Record) Has(aliases ...string) bool {
	_, ok := r.Lookup(aliases...)
	return ok
}

// String renders the first non-empty alias as text.
func (r Record) String(aliases ...string) string {
	v, ok := r.Lookup(aliases...)
	if !ok {
		return ""
	}
	return scalarText(v)
}

// Int parses the first non-empty alias as an integer. PHP backends send ids
// both as numbers and as numeric strings.
func (r Record) Int(aliases ...string) (int64, bool) {
	v, ok := r.Lookup(aliases...)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		f, err := x.Float64()
		return int64(f), err == nil
	case float64:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Float parses the first non-empty alias as a number (prices, totals).
func (r Record) Float(aliases ...string) (float64, bool) {
	v, ok := r.Lookup(aliases...)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// Bool interprets "1", 1, true and "true" as true.
func (r Record) Bool(aliases ...string) bool {
	v, ok := r.Lookup(aliases...)
	if !ok {
		return false
	}
	switch x := v.(type) {
	case string:
		b, err := strconv.ParseBool(x)
		return err == nil && b
	}
	return truthy(v)
}
