package store

import (
	"encoding/json"
	"math"
	"strconv"
)

// Record is one stored entity: a JSON object with at least a numeric id.
type Record map[string]any

// Collection is the ordered list of records under one storage key.
// Order is insertion order.
type Collection []Record

// ID returns the record's numeric id.
func (r Record) ID() (int64, bool) {
	return AsInt64(r["id"])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Index returns the position of the record with id, or -1.
func (c Collection) Index(id int64) int {
	for i, rec := range c {
		if got, ok := rec.ID(); ok && got == id {
			return i
		}
	}
	return -1
}

// Find returns the record with id.
func (c Collection) Find(id int64) (Record, bool) {
	idx := c.Index(id)
	if idx < 0 {
		return nil, false
	}
	return c[idx], true
}

// Clone returns a copy of the slice. Records are shared.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// MaxID returns the largest id in the collection, or 0 when empty.
func (c Collection) MaxID() int64 {
	var max int64
	for _, rec := range c {
		if id, ok := rec.ID(); ok && id > max {
			max = id
		}
	}
	return max
}

// FromValue converts a typed value into a Record by way of its JSON form.
func FromValue(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return DecodeRecord(data)
}

// ToValue decodes a Record into the typed value pointed to by dst.
func ToValue(rec Record, dst any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// AsInt64 coerces the numeric shapes a decoded record can hold.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// AsFloat64 coerces a decoded numeric value to float64.
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// AsString returns v when it is a string.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}
