package domain

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"
)

// RawStats is one engine-specific stats record: a free-form bag of named scalar fields.
type RawStats map[string]any

// Type returns the raw "type" field or "" when it is missing or not a string.
func (r RawStats) Type() string {
	s, _ := r["type"].(string)
	return s
}

// ID returns the raw "id" field or "" when it is missing or not a string.
func (r RawStats) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Has reports whether the field holds a meaningful value: present, non-nil,
// and not an empty string, false or zero.
func (r RawStats) Has(field string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return false
	}
	switch x := v.(type) {
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	case uint32:
		return x != 0
	case uint64:
		return x != 0
	default:
		return true
	}
}

// Key renders a field as a lookup key. Numbers and strings of the same value
// produce the same key so that correlation works across field types.
func (r RawStats) Key(field string) (string, bool) {
	if !r.Has(field) {
		return "", false
	}
	switch x := r[field].(type) {
	case string:
		return x, true
	case float64:
		return fmt.Sprintf("%.0f", x), true
	case float32:
		return fmt.Sprintf("%.0f", x), true
	default:
		return fmt.Sprint(x), true
	}
}

// Clone returns a shallow copy safe to mutate.
func (r RawStats) Clone() RawStats {
	out := make(RawStats, len(r))
	maps.Copy(out, r)
	return out
}

// Finite returns r without the fields JSON can not encode, such as NaN or
// infinite numbers, and the sorted names of the dropped fields. r itself is
// returned when every field encodes.
func (r RawStats) Finite() (RawStats, []string) {
	var dropped []string
	for k, v := range r {
		if !encodable(v) {
			dropped = append(dropped, k)
		}
	}
	if len(dropped) == 0 {
		return r, nil
	}
	slices.Sort(dropped)
	out := r.Clone()
	for _, k := range dropped {
		delete(out, k)
	}
	return out, dropped
}

// Cleared returns the sorted names of fields the source set to null. The
// id and type fields never count.
func (r RawStats) Cleared() []string {
	var out []string
	for k, v := range r {
		if v == nil && k != "id" && k != "type" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func encodable(v any) bool {
	switch x := v.(type) {
	case nil, string, bool, int, int32, int64, uint32, uint64:
		return true
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		f := float64(x)
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		_, err := json.Marshal(x)
		return err == nil
	}
}

// RawReport is an unordered collection of raw stats records produced by one
// stats query of a peer connection.
type RawReport interface {
	Values() iter.Seq[RawStats]
}

// RawStatsList is the slice form of a RawReport.
type RawStatsList []RawStats

// Values yields every record in the list.
func (l RawStatsList) Values() iter.Seq[RawStats] {
	return func(yield func(RawStats) bool) {
		for _, r := range l {
			if !yield(r) {
				return
			}
		}
	}
}
