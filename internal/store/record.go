package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotAvailable is rendered for any field a record does not carry.
const NotAvailable = "N/A"

// Record is a restaurant configuration document as stored in the Locations
// collection. Nested documents are Records, arrays are []any.
type Record map[string]any

// Get walks path through nested documents.
func (r Record) Get(path ...string) (any, bool) {
	var cur any = r
	for _, key := range path {
		doc, ok := cur.(Record)
		if !ok {
			return nil, false
		}
		cur, ok = doc[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Text renders the value at path for display, or NotAvailable.
func (r Record) Text(path ...string) string {
	v, ok := r.Get(path...)
	if !ok {
		return NotAvailable
	}
	s := formatValue(v)
	if s == "" {
		return NotAvailable
	}
	return s
}

// Flag reports the boolean at path. Missing or non-boolean values are false.
func (r Record) Flag(path ...string) bool {
	v, ok := r.Get(path...)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Int returns the whole number at path. Fractional or non-numeric values
// are reported as missing.
func (r Record) Int(path ...string) (int, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

// Doc returns the nested document at path, or nil.
func (r Record) Doc(path ...string) Record {
	v, ok := r.Get(path...)
	if !ok {
		return nil
	}
	doc, _ := v.(Record)
	return doc
}

// Docs returns the documents in the array at path. Non-document elements are
// skipped.
func (r Record) Docs(path ...string) []Record {
	v, ok := r.Get(path...)
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(arr))
	for _, el := range arr {
		if doc, ok := el.(Record); ok {
			out = append(out, doc)
		}
	}
	return out
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case Record, []any:
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprint(val)
	}
}

// normalize converts decoded BSON into Record / []any / plain scalars so
// callers never see driver types.
func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(Record, len(val))
		for k, el := range val {
			out[k] = normalize(el)
		}
		return out
	case map[string]any:
		out := make(Record, len(val))
		for k, el := range val {
			out[k] = normalize(el)
		}
		return out
	case bson.D:
		out := make(Record, len(val))
		for _, el := range val {
			out[el.Key] = normalize(el.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = normalize(el)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = normalize(el)
		}
		return out
	case primitive.DateTime:
		return val.Time()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	default:
		return val
	}
}
