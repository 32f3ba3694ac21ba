package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// Document represents a document in the database
type Document map[string]interface{}

// Kind classifies the dynamically-typed values a Document can hold.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindDocument
	KindArray
	KindBool
	KindDate
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDocument:
		return "document"
	case KindArray:
		return "array"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// KindOf reports the Kind of a present value. Absence is not a Kind; callers
// learn about it from the found flag returned by Lookup.
func KindOf(v interface{}) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBool
	case time.Time:
		return KindDate
	}
	if _, ok := ToFloat64(v); ok {
		return KindNumber
	}
	if _, ok := AsDocument(v); ok {
		return KindDocument
	}
	if _, ok := AsList(v); ok {
		return KindArray
	}
	return KindUnknown
}

// AsDocument returns v as a Document if it is a string-keyed map.
func AsDocument(v interface{}) (Document, bool) {
	switch t := v.(type) {
	case Document:
		return t, true
	case map[string]interface{}:
		return Document(t), true
	}
	return nil, false
}

// AsList returns v as a generic list if it is a slice of values.
func AsList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []Document:
		out := make([]interface{}, len(t))
		for i, d := range t {
			out[i] = d
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, d := range t {
			out[i] = Document(d)
		}
		return out, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// Normalize converts decoded values (JSON, msgpack, typed Go slices and maps)
// into the closed set of types the engine understands: int64, float64,
// string, bool, time.Time (in UTC), nil, []interface{} and Document.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, string, bool, float64, int64:
		return t
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC()
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return Normalize(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return float64(t)
		}
		return int64(t)
	case float32:
		return float64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case Document:
		return NormalizeDocument(t)
	case map[string]interface{}:
		return NormalizeDocument(Document(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, elem := range t {
			out[i] = Normalize(elem)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(Document, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}
	return v
}

// NormalizeDocument returns a normalized copy of doc.
func NormalizeDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = Normalize(v)
	}
	return out
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Lookup resolves a dotted field path. When a segment addresses a list the
// remaining path is applied to every element and the matches are flattened
// into a single list. The bool is false when nothing was found.
func Lookup(doc Document, path string) (interface{}, bool) {
	if path == "" || doc == nil {
		return nil, false
	}
	v, found, _ := lookupSegments(doc, strings.Split(path, "."))
	return v, found
}

func lookupSegments(v interface{}, segs []string) (interface{}, bool, bool) {
	if len(segs) == 0 {
		return v, true, false
	}

	if doc, ok := AsDocument(v); ok {
		child, exists := doc[segs[0]]
		if !exists {
			return nil, false, false
		}
		return lookupSegments(child, segs[1:])
	}

	list, ok := AsList(v)
	if !ok {
		return nil, false, false
	}

	var out []interface{}
	for _, elem := range list {
		if _, isDoc := AsDocument(elem); !isDoc {
			continue
		}
		val, found, traversed := lookupSegments(elem, segs)
		if !found {
			continue
		}
		if nested, isList := val.([]interface{}); isList && traversed {
			out = append(out, nested...)
		} else {
			out = append(out, val)
		}
	}
	if len(out) == 0 {
		return nil, false, true
	}
	return out, true, true
}

// WithField returns a copy of doc with the dotted path set to value. Nested
// documents along the path are copied, never modified in place.
func WithField(doc Document, path string, value interface{}) Document {
	segs := strings.Split(path, ".")
	return withSegments(doc, segs, value)
}

func withSegments(doc Document, segs []string, value interface{}) Document {
	out := doc.Clone()
	if len(segs) == 1 {
		out[segs[0]] = value
		return out
	}
	child, _ := AsDocument(out[segs[0]])
	if child == nil {
		child = Document{}
	}
	out[segs[0]] = withSegments(child, segs[1:], value)
	return out
}

// WithoutField returns a copy of doc with the dotted path removed.
func WithoutField(doc Document, path string) Document {
	segs := strings.Split(path, ".")
	out := doc.Clone()
	if len(segs) == 1 {
		delete(out, segs[0])
		return out
	}
	child, ok := AsDocument(out[segs[0]])
	if !ok {
		return out
	}
	out[segs[0]] = WithoutField(child, strings.Join(segs[1:], "."))
	return out
}

// IDString renders a document identifier as a string.
func IDString(id interface{}) string {
	if s, ok := id.(string); ok {
		return s
	}
	return fmt.Sprint(id)
}

// Collection represents a named, ordered collection of documents
type Collection struct {
	Name      string     `json:"name"`
	Documents []Document `json:"documents"`
	positions map[string]int
}

// NewCollection creates a new collection
func NewCollection(name string) *Collection {
	return &Collection{
		Name:      name,
		Documents: make([]Document, 0),
		positions: make(map[string]int),
	}
}

// Append adds a document at the end of the collection.
func (c *Collection) Append(doc Document) {
	if c.positions == nil {
		c.positions = make(map[string]int)
	}
	if id, ok := doc["_id"]; ok {
		c.positions[IDString(id)] = len(c.Documents)
	}
	c.Documents = append(c.Documents, doc)
}

// Get returns the document with the given _id.
func (c *Collection) Get(id string) (Document, bool) {
	pos, ok := c.positions[id]
	if !ok {
		return nil, false
	}
	return c.Documents[pos], true
}

// Len returns the number of documents in the collection.
func (c *Collection) Len() int {
	return len(c.Documents)
}

// Snapshot returns a copy of the document slice in insertion order.
func (c *Collection) Snapshot() []Document {
	out := make([]Document, len(c.Documents))
	copy(out, c.Documents)
	return out
}
