package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	doc := Document{
		"genre": "Action",
		"empty": nil,
		"ratings": []interface{}{
			Document{"user": "A", "score": int64(4)},
			map[string]interface{}{"user": "B", "score": int64(5)},
			Document{"user": "C"},
		},
		"product": Document{"name": "Widget", "tags": []interface{}{"a", "b"}},
	}

	tests := []struct {
		name     string
		path     string
		expected interface{}
		found    bool
	}{
		{"top level", "genre", "Action", true},
		{"present null", "empty", nil, true},
		{"absent", "missing", nil, false},
		{"nested document", "product.name", "Widget", true},
		{"array traversal", "ratings.score", []interface{}{int64(4), int64(5)}, true},
		{"array traversal no match", "ratings.comment", nil, false},
		{"through scalar", "genre.x", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, found := Lookup(doc, tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestLookup_NestedArraysFlatten(t *testing.T) {
	doc := Document{
		"orders": []interface{}{
			Document{"items": []interface{}{Document{"sku": "a"}, Document{"sku": "b"}}},
			Document{"items": []interface{}{Document{"sku": "c"}}},
		},
	}
	v, found := Lookup(doc, "orders.items.sku")
	require.True(t, found)
	assert.Equal(t, []interface{}{"a", "b", "c"}, v)
}

func TestNormalize(t *testing.T) {
	when := time.Date(2022, 1, 3, 4, 58, 23, 0, time.UTC)
	in := map[string]interface{}{
		"i":      7,
		"i8":     int8(3),
		"u":      uint16(9),
		"f32":    float32(1.5),
		"when":   &when,
		"actors": []string{"Tom", "Emily"},
		"nested": map[string]interface{}{"n": int32(2)},
		"list":   []map[string]interface{}{{"score": 4}},
	}

	out := Normalize(in)
	doc, ok := out.(Document)
	require.True(t, ok)
	assert.Equal(t, int64(7), doc["i"])
	assert.Equal(t, int64(3), doc["i8"])
	assert.Equal(t, int64(9), doc["u"])
	assert.Equal(t, float64(1.5), doc["f32"])
	assert.Equal(t, when, doc["when"])
	assert.Equal(t, []interface{}{"Tom", "Emily"}, doc["actors"])
	assert.Equal(t, Document{"n": int64(2)}, doc["nested"])
	assert.Equal(t, []interface{}{Document{"score": int64(4)}}, doc["list"])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNull, KindOf(nil))
	assert.Equal(t, KindNumber, KindOf(3))
	assert.Equal(t, KindNumber, KindOf(2.5))
	assert.Equal(t, KindString, KindOf("x"))
	assert.Equal(t, KindBool, KindOf(true))
	assert.Equal(t, KindDate, KindOf(time.Now()))
	assert.Equal(t, KindArray, KindOf([]interface{}{1}))
	assert.Equal(t, KindDocument, KindOf(Document{}))
	assert.Equal(t, KindDocument, KindOf(map[string]interface{}{}))
	assert.Equal(t, KindUnknown, KindOf(struct{}{}))
}

func TestCompareValues(t *testing.T) {
	d1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(time.Hour)

	assert.Equal(t, 0, CompareValues(1, 1.0))
	assert.Equal(t, -1, CompareValues(int64(2), 10.5))
	assert.Equal(t, 1, CompareValues("b", "a"))
	assert.Equal(t, -1, CompareValues(d1, d2))
	assert.Equal(t, -1, CompareValues(nil, 0))
	assert.Equal(t, -1, CompareValues(100, "1"))
	assert.Equal(t, 1, CompareValues(d1, true))
	assert.Equal(t, -1, CompareValues(false, true))
	assert.Equal(t, -1, CompareValues([]interface{}{1, 2}, []interface{}{1, 3}))
	assert.Equal(t, 1, CompareValues([]interface{}{1, 2, 0}, []interface{}{1, 2}))
	assert.Equal(t, 0, CompareValues(Document{"a": 1, "b": "x"}, Document{"b": "x", "a": 1.0}))
}

func TestCompareValues_IntegersBeyondFloatPrecision(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{"int above float", int64(1<<53 + 1), float64(1 << 53), 1},
		{"float below int", float64(1 << 53), int64(1<<53 + 1), -1},
		{"fraction above int", 2.5, int64(2), 1},
		{"negative int below fraction", int64(-3), -2.5, -1},
		{"negative fraction below int", -2.5, int64(-2), -1},
		{"huge unsigned above max int", uint64(math.MaxUint64), int64(math.MaxInt64), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareValues(tt.a, tt.b))
		})
	}
}

func TestNormalize_LargeUnsigned(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64), Normalize(uint64(math.MaxInt64)))
	assert.Equal(t, float64(math.MaxUint64), Normalize(uint64(math.MaxUint64)))

	_, ok := ToInt64(uint64(math.MaxUint64))
	assert.False(t, ok)
	f, ok := ToFloat64(uint64(math.MaxUint64))
	require.True(t, ok)
	assert.Greater(t, f, float64(math.MaxInt64))
}

func TestValuesEqualAndCanonicalKey(t *testing.T) {
	pairs := []struct {
		a, b  interface{}
		equal bool
	}{
		{1, 1.0, true},
		{int64(5), uint8(5), true},
		{1.5, 1.5, true},
		{"P1", "P1", true},
		{"P1", "p1", false},
		{nil, nil, true},
		{nil, "null", false},
		{1, "1", false},
		{Document{"u": "U1", "e": "click"}, map[string]interface{}{"e": "click", "u": "U1"}, true},
		{Document{"u": "U1"}, Document{"u": "U2"}, false},
		{[]interface{}{1, "a"}, []interface{}{1.0, "a"}, true},
		{[]interface{}{1, "a"}, []interface{}{"a", 1}, false},
		{int64(1<<53 + 1), float64(1 << 53), false},
		{int64(1 << 53), float64(1 << 53), true},
		{int64(math.MinInt64), float64(math.MinInt64), true},
		{uint64(math.MaxUint64), float64(math.MaxUint64), true},
		{uint64(math.MaxUint64), int64(-1), false},
	}

	for _, p := range pairs {
		assert.Equal(t, p.equal, ValuesEqual(p.a, p.b), "ValuesEqual(%v, %v)", p.a, p.b)
		assert.Equal(t, p.equal, CanonicalKey(p.a) == CanonicalKey(p.b), "CanonicalKey(%v) vs (%v)", p.a, p.b)
	}
}

func TestWithFieldDoesNotMutate(t *testing.T) {
	orig := Document{"a": Document{"b": 1}, "c": 2}
	updated := WithField(orig, "a.b", 5)

	assert.Equal(t, Document{"a": Document{"b": 1}, "c": 2}, orig)
	assert.Equal(t, Document{"a": Document{"b": 5}, "c": 2}, updated)

	removed := WithoutField(updated, "a.b")
	assert.Equal(t, Document{"a": Document{}, "c": 2}, removed)
	assert.Equal(t, Document{"a": Document{"b": 5}, "c": 2}, updated)
}

func TestCollection_AppendAndGet(t *testing.T) {
	coll := NewCollection("sales")
	coll.Append(Document{"_id": "a", "n": 1})
	coll.Append(Document{"_id": "b", "n": 2})

	assert.Equal(t, 2, coll.Len())
	doc, ok := coll.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, doc["n"])

	_, ok = coll.Get("zzz")
	assert.False(t, ok)

	snap := coll.Snapshot()
	snap[0] = Document{"_id": "x"}
	assert.Equal(t, "a", coll.Documents[0]["_id"])
}
