package domain

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ToFloat64 converts various numeric types to float64 for comparison
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ToInt64 converts Go integer types to int64. Floats are rejected even when
// they hold an integral value, and so are unsigned values above MaxInt64.
func ToInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// CompareValues orders two present values. Values of different kinds are
// ordered by kind: null < number < string < document < array < bool < date.
func CompareValues(a, b interface{}) int {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return compareInts(int(ka), int(kb))
	}

	switch ka {
	case KindNull:
		return 0
	case KindNumber:
		ia, aInt := ToInt64(a)
		ib, bInt := ToInt64(b)
		switch {
		case aInt && bInt:
			return compareInts64(ia, ib)
		case aInt:
			fb, _ := ToFloat64(b)
			return -compareFloatInt(fb, ia)
		case bInt:
			fa, _ := ToFloat64(a)
			return compareFloatInt(fa, ib)
		}
		fa, _ := ToFloat64(a)
		fb, _ := ToFloat64(b)
		return compareFloats(fa, fb)
	case KindString:
		return strings.Compare(a.(string), b.(string))
	case KindBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case KindDate:
		ta, tb := a.(time.Time), b.(time.Time)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	case KindArray:
		la, _ := AsList(a)
		lb, _ := AsList(b)
		for i := 0; i < len(la) && i < len(lb); i++ {
			if c := CompareValues(la[i], lb[i]); c != 0 {
				return c
			}
		}
		return compareInts(len(la), len(lb))
	case KindDocument:
		da, _ := AsDocument(a)
		db, _ := AsDocument(b)
		keysA, keysB := sortedKeys(da), sortedKeys(db)
		for i := 0; i < len(keysA) && i < len(keysB); i++ {
			if c := strings.Compare(keysA[i], keysB[i]); c != 0 {
				return c
			}
			if c := CompareValues(da[keysA[i]], db[keysB[i]]); c != 0 {
				return c
			}
		}
		return compareInts(len(keysA), len(keysB))
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

// ValuesEqual reports deep structural equality. Numbers compare by value, so
// int64(1) equals float64(1).
func ValuesEqual(a, b interface{}) bool {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return false
	}
	if ka == KindUnknown {
		return reflect.DeepEqual(a, b)
	}
	return CompareValues(a, b) == 0
}

// CanonicalKey renders a value into a string such that two values have the
// same key exactly when ValuesEqual reports them equal.
func CanonicalKey(v interface{}) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v interface{}) {
	switch KindOf(v) {
	case KindNull:
		b.WriteString("null")
	case KindNumber:
		b.WriteString("n:")
		if i, ok := ToInt64(v); ok {
			b.WriteString(strconv.FormatInt(i, 10))
			return
		}
		f, _ := ToFloat64(v)
		if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 {
			b.WriteString(strconv.FormatInt(int64(f), 10))
			return
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case KindString:
		b.WriteString("s:")
		b.WriteString(strconv.Quote(v.(string)))
	case KindBool:
		b.WriteString("b:")
		b.WriteString(strconv.FormatBool(v.(bool)))
	case KindDate:
		b.WriteString("d:")
		b.WriteString(v.(time.Time).UTC().Format(time.RFC3339Nano))
	case KindArray:
		list, _ := AsList(v)
		b.WriteByte('[')
		for i, elem := range list {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, elem)
		}
		b.WriteByte(']')
	case KindDocument:
		doc, _ := AsDocument(v)
		b.WriteByte('{')
		for i, k := range sortedKeys(doc) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, doc[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "x:%#v", v)
	}
}

func sortedKeys(doc Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareFloatInt orders f against i without rounding i to a float64.
func compareFloatInt(f float64, i int64) int {
	switch {
	case math.IsNaN(f):
		return -1
	case f < -(1 << 63):
		return -1
	case f >= 1<<63:
		return 1
	}
	t := math.Trunc(f)
	if c := compareInts64(int64(t), i); c != 0 {
		return c
	}
	return compareFloats(f, t)
}

func compareInts64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// JoinKeys returns the canonical keys a field value is matched on by
// equality joins and indexes. An absent value joins like null; a list joins
// on itself and on each of its elements.
func JoinKeys(v interface{}, found bool) []string {
	if !found {
		return []string{CanonicalKey(nil)}
	}
	list, ok := AsList(v)
	if !ok {
		return []string{CanonicalKey(v)}
	}
	keys := make([]string, 0, len(list)+1)
	keys = append(keys, CanonicalKey(v))
	for _, elem := range list {
		keys = append(keys, CanonicalKey(elem))
	}
	return keys
}
