package value

import (
	"reflect"
	"sort"
)

type Map map[string]any

type List []any

type Kind int

const (
	KindNull Kind = iota
	KindMap
	KindList
	KindArray
	KindFloat
	KindInt
	KindString
	KindBool
	KindOther
)

// Numeric matches both integer and floating point scalars.
var Numeric = []Kind{KindFloat, KindInt}

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindMap:
		return "mapping"
	case KindList:
		return "list"
	case KindArray:
		return "array"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "other"
	}
}

func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case Map, map[string]any:
		return KindMap
	case List, []any:
		return KindList
	case float64, float32:
		return KindFloat
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case string:
		return KindString
	case bool:
		return KindBool
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Float64 {
			return KindArray
		}
		return KindList
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindMap
		}
	case reflect.Float64, reflect.Float32:
		return KindFloat
	case reflect.Int, reflect.Int64, reflect.Int32:
		return KindInt
	}
	return KindOther
}

// Matches reports whether v's kind is one of kinds.
func Matches(v any, kinds []Kind) bool {
	k := KindOf(v)
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// Float converts numeric scalars to float64.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// Keys returns the keys of m in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsMap views v as a string-keyed mapping. Typed maps such as
// map[string][]float64 are viewed through reflection.
func AsMap(v any) (Map, bool) {
	switch m := v.(type) {
	case Map:
		return m, true
	case map[string]any:
		return Map(m), true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(Map, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
