package value

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingKey = errors.New("value: missing key")
	ErrNotMapping = errors.New("value: non-mapping encountered")
)

// PathError describes a failed dotted-path lookup.
type PathError struct {
	Path    string
	Segment string
	Found   Kind
	Err     error
}

func (e *PathError) Error() string {
	if errors.Is(e.Err, ErrNotMapping) {
		return fmt.Sprintf("path '%s' invalid: segment '%s' encountered non-mapping type %s", e.Path, e.Segment, e.Found)
	}
	return fmt.Sprintf("missing key '%s' while resolving '%s'", e.Segment, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Resolve walks a dotted path through nested mappings. Every segment but
// the last must address a mapping.
func Resolve(root any, path string) (any, error) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		m, ok := AsMap(cur)
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Found: KindOf(cur), Err: ErrNotMapping}
		}
		next, ok := m[seg]
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Err: ErrMissingKey}
		}
		cur = next
	}
	return cur, nil
}

// Take returns the values stored under keys, in order.
func Take(m Map, keys ...string) ([]any, error) {
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			return nil, &PathError{Path: k, Segment: k, Err: ErrMissingKey}
		}
		out = append(out, v)
	}
	return out, nil
}

// Require behaves like Take but reports the expected and available keys
// when one is missing.
func Require(m Map, keys ...string) ([]any, error) {
	out, err := Take(m, keys...)
	if err != nil {
		var pe *PathError
		errors.As(err, &pe)
		return nil, fmt.Errorf("missing required key '%s'. expected one of: %v. available keys: %v: %w",
			pe.Segment, keys, m.Keys(), ErrMissingKey)
	}
	return out, nil
}

// TakeNested resolves several dotted paths against the same root.
func TakeNested(root any, paths ...string) ([]any, error) {
	out := make([]any, 0, len(paths))
	for _, p := range paths {
		v, err := Resolve(root, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SplitKeys partitions m into the entries named by keys and the rest.
// Keys absent from m are ignored.
func SplitKeys(m Map, keys ...string) (picked, rest Map) {
	picked = make(Map)
	rest = make(Map)
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	for k, v := range m {
		if want[k] {
			picked[k] = v
		} else {
			rest[k] = v
		}
	}
	return picked, rest
}
