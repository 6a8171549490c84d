// Package value provides a small structured-value model used for
// configuration trees and requirement lookups.
//
// A value is one of:
//
//   - [Map]: string-keyed mapping (map[string]any is accepted too)
//   - [List]: ordered sequence
//   - a scalar: float64, int, string, bool, or a float64 slice (field data)
//
// Dotted paths such as "grid.dx_min" are resolved with [Resolve]. The two
// ways a lookup can fail are distinguishable with errors.Is:
//
//	_, err := value.Resolve(params, "grid.dx_min.value")
//	errors.Is(err, value.ErrNotMapping) // an intermediate was a scalar
//	errors.Is(err, value.ErrMissingKey) // a segment did not exist
package value
