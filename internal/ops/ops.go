// Package ops provides backend-neutral operators over a single field.
//
// Operators never panic: an unusable input is reported as an error so the
// calling middleware can leave the field untouched and record the skip.
package ops

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
)

var (
	ErrNoBackend  = errors.New("ops: no backend")
	ErrEmptyField = errors.New("ops: empty field")
	ErrNonFinite  = errors.New("ops: non-finite value")
)

func Identity(field gcm.Array) gcm.Array {
	return field
}

// Laplacian returns the periodic second difference of field.
func Laplacian(field gcm.Array, backend compute.Backend, dx float64) (gcm.Array, error) {
	if err := check(field, backend); err != nil {
		return nil, err
	}
	if dx == 0 || math.IsNaN(dx) || math.IsInf(dx, 0) {
		return nil, fmt.Errorf("%w: dx=%v", ErrNonFinite, dx)
	}
	return gcm.Array(backend.Laplacian(field, dx)), nil
}

func ClampMin(field gcm.Array, backend compute.Backend, lower float64) (gcm.Array, error) {
	if err := check(field, backend); err != nil {
		return nil, err
	}
	return gcm.Array(backend.Maximum(field, lower)), nil
}

// Total sums a field. An empty field totals zero.
func Total(field gcm.Array, backend compute.Backend) (float64, error) {
	if backend == nil {
		return 0, ErrNoBackend
	}
	s := backend.Sum(field)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, fmt.Errorf("%w: total=%v", ErrNonFinite, s)
	}
	return s, nil
}

// DxMin returns params.grid.dx_min when a grid section is present.
func DxMin(params *gcm.Params) (float64, bool) {
	return params.DxMin()
}

func check(field gcm.Array, backend compute.Backend) error {
	if backend == nil {
		return ErrNoBackend
	}
	if len(field) == 0 {
		return ErrEmptyField
	}
	for i, v := range field {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	return nil
}
