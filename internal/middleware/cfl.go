package middleware

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/ops"
)

const DefaultCFLMax = 0.8

// ErrSubstepOverflow is returned when the CFL ratio is not finite or calls
// for more substeps than the guard will run.
var ErrSubstepOverflow = errors.New("middleware: substep count overflow")

const maxSubsteps = math.MaxInt32

// WaveSpeed estimates the maximum signal speed of a state.
type WaveSpeed func(state gcm.State, params *gcm.Params, backend compute.Backend) float64

type cflGuard struct {
	inner  gcm.Step
	cflMax float64
	speed  WaveSpeed
}

// WithCFLGuard splits a step into equal substeps whenever the CFL ratio
// vmax*dt/dx exceeds cflMax. Field values are never touched by the guard.
func WithCFLGuard(step gcm.Step, cflMax float64, speed WaveSpeed) gcm.Step {
	return &cflGuard{inner: step, cflMax: cflMax, speed: speed}
}

func CFLGuard(cflMax float64, speed WaveSpeed) Middleware {
	return func(step gcm.Step) gcm.Step { return WithCFLGuard(step, cflMax, speed) }
}

func (g *cflGuard) Unwrap() gcm.Step { return g.inner }

func (g *cflGuard) Call(state gcm.State, forcing gcm.Forcing, params *gcm.Params, dt float64, backend compute.Backend) (gcm.State, gcm.Diag, error) {
	vmax := 0.0
	if g.speed != nil {
		vmax = g.speed(state, params, backend)
	}
	dx := 1.0
	if v, ok := ops.DxMin(params); ok {
		dx = v
	}

	cfl := 0.0
	if dx != 0 {
		cfl = vmax * dt / dx
	}

	if g.cflMax <= 0 || cfl <= g.cflMax || dx == 0 || vmax == 0 || dt == 0 {
		st, diag, err := gcm.Invoke(g.inner, state, forcing, params, dt, backend)
		if err != nil {
			return nil, nil, err
		}
		diag.AppendMeta("cfl_guard", map[string]any{
			"cfl":        cfl,
			"n_substeps": 1,
			"vmax":       vmax,
			"dx":         dx,
			"dt":         dt,
		})
		return st, diag, nil
	}

	ratio := math.Ceil(cfl / g.cflMax)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio > maxSubsteps {
		return nil, nil, fmt.Errorf("%w: cfl %g, cfl_max %g", ErrSubstepOverflow, cfl, g.cflMax)
	}
	n := max(1, int(ratio))
	dtSub := dt / float64(n)

	st := state
	var diag gcm.Diag
	for i := 0; i < n; i++ {
		var err error
		st, diag, err = gcm.Invoke(g.inner, st, forcing, params, dtSub, backend)
		if err != nil {
			return nil, nil, err
		}
	}
	diag.AppendMeta("cfl_guard", map[string]any{
		"cfl":        cfl,
		"n_substeps": n,
		"vmax":       vmax,
		"dx":         dx,
		"dt":         dt,
		"dt_sub":     dtSub,
	})
	return st, diag, nil
}
