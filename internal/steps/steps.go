package steps

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/middleware"
	"github.com/san-kum/gcmi/internal/requirements"
	"github.com/san-kum/gcmi/internal/value"
)

var (
	ErrMissingField  = errors.New("steps: missing field")
	ErrShapeMismatch = errors.New("steps: field length mismatch")
	ErrBadParam      = errors.New("steps: invalid parameter")
)

// Identity returns the state unchanged.
var Identity = gcm.Identity

// Advection transports every field except Velocity with first-order upwind
// differences on a periodic 1-D grid.
type Advection struct {
	Velocity string
}

func NewAdvection(velocity string) *Advection {
	if velocity == "" {
		velocity = "u"
	}
	return &Advection{Velocity: velocity}
}

func (a *Advection) Requirements() []requirements.Requirement {
	return []requirements.Requirement{
		{Where: requirements.InState, Path: a.Velocity, Kinds: []value.Kind{value.KindArray}},
		{Where: requirements.InParams, Path: "grid.dx_min", Kinds: value.Numeric, Predicate: requirements.Positive},
	}
}

func (a *Advection) Call(state gcm.State, _ gcm.Forcing, params *gcm.Params, dt float64, _ compute.Backend) (gcm.State, gcm.Diag, error) {
	u, ok := state[a.Velocity]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingField, a.Velocity)
	}
	dx, ok := params.DxMin()
	if !ok || dx <= 0 {
		return nil, nil, fmt.Errorf("%w: grid.dx_min must be positive", ErrBadParam)
	}

	out := make(gcm.State, len(state))
	courant := 0.0
	for name, q := range state {
		if name == a.Velocity {
			out[name] = q
			continue
		}
		if len(q) != len(u) {
			return nil, nil, fmt.Errorf("%w: %s has %d cells, %s has %d", ErrShapeMismatch, name, len(q), a.Velocity, len(u))
		}
		n := len(q)
		next := make(gcm.Array, n)
		for i := range q {
			c := u[i] * dt / dx
			courant = math.Max(courant, math.Abs(c))
			if u[i] >= 0 {
				next[i] = q[i] - c*(q[i]-q[(i-1+n)%n])
			} else {
				next[i] = q[i] - c*(q[(i+1)%n]-q[i])
			}
		}
		out[name] = next
	}
	return out, gcm.Diag{"courant": courant}, nil
}

// Relaxation nudges each state field toward the forcing field of the same
// name with timescale params.extra.relaxation.tau.
type Relaxation struct{}

func NewRelaxation() *Relaxation { return &Relaxation{} }

const tauPath = "extra.relaxation.tau"

func (r *Relaxation) Requirements() []requirements.Requirement {
	return []requirements.Requirement{
		{Where: requirements.InParams, Path: tauPath, Kinds: value.Numeric, Predicate: requirements.Positive},
	}
}

func (r *Relaxation) Call(state gcm.State, forcing gcm.Forcing, params *gcm.Params, dt float64, _ compute.Backend) (gcm.State, gcm.Diag, error) {
	raw, err := value.Resolve(params.Tree(), tauPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadParam, err)
	}
	tau, ok := value.Float(raw)
	if !ok || tau <= 0 {
		return nil, nil, fmt.Errorf("%w: relaxation.tau must be a positive number", ErrBadParam)
	}

	out := make(gcm.State, len(state))
	relaxed := 0
	for name, x := range state {
		target, ok := forcing[name]
		if !ok {
			out[name] = x
			continue
		}
		if len(target) != len(x) {
			return nil, nil, fmt.Errorf("%w: forcing %s has %d cells, state has %d", ErrShapeMismatch, name, len(target), len(x))
		}
		next := make(gcm.Array, len(x))
		for i := range x {
			next[i] = x[i] + dt*(target[i]-x[i])/tau
		}
		out[name] = next
		relaxed++
	}
	return out, gcm.Diag{"relaxed_fields": relaxed}, nil
}

// MaxAbs estimates wave speed as the largest magnitude of field.
func MaxAbs(field string) middleware.WaveSpeed {
	return func(state gcm.State, _ *gcm.Params, backend compute.Backend) float64 {
		if backend == nil {
			backend = compute.Default()
		}
		return backend.MaxAbs(state[field])
	}
}

func Constant(c float64) middleware.WaveSpeed {
	return func(gcm.State, *gcm.Params, compute.Backend) float64 { return c }
}
