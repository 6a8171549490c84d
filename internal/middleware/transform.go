package middleware

import (
	"fmt"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/ops"
)

// fieldOp transforms one state entry. A returned error leaves the entry
// unchanged.
type fieldOp func(field gcm.Array, params *gcm.Params, backend compute.Backend) (gcm.Array, error)

type transform struct {
	inner gcm.Step
	name  string
	meta  map[string]any
	vars  []string
	op    fieldOp
}

func (t *transform) Unwrap() gcm.Step { return t.inner }

func (t *transform) Call(state gcm.State, forcing gcm.Forcing, params *gcm.Params, dt float64, backend compute.Backend) (gcm.State, gcm.Diag, error) {
	st, diag, err := gcm.Invoke(t.inner, state, forcing, params, dt, backend)
	if err != nil {
		return nil, nil, err
	}

	fields := make(map[string]any, len(t.meta)+1)
	for k, v := range t.meta {
		fields[k] = v
	}

	if t.op != nil {
		var skipped []string
		out := st
		copied := false
		for _, name := range t.vars {
			field, ok := st[name]
			if !ok {
				continue
			}
			next, err := t.op(field, params, backend)
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			if !copied {
				out = make(gcm.State, len(st))
				for k, v := range st {
					out[k] = v
				}
				copied = true
			}
			out[name] = next
		}
		st = out
		if len(skipped) > 0 {
			fields["skipped"] = skipped
		}
	}

	diag.AppendMeta(t.name, fields)
	return st, diag, nil
}

func vars(vs []string, fallback ...string) []string {
	if len(vs) == 0 {
		return fallback
	}
	return append([]string(nil), vs...)
}

// WithHyperdiff applies v <- v - coeff*Laplacian(v) to each named field
// present in the state. A zero coeff records metadata only.
func WithHyperdiff(step gcm.Step, coeff float64, order int, names ...string) gcm.Step {
	names = vars(names, "T", "u", "v")
	t := &transform{
		inner: step,
		name:  "hyperdiff",
		meta:  map[string]any{"coeff": coeff, "order": order, "vars": names},
		vars:  names,
	}
	if coeff != 0 {
		t.op = func(field gcm.Array, params *gcm.Params, backend compute.Backend) (gcm.Array, error) {
			dx := 1.0
			if v, ok := ops.DxMin(params); ok {
				dx = v
			}
			lap, err := ops.Laplacian(field, backend, dx)
			if err != nil {
				return nil, err
			}
			out := make(gcm.Array, len(field))
			for i := range field {
				out[i] = field[i] - coeff*lap[i]
			}
			return out, nil
		}
	}
	return t
}

func Hyperdiff(coeff float64, order int, names ...string) Middleware {
	return func(step gcm.Step) gcm.Step { return WithHyperdiff(step, coeff, order, names...) }
}

// WithFluxLimiter records the limiter configuration.
func WithFluxLimiter(step gcm.Step, scheme string, names ...string) gcm.Step {
	if scheme == "" {
		scheme = "mc"
	}
	return &transform{
		inner: step,
		name:  "flux_limiter",
		meta:  map[string]any{"scheme": scheme, "vars": vars(names, "q", "T")},
	}
}

func FluxLimiter(scheme string, names ...string) Middleware {
	return func(step gcm.Step) gcm.Step { return WithFluxLimiter(step, scheme, names...) }
}

// WithPositivity clamps each named field to at least lower. conserve is
// recorded but not enforced.
func WithPositivity(step gcm.Step, lower float64, conserve string, names ...string) gcm.Step {
	names = vars(names, "q")
	var c any
	if conserve != "" {
		c = conserve
	}
	return &transform{
		inner: step,
		name:  "positivity",
		meta:  map[string]any{"vars": names, "lower": lower, "conserve": c},
		vars:  names,
		op: func(field gcm.Array, _ *gcm.Params, backend compute.Backend) (gcm.Array, error) {
			return ops.ClampMin(field, backend, lower)
		},
	}
}

func Positivity(lower float64, conserve string, names ...string) Middleware {
	return func(step gcm.Step) gcm.Step { return WithPositivity(step, lower, conserve, names...) }
}

func WithEnergyFix(step gcm.Step, budget ...string) gcm.Step {
	return &transform{
		inner: step,
		name:  "energy_fix",
		meta:  map[string]any{"budget": vars(budget, "dry_static", "latent", "kinetic")},
	}
}

func EnergyFix(budget ...string) Middleware {
	return func(step gcm.Step) gcm.Step { return WithEnergyFix(step, budget...) }
}

func WithConservationProjection(step gcm.Step, conserve ...string) gcm.Step {
	return &transform{
		inner: step,
		name:  "conservation_projection",
		meta:  map[string]any{"conserve": vars(conserve, "total_mass", "moist_energy")},
	}
}

func ConservationProjection(conserve ...string) Middleware {
	return func(step gcm.Step) gcm.Step { return WithConservationProjection(step, conserve...) }
}
