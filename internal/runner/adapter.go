package runner

import (
	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
)

// Inputs carries the canonical step inputs. Fields the step did not
// declare in its Capabilities are left at their zero value.
type Inputs struct {
	State   gcm.State
	Forcing gcm.Forcing
	Params  *gcm.Params
	Dt      float64
	Backend compute.Backend
}

// FlexibleFunc is a step function that may return any diagnostic value.
type FlexibleFunc func(in Inputs) (gcm.State, any, error)

// Capabilities declares which inputs a FlexibleFunc consumes.
type Capabilities struct {
	State   bool
	Forcing bool
	Params  bool
	Dt      bool
	Backend bool
}

// AllInputs declares every canonical input.
var AllInputs = Capabilities{State: true, Forcing: true, Params: true, Dt: true, Backend: true}

type bound struct {
	fn   FlexibleFunc
	caps Capabilities
}

// Bind adapts fn to the canonical step contract. A nil diag becomes an
// empty Diag and any other non-mapping diag is stored under "diag".
func Bind(fn FlexibleFunc, caps Capabilities) gcm.Step {
	return &bound{fn: fn, caps: caps}
}

func (b *bound) Call(state gcm.State, forcing gcm.Forcing, params *gcm.Params, dt float64, backend compute.Backend) (gcm.State, gcm.Diag, error) {
	var in Inputs
	if b.caps.State {
		in.State = state
	}
	if b.caps.Forcing {
		in.Forcing = forcing
	}
	if b.caps.Params {
		in.Params = params
	}
	if b.caps.Dt {
		in.Dt = dt
	}
	if b.caps.Backend {
		in.Backend = backend
	}

	next, raw, err := b.fn(in)
	if err != nil {
		return nil, nil, err
	}
	if next == nil {
		return nil, nil, gcm.ErrMalformedReturn
	}
	return next, asDiag(raw), nil
}

func asDiag(raw any) gcm.Diag {
	switch d := raw.(type) {
	case nil:
		return gcm.Diag{}
	case gcm.Diag:
		if d == nil {
			return gcm.Diag{}
		}
		return d
	case map[string]any:
		if d == nil {
			return gcm.Diag{}
		}
		return gcm.Diag(d)
	}
	return gcm.Diag{"diag": raw}
}
