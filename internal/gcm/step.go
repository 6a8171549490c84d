package gcm

import "github.com/san-kum/gcmi/internal/compute"

// Step advances state by one timestep dt.
type Step interface {
	Call(state State, forcing Forcing, params *Params, dt float64, backend compute.Backend) (State, Diag, error)
}

type StepFunc func(state State, forcing Forcing, params *Params, dt float64, backend compute.Backend) (State, Diag, error)

func (f StepFunc) Call(state State, forcing Forcing, params *Params, dt float64, backend compute.Backend) (State, Diag, error) {
	return f(state, forcing, params, dt, backend)
}

// Wrapper is implemented by steps that delegate to an inner step.
type Wrapper interface {
	Unwrap() Step
}

// Identity returns the state unchanged with an empty middleware list.
var Identity Step = StepFunc(func(state State, _ Forcing, _ *Params, _ float64, _ compute.Backend) (State, Diag, error) {
	return state, Diag{MetaKey: []MetaEntry{}}, nil
})

// Invoke calls step and normalizes its result: a nil diag becomes an
// empty Diag and a nil state is reported as ErrMalformedReturn.
func Invoke(step Step, state State, forcing Forcing, params *Params, dt float64, backend compute.Backend) (State, Diag, error) {
	if step == nil {
		return nil, nil, ErrNilStep
	}
	next, diag, err := step.Call(state, forcing, params, dt, backend)
	if err != nil {
		return nil, nil, err
	}
	if next == nil {
		return nil, nil, ErrMalformedReturn
	}
	return next, Normalize(diag), nil
}
