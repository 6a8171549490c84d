package runner

import (
	"fmt"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
)

// Observer is notified after every iteration. Observers must treat state
// and diag as read-only.
type Observer interface {
	Observe(k int, state gcm.State, diag gcm.Diag) error
}

// ContextObserver additionally receives the run's params and backend.
type ContextObserver interface {
	ObserveContext(k int, state gcm.State, diag gcm.Diag, params *gcm.Params, backend compute.Backend) error
}

type ObserverFunc func(k int, state gcm.State, diag gcm.Diag) error

func (f ObserverFunc) Observe(k int, state gcm.State, diag gcm.Diag) error {
	return f(k, state, diag)
}

func checkObservers(observers []any) error {
	for i, o := range observers {
		switch o.(type) {
		case Observer, ContextObserver:
		default:
			return fmt.Errorf("%w: observer %d has type %T", ErrObserverSignature, i, o)
		}
	}
	return nil
}

// notify prefers Observe and falls back to ObserveContext.
func notify(o any, k int, state gcm.State, diag gcm.Diag, params *gcm.Params, backend compute.Backend) error {
	switch obs := o.(type) {
	case Observer:
		return obs.Observe(k, state, diag)
	case ContextObserver:
		return obs.ObserveContext(k, state, diag, params, backend)
	}
	return fmt.Errorf("%w: %T", ErrObserverSignature, o)
}
