package requirements

import (
	"reflect"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
)

// Declarer is implemented by steps that carry their own requirements.
type Declarer interface {
	Requirements() []Requirement
}

type annotated struct {
	inner gcm.Step
	reqs  []Requirement
}

func (a *annotated) Call(state gcm.State, forcing gcm.Forcing, params *gcm.Params, dt float64, backend compute.Backend) (gcm.State, gcm.Diag, error) {
	return a.inner.Call(state, forcing, params, dt, backend)
}

func (a *annotated) Requirements() []Requirement { return a.reqs }

func (a *annotated) Unwrap() gcm.Step { return a.inner }

// Attach returns a step that behaves exactly like step and carries reqs.
// Attaching to a step already returned by Attach extends its list; the
// original value is left unchanged.
func Attach(step gcm.Step, reqs ...Requirement) gcm.Step {
	if a, ok := step.(*annotated); ok {
		merged := make([]Requirement, 0, len(a.reqs)+len(reqs))
		merged = append(merged, a.reqs...)
		merged = append(merged, reqs...)
		return &annotated{inner: a.inner, reqs: merged}
	}
	return &annotated{inner: step, reqs: append([]Requirement(nil), reqs...)}
}

// Requires is the decorator form of Attach.
func Requires(reqs ...Requirement) func(gcm.Step) gcm.Step {
	return func(step gcm.Step) gcm.Step {
		return Attach(step, reqs...)
	}
}

// Retrieve collects requirements along the wrapping chain, outermost layer
// first. The walk stops at a layer without a back-reference or at a layer
// it has already visited. Duplicates are kept.
func Retrieve(step gcm.Step) []Requirement {
	var out []Requirement
	seen := make(map[link]bool)
	for cur := step; cur != nil; {
		if id, ok := identity(cur); ok {
			if seen[id] {
				break
			}
			seen[id] = true
		}
		if d, ok := cur.(Declarer); ok {
			out = append(out, d.Requirements()...)
		}
		w, ok := cur.(gcm.Wrapper)
		if !ok {
			break
		}
		cur = w.Unwrap()
	}
	return out
}

type link struct {
	typ reflect.Type
	ptr uintptr
}

// identity keys pointer-backed steps. Other kinds cannot form a cycle
// through Unwrap without a pointer somewhere in the chain.
func identity(step gcm.Step) (link, bool) {
	v := reflect.ValueOf(step)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return link{}, false
	}
	return link{typ: v.Type(), ptr: v.Pointer()}, true
}
