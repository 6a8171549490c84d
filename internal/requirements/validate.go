package requirements

import (
	"fmt"
	"strings"

	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/value"
)

type Result struct {
	Errors   []Violation
	Warnings []Violation
}

func (r Result) OK() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// Err returns an *Error carrying the error-severity violations, or nil.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &Error{Violations: r.Errors}
}

// Validate checks reqs in order against the given containers. A nil
// container is reported as unavailable for every requirement that targets
// it.
func Validate(state gcm.State, params *gcm.Params, forcing gcm.Forcing, reqs []Requirement) Result {
	containers := map[Where]value.Map{
		InState:   state.Tree(),
		InParams:  params.Tree(),
		InForcing: forcing.Tree(),
	}

	var res Result
	for _, r := range reqs {
		msg, failed := check(r, containers[r.Where])
		if !failed {
			continue
		}
		v := Violation{
			Where:       r.Where,
			Path:        r.Path,
			Severity:    r.level(),
			Message:     msg,
			Requirement: r,
		}
		if v.Severity == SeverityError {
			res.Errors = append(res.Errors, v)
		} else {
			res.Warnings = append(res.Warnings, v)
		}
	}
	return res
}

// ValidateStep validates the requirements declared along step's chain
// plus extra.
func ValidateStep(step gcm.Step, state gcm.State, params *gcm.Params, forcing gcm.Forcing, extra ...Requirement) (Result, int) {
	reqs := append(Retrieve(step), extra...)
	if len(reqs) == 0 {
		return Result{}, 0
	}
	return Validate(state, params, forcing, reqs), len(reqs)
}

func check(r Requirement, container value.Map) (string, bool) {
	if container == nil {
		return fmt.Sprintf("container '%s' is unavailable; cannot check path '%s'", r.Where, r.Path), true
	}

	v, err := value.Resolve(container, r.Path)
	if err != nil {
		if r.Optional {
			return "", false
		}
		return r.message(err.Error()), true
	}

	if len(r.Kinds) > 0 && !value.Matches(v, r.Kinds) {
		return r.message(fmt.Sprintf("expected type %s, got %s", kinds(r.Kinds), value.KindOf(v))), true
	}

	if r.Predicate != nil {
		ok, err := evaluate(r.Predicate, v)
		if err != nil {
			return r.message(fmt.Sprintf("predicate failed: %v", err)), true
		}
		if !ok {
			return r.message("predicate returned false"), true
		}
	}
	return "", false
}

func (r Requirement) message(fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

func evaluate(p Predicate, v any) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok, err = false, fmt.Errorf("panic: %v", rec)
		}
	}()
	return p(v)
}

func kinds(ks []value.Kind) string {
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = k.String()
	}
	return strings.Join(names, "|")
}
