package requirements

import (
	"fmt"

	"github.com/san-kum/gcmi/internal/value"
)

type Where string

const (
	InState   Where = "state"
	InParams  Where = "params"
	InForcing Where = "forcing"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Predicate reports whether a resolved value is acceptable. A returned
// error is reported as an evaluation failure, not as a false result.
type Predicate func(v any) (bool, error)

// Requirement declares one precondition on a step's inputs. The zero value
// of Optional means the path must be present, and an empty Severity means
// SeverityError.
type Requirement struct {
	Where     Where
	Path      string
	Optional  bool
	Kinds     []value.Kind
	Predicate Predicate
	Message   string
	Severity  Severity
}

func (r Requirement) level() Severity {
	if r.Severity == "" {
		return SeverityError
	}
	return r.Severity
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s.%s", r.Where, r.Path)
}

type Violation struct {
	Where       Where
	Path        string
	Severity    Severity
	Message     string
	Requirement Requirement
}

// Positive accepts numeric values strictly greater than zero.
func Positive(v any) (bool, error) {
	f, ok := value.Float(v)
	if !ok {
		return false, fmt.Errorf("not a number: %s", value.KindOf(v))
	}
	return f > 0, nil
}

// NonNegative accepts numeric values greater than or equal to zero.
func NonNegative(v any) (bool, error) {
	f, ok := value.Float(v)
	if !ok {
		return false, fmt.Errorf("not a number: %s", value.KindOf(v))
	}
	return f >= 0, nil
}
