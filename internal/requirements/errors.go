package requirements

import (
	"errors"
	"strings"
)

var ErrUnsatisfied = errors.New("requirements: not satisfied")

// Error aggregates the error-severity violations of one validation.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, "["+strings.ToUpper(string(v.Severity))+"] "+string(v.Where)+"."+v.Path+": "+v.Message)
	}
	return "Requirements not satisfied:\n" + strings.Join(lines, "\n")
}

func (e *Error) Unwrap() error {
	return ErrUnsatisfied
}
