package runner

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStepCount  = errors.New("runner: step count must be non-negative")
	ErrObserverSignature = errors.New("runner: observer implements neither Observe nor ObserveContext")
)

// StepError reports the iteration at which a step failed.
type StepError struct {
	Step int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("runner: step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
