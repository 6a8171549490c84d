package gcm

import "errors"

var (
	// ErrMalformedReturn indicates a step returned no state.
	ErrMalformedReturn = errors.New("gcm: step must return a state and a diag")

	// ErrNilStep indicates a nil step was supplied where one is required.
	ErrNilStep = errors.New("gcm: nil step")
)
