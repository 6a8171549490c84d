// Package gcm defines the data model and step contract shared by every
// layer of a simulation pipeline.
//
// The package defines:
//
//   - [State] and [Forcing]: named fields advanced or consumed by a step
//   - [Params]: run constants (grid, time, spectral, backend), never mutated
//   - [Diag]: per-iteration diagnostics enriched by middleware and the run loop
//   - [Step]: the contract (state, forcing, params, dt, backend) -> (state, diag)
//   - [Wrapper]: the back-reference a wrapping layer exposes to its inner step
//
// # Example
//
//	state0, params := gcm.Init(gcm.InitConfig{State0: s0}, compute.Default())
//	next, diag, err := gcm.Invoke(gcm.Identity, state0, nil, params, params.Dt(), params.Backend)
//
// # Diagnostics
//
// Middleware append one [MetaEntry] per executed layer under [MetaKey]. The
// run loop records the step duration under timings.step_sec. A step that
// returns a nil Diag is normalized to an empty one by [Invoke].
package gcm
