// Package runner executes a step for a fixed number of iterations.
//
// Each iteration pulls one forcing value from a [ForcingSource], times the
// step with a monotonic clock, records the duration into the diag and the
// [Report], and notifies observers in registration order. State returned
// by the step is fed into the next iteration unchanged.
//
// [Run] is the strict core loop. [NewRunner] binds a step, an initial
// condition and observers once, and [Bind] adapts step functions that
// only consume a subset of the canonical inputs.
package runner
