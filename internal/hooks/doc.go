// Package hooks provides run observers: a per-step timer, energy and water
// budgets and Prometheus metrics.
//
// Hooks never modify the state or diag they observe. Budget totals are kept
// inside the hook and can be read back after the run.
package hooks
