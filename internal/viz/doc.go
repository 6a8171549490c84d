// Package viz renders run results in the terminal.
//
//   - [Summary]: styled report of a finished run
//   - [PlotTimings]: ASCII chart of per-step durations
//   - [LiveModel]: Bubble Tea progress view that drives a run
//
// # Key Bindings
//
//	Q / Ctrl+C - Cancel the run and quit
package viz
