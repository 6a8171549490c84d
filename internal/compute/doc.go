// Package compute provides the array backend ("xp" namespace) that
// operators and steps use for field arithmetic.
//
// A [Backend] is recorded in the run parameters once and shared by every
// middleware layer. Backends must be pure: they never modify their inputs
// and always return freshly allocated slices.
//
//	b, _ := compute.Lookup("cpu")
//	total := b.Sum(state["q"])
//
// The CPU backend splits element-wise work across goroutines for large
// fields. Reductions are evaluated serially so totals are bit-reproducible.
package compute
