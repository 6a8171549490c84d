// Package middleware wraps steps with stability controllers, field
// transforms and requirement checks.
//
// Every wrapper delegates to its inner step, appends exactly one record
// under the diag's middleware list and exposes the inner step through
// Unwrap so requirement discovery can walk the chain.
//
//	step := middleware.Chain(core,
//		middleware.Hyperdiff(0.01, 4, "T", "u", "v"),
//		middleware.CFLGuard(0.8, steps.MaxAbs("u")),
//		middleware.RequirementsCheck(middleware.DefaultCheckOptions()),
//	)
package middleware
