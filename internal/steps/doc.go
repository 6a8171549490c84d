// Package steps provides built-in terminal steps and wave-speed estimators.
//
// Each step declares the inputs it reads through requirements.Declarer so
// a requirements check wrapped around it discovers them automatically.
package steps
