package middleware

import "github.com/san-kum/gcmi/internal/gcm"

type Middleware func(gcm.Step) gcm.Step

// Chain applies mws to step in order, so the last middleware is outermost.
func Chain(step gcm.Step, mws ...Middleware) gcm.Step {
	for _, mw := range mws {
		step = mw(step)
	}
	return step
}
