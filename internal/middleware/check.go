package middleware

import (
	"log/slog"
	"sync"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/requirements"
)

type CheckOptions struct {
	Extra          []requirements.Requirement
	MaxChecks      int
	RaiseOnError   bool
	RecordWarnings bool
	Logger         *slog.Logger
}

func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		MaxChecks:      3,
		RaiseOnError:   true,
		RecordWarnings: true,
	}
}

type checker struct {
	inner gcm.Step
	opts  CheckOptions

	mu    sync.Mutex
	count int
}

// WithRequirementsCheck validates the requirements declared along step's
// chain, plus opts.Extra, on the first opts.MaxChecks invocations. Later
// invocations skip discovery and validation entirely.
func WithRequirementsCheck(step gcm.Step, opts CheckOptions) gcm.Step {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &checker{inner: step, opts: opts}
}

func RequirementsCheck(opts CheckOptions) Middleware {
	return func(step gcm.Step) gcm.Step { return WithRequirementsCheck(step, opts) }
}

func (c *checker) Unwrap() gcm.Step { return c.inner }

// Calls reports how many times the wrapper has been invoked.
func (c *checker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *checker) Call(state gcm.State, forcing gcm.Forcing, params *gcm.Params, dt float64, backend compute.Backend) (gcm.State, gcm.Diag, error) {
	c.mu.Lock()
	call := c.count
	c.count++
	c.mu.Unlock()

	var (
		res     requirements.Result
		checked int
	)
	if call < c.opts.MaxChecks {
		res, checked = requirements.ValidateStep(c.inner, state, params, forcing, c.opts.Extra...)
		if c.opts.RaiseOnError {
			if err := res.Err(); err != nil {
				return nil, nil, err
			}
		}
	}

	st, diag, err := gcm.Invoke(c.inner, state, forcing, params, dt, backend)
	if err != nil {
		return nil, nil, err
	}

	if checked > 0 && !res.OK() {
		c.opts.Logger.Warn("requirements not satisfied",
			"call", call,
			"errors", len(res.Errors),
			"warnings", len(res.Warnings),
		)
		if c.opts.RecordWarnings {
			records, _ := diag[gcm.RequirementsKey].([]requirements.Record)
			diag[gcm.RequirementsKey] = append(records, requirements.NewRecord(call, c.opts.MaxChecks, checked, res))
		}
	}
	return st, diag, nil
}
