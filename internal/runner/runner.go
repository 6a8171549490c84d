package runner

import (
	"context"
	"log/slog"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
)

type Options struct {
	Init      gcm.InitConfig
	Backend   compute.Backend
	Observers []any
	// Dt overrides params.time.dt when set.
	Dt     *float64
	Logger *slog.Logger
}

// Runner binds a step, its initial condition and observers so the same
// setup can be run against different forcing sources.
type Runner struct {
	step      gcm.Step
	state0    gcm.State
	params    *gcm.Params
	dt        float64
	observers []any
	logger    *slog.Logger
}

func NewRunner(step gcm.Step, opts Options) *Runner {
	state0, params := gcm.Init(opts.Init, opts.Backend)
	dt := params.Dt()
	if opts.Dt != nil {
		dt = *opts.Dt
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		step:      step,
		state0:    state0,
		params:    params,
		dt:        dt,
		observers: append([]any(nil), opts.Observers...),
		logger:    logger,
	}
}

func (r *Runner) AddObserver(o any) { r.observers = append(r.observers, o) }

func (r *Runner) Params() *gcm.Params { return r.params }

func (r *Runner) Dt() float64 { return r.dt }

// Run starts from a fresh copy of the initial state on every call.
func (r *Runner) Run(ctx context.Context, source ForcingSource, n int) (gcm.State, *Report, error) {
	return run(ctx, r.logger, r.step, r.state0.Clone(), r.params, r.dt, source, n, r.observers)
}

// RunOnce builds a Runner and runs it.
func RunOnce(ctx context.Context, step gcm.Step, opts Options, source ForcingSource, n int) (gcm.State, *Report, error) {
	return NewRunner(step, opts).Run(ctx, source, n)
}
