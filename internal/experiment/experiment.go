package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/config"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/hooks"
	"github.com/san-kum/gcmi/internal/middleware"
	"github.com/san-kum/gcmi/internal/requirements"
	"github.com/san-kum/gcmi/internal/runner"
)

// Build assembles the configured pipeline: terminal step, transforms in
// config order, CFL guard, then the requirements check outermost.
func Build(cfg *config.Config, reg *Registry, logger *slog.Logger) (gcm.Step, error) {
	step, err := reg.GetStep(cfg.Step)
	if err != nil {
		return nil, err
	}

	for _, t := range cfg.Middleware.Transforms {
		mw, err := transform(t)
		if err != nil {
			return nil, err
		}
		step = mw(step)
	}

	if c := cfg.Middleware.CFL; c != nil {
		speed, err := reg.GetWaveSpeed(c)
		if err != nil {
			return nil, err
		}
		step = middleware.WithCFLGuard(step, c.CFLMax, speed)
	}

	if rc := cfg.Middleware.Requirements; rc != nil {
		step = middleware.WithRequirementsCheck(step, middleware.CheckOptions{
			MaxChecks:      rc.MaxChecks,
			RaiseOnError:   rc.RaiseOnError,
			RecordWarnings: rc.RecordWarnings,
			Logger:         logger,
		})
	}
	return step, nil
}

func transform(t config.TransformConfig) (middleware.Middleware, error) {
	switch t.Name {
	case "hyperdiff":
		order := t.Order
		if order == 0 {
			order = 4
		}
		return middleware.Hyperdiff(t.Coeff, order, t.Vars...), nil
	case "flux_limiter":
		return middleware.FluxLimiter(t.Scheme, t.Vars...), nil
	case "positivity":
		conserve := ""
		if len(t.Conserve) > 0 {
			conserve = t.Conserve[0]
		}
		return middleware.Positivity(t.Lower, conserve, t.Vars...), nil
	case "energy_fix":
		return middleware.EnergyFix(t.Budget...), nil
	case "conservation_projection":
		return middleware.ConservationProjection(t.Conserve...), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTransform, t.Name)
}

// ForcingSource converts the forcing section of cfg.
func ForcingSource(cfg *config.Config) runner.ForcingSource {
	seq, constant := cfg.ForcingSequence()
	switch {
	case seq != nil:
		return runner.Forcings(seq)
	case constant != nil:
		return runner.ForcingFunc(func(int) gcm.Forcing { return constant })
	}
	return runner.NoForcing()
}

// Experiment is a configured, runnable pipeline.
type Experiment struct {
	cfg     *config.Config
	step    gcm.Step
	runner  *runner.Runner
	backend compute.Backend
	logger  *slog.Logger
	closers []io.Closer
}

func New(cfg *config.Config, reg *Registry, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	backend, err := compute.Lookup(cfg.Backend)
	if err != nil {
		return nil, err
	}
	step, err := Build(cfg, reg, logger)
	if err != nil {
		return nil, err
	}
	return &Experiment{
		cfg:     cfg,
		step:    step,
		backend: backend,
		logger:  logger,
		runner: runner.NewRunner(step, runner.Options{
			Init:    cfg.InitConfig(),
			Backend: backend,
			Logger:  logger,
		}),
	}, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Step() gcm.Step { return e.step }

func (e *Experiment) AddObserver(o any) { e.runner.AddObserver(o) }

// OpenHooks attaches the file-backed hooks named in the config. Close
// releases their files.
func (e *Experiment) OpenHooks() error {
	h := e.cfg.Hooks
	format := hooks.CSV
	if h.Format != "" {
		f, err := hooks.ParseFormat(h.Format)
		if err != nil {
			return err
		}
		format = f
	}

	if h.Timings != "" {
		w, err := e.create(h.Timings)
		if err != nil {
			return err
		}
		timer, err := hooks.NewTimer(w, format, false)
		if err != nil {
			return err
		}
		e.AddObserver(timer)
	}
	if h.Energy != "" {
		w, err := e.create(h.Energy)
		if err != nil {
			return err
		}
		eb, err := hooks.NewEnergyBudget(nil, nil, w, format)
		if err != nil {
			return err
		}
		e.AddObserver(eb)
	}
	if h.Water != "" {
		w, err := e.create(h.Water)
		if err != nil {
			return err
		}
		wb, err := hooks.NewWaterBudget("q", w, format)
		if err != nil {
			return err
		}
		e.AddObserver(wb)
	}
	return nil
}

func (e *Experiment) create(path string) (io.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("experiment: open hook sink: %w", err)
	}
	e.closers = append(e.closers, f)
	return f, nil
}

func (e *Experiment) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

func (e *Experiment) Run(ctx context.Context) (gcm.State, *runner.Report, error) {
	e.logger.Info("experiment", "step", e.cfg.Step, "steps", e.cfg.Steps, "backend", e.backend.Name())
	return e.runner.Run(ctx, ForcingSource(e.cfg), e.cfg.Steps)
}

// Check validates every requirement declared along the pipeline against
// the initial state, params and first forcing value, without running.
func (e *Experiment) Check() (requirements.Result, int) {
	state0, params := gcm.Init(e.cfg.InitConfig(), e.backend)
	forcing := ForcingSource(e.cfg).Next()
	return requirements.ValidateStep(e.step, state0, params, forcing)
}
