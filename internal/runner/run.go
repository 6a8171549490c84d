package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
)

// Run advances initial by n iterations of step. dt is params.time.dt, or
// 1.0 without a time section. observers must implement Observer or
// ContextObserver.
func Run(ctx context.Context, step gcm.Step, initial gcm.State, params *gcm.Params, source ForcingSource, n int, observers ...any) (gcm.State, *Report, error) {
	return run(ctx, slog.Default(), step, initial, params, params.Dt(), source, n, observers)
}

func run(ctx context.Context, logger *slog.Logger, step gcm.Step, initial gcm.State, params *gcm.Params, dt float64, source ForcingSource, n int, observers []any) (gcm.State, *Report, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidStepCount, n)
	}
	if step == nil {
		return nil, nil, gcm.ErrNilStep
	}
	if err := checkObservers(observers); err != nil {
		return nil, nil, err
	}
	if source == nil {
		source = NoForcing()
	}

	var backend compute.Backend
	if params != nil {
		backend = params.Backend
	}

	state := initial
	if state == nil {
		state = gcm.State{}
	}
	report := newReport(n)

	logger.Info("run started", "steps", n, "dt", dt, "observers", len(observers))
	for k := 0; k < n; k++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		forcing := source.Next()

		start := time.Now()
		next, diag, err := gcm.Invoke(step, state, forcing, params, dt, backend)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			return nil, nil, &StepError{Step: k, Err: err}
		}

		state = next
		diag.SetStepSeconds(elapsed)
		report.Timings.PerStepSec = append(report.Timings.PerStepSec, elapsed)

		for i, o := range observers {
			if err := notify(o, k, state, diag, params, backend); err != nil {
				return nil, nil, fmt.Errorf("runner: observer %d at step %d: %w", i, k, err)
			}
		}

		report.LastDiag = diag
		logger.Debug("step", "k", k, "step_sec", elapsed)
	}
	logger.Info("run finished", "steps", n, "total_sec", report.TotalSec())

	return state, report, nil
}
