package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/gcmi/internal/config"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/middleware"
	"github.com/san-kum/gcmi/internal/steps"
)

var (
	ErrUnknownStep      = errors.New("experiment: unknown step")
	ErrUnknownWaveSpeed = errors.New("experiment: unknown wave speed")
	ErrUnknownTransform = errors.New("experiment: unknown transform")
)

type Registry struct {
	steps      map[string]func() gcm.Step
	waveSpeeds map[string]func(cfg *config.CFLConfig) middleware.WaveSpeed
}

func NewRegistry() *Registry {
	r := &Registry{
		steps:      make(map[string]func() gcm.Step),
		waveSpeeds: make(map[string]func(*config.CFLConfig) middleware.WaveSpeed),
	}

	r.steps["identity"] = func() gcm.Step { return steps.Identity }
	r.steps["advection"] = func() gcm.Step { return steps.NewAdvection("u") }
	r.steps["relaxation"] = func() gcm.Step { return steps.NewRelaxation() }

	r.waveSpeeds["max_abs"] = func(cfg *config.CFLConfig) middleware.WaveSpeed {
		field := cfg.Field
		if field == "" {
			field = "u"
		}
		return steps.MaxAbs(field)
	}
	r.waveSpeeds["constant"] = func(cfg *config.CFLConfig) middleware.WaveSpeed {
		return steps.Constant(cfg.Speed)
	}

	return r
}

// RegisterStep makes a terminal step available under name.
func (r *Registry) RegisterStep(name string, fn func() gcm.Step) {
	r.steps[name] = fn
}

func (r *Registry) GetStep(name string) (gcm.Step, error) {
	fn, ok := r.steps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownStep, name, r.ListSteps())
	}
	return fn(), nil
}

func (r *Registry) GetWaveSpeed(cfg *config.CFLConfig) (middleware.WaveSpeed, error) {
	name := cfg.WaveSpeed
	if name == "" {
		name = "max_abs"
	}
	fn, ok := r.waveSpeeds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWaveSpeed, name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListSteps() []string {
	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
