package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gcmi/internal/gcm"
)

const (
	DefaultStep      = "advection"
	DefaultSteps     = 100
	DefaultBackend   = "cpu"
	DefaultDt        = 0.1
	DefaultDxMin     = 1.0
	DefaultNx        = 64
	DefaultCFLMax    = 0.8
	DefaultMaxChecks = 3
)

var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

type Config struct {
	Step       string               `yaml:"step" validate:"required"`
	Steps      int                  `yaml:"steps" validate:"gte=0"`
	Backend    string               `yaml:"backend" validate:"required"`
	Grid       *GridConfig          `yaml:"grid,omitempty"`
	Time       *TimeConfig          `yaml:"time,omitempty"`
	Spectral   *SpectralConfig      `yaml:"spectral,omitempty"`
	Extra      map[string]any       `yaml:"extra,omitempty"`
	State0     map[string][]float64 `yaml:"state0"`
	Forcing    ForcingConfig        `yaml:"forcing,omitempty"`
	Middleware MiddlewareConfig     `yaml:"middleware"`
	Hooks      HooksConfig          `yaml:"hooks,omitempty"`
}

type GridConfig struct {
	DxMin *float64 `yaml:"dx_min,omitempty" validate:"omitempty,gte=0"`
	Nx    int     `yaml:"nx" validate:"gte=0"`
}

func NewGridConfig(dxMin float64, nx int) *GridConfig {
	return &GridConfig{DxMin: &dxMin, Nx: nx}
}

type TimeConfig struct {
	Dt float64 `yaml:"dt" validate:"gte=0"`
}

type SpectralConfig struct {
	Radius float64 `yaml:"radius"`
}

// ForcingConfig supplies either the same forcing every step or a finite
// sequence that falls back to empty forcing once exhausted.
type ForcingConfig struct {
	Constant map[string][]float64   `yaml:"constant,omitempty"`
	Sequence []map[string][]float64 `yaml:"sequence,omitempty"`
}

type MiddlewareConfig struct {
	CFL          *CFLConfig          `yaml:"cfl,omitempty"`
	Transforms   []TransformConfig   `yaml:"transforms,omitempty" validate:"dive"`
	Requirements *RequirementsConfig `yaml:"requirements,omitempty"`
}

type CFLConfig struct {
	CFLMax float64 `yaml:"cfl_max"`
	// WaveSpeed names a registered estimator: max_abs or constant.
	WaveSpeed string  `yaml:"wave_speed" validate:"omitempty,oneof=max_abs constant"`
	Field     string  `yaml:"field,omitempty"`
	Speed     float64 `yaml:"speed,omitempty"`
}

type TransformConfig struct {
	Name     string   `yaml:"name" validate:"required,oneof=hyperdiff flux_limiter positivity energy_fix conservation_projection"`
	Coeff    float64  `yaml:"coeff,omitempty"`
	Order    int      `yaml:"order,omitempty"`
	Vars     []string `yaml:"vars,omitempty"`
	Scheme   string   `yaml:"scheme,omitempty"`
	Lower    float64  `yaml:"lower,omitempty"`
	Conserve []string `yaml:"conserve,omitempty"`
	Budget   []string `yaml:"budget,omitempty"`
}

type RequirementsConfig struct {
	MaxChecks      int  `yaml:"max_checks" validate:"gte=0"`
	RaiseOnError   bool `yaml:"raise_on_error"`
	RecordWarnings bool `yaml:"record_warnings"`
}

type HooksConfig struct {
	Timings string `yaml:"timings,omitempty"`
	Energy  string `yaml:"energy,omitempty"`
	Water   string `yaml:"water,omitempty"`
	Format  string `yaml:"format,omitempty" validate:"omitempty,oneof=csv ndjson"`
}

func DefaultConfig() *Config {
	return &Config{
		Step:    DefaultStep,
		Steps:   DefaultSteps,
		Backend: DefaultBackend,
		Grid:    NewGridConfig(DefaultDxMin, DefaultNx),
		Time:    &TimeConfig{Dt: DefaultDt},
		State0:  map[string][]float64{},
		Middleware: MiddlewareConfig{
			CFL: &CFLConfig{CFLMax: DefaultCFLMax, WaveSpeed: "max_abs", Field: "u"},
			Requirements: &RequirementsConfig{
				MaxChecks:      DefaultMaxChecks,
				RaiseOnError:   true,
				RecordWarnings: true,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for name, field := range c.State0 {
		if len(field) == 0 {
			return fmt.Errorf("%w: state0.%s is empty", ErrInvalid, name)
		}
	}
	return nil
}

// Clone returns a deep copy through a YAML round trip.
func (c *Config) Clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("config: clone: %v", err))
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("config: clone: %v", err))
	}
	return out
}

// InitConfig converts the run constants and initial state.
func (c *Config) InitConfig() gcm.InitConfig {
	var p gcm.Params
	if c.Grid != nil {
		p.Grid = &gcm.Grid{Nx: c.Grid.Nx}
		if c.Grid.DxMin != nil {
			dx := *c.Grid.DxMin
			p.Grid.DxMin = &dx
		}
	}
	if c.Time != nil {
		p.Time = &gcm.Time{Dt: c.Time.Dt}
	}
	if c.Spectral != nil {
		p.Spectral = &gcm.Spectral{Radius: c.Spectral.Radius}
	}
	if c.Extra != nil {
		p.Extra = c.Extra
	}
	state := make(gcm.State, len(c.State0))
	for k, v := range c.State0 {
		state[k] = gcm.Array(v)
	}
	return gcm.InitConfig{State0: state, Params: p}
}

func toForcing(m map[string][]float64) gcm.Forcing {
	f := make(gcm.Forcing, len(m))
	for k, v := range m {
		f[k] = gcm.Array(v)
	}
	return f
}

// ForcingSequence returns the configured forcing sequence, or the
// constant forcing when no sequence is set. Both are nil without forcing.
func (c *Config) ForcingSequence() (seq []gcm.Forcing, constant gcm.Forcing) {
	if len(c.Forcing.Sequence) > 0 {
		seq = make([]gcm.Forcing, len(c.Forcing.Sequence))
		for i, m := range c.Forcing.Sequence {
			seq[i] = toForcing(m)
		}
		return seq, nil
	}
	if len(c.Forcing.Constant) > 0 {
		return nil, toForcing(c.Forcing.Constant)
	}
	return nil, nil
}
