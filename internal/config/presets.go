package config

import "sort"

func wave(n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := n / 4; i < n/2; i++ {
		out[i] = amp
	}
	return out
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

var Presets = map[string]map[string]*Config{
	"identity": {
		"smoke": {
			Step: "identity", Steps: 10, Backend: "cpu",
			Time:   &TimeConfig{Dt: 1},
			State0: map[string][]float64{"T": fill(8, 280), "q": fill(8, 0.01)},
			Middleware: MiddlewareConfig{
				Transforms: []TransformConfig{
					{Name: "hyperdiff"},
					{Name: "flux_limiter"},
					{Name: "positivity"},
					{Name: "energy_fix"},
					{Name: "conservation_projection"},
				},
				Requirements: &RequirementsConfig{MaxChecks: 3, RaiseOnError: true, RecordWarnings: true},
			},
		},
	},
	"advection": {
		"gentle": {
			Step: "advection", Steps: 100, Backend: "cpu",
			Grid:   NewGridConfig(1, 64),
			Time:   &TimeConfig{Dt: 0.5},
			State0: map[string][]float64{"u": fill(64, 1), "q": wave(64, 1)},
			Middleware: MiddlewareConfig{
				CFL:          &CFLConfig{CFLMax: 0.8, WaveSpeed: "max_abs", Field: "u"},
				Transforms:   []TransformConfig{{Name: "positivity", Vars: []string{"q"}}},
				Requirements: &RequirementsConfig{MaxChecks: 3, RaiseOnError: true, RecordWarnings: true},
			},
		},
		"substepping": {
			Step: "advection", Steps: 50, Backend: "cpu",
			Grid:   NewGridConfig(1, 64),
			Time:   &TimeConfig{Dt: 1},
			State0: map[string][]float64{"u": fill(64, 10), "q": wave(64, 1)},
			Middleware: MiddlewareConfig{
				CFL:          &CFLConfig{CFLMax: 0.5, WaveSpeed: "max_abs", Field: "u"},
				Requirements: &RequirementsConfig{MaxChecks: 3, RaiseOnError: true, RecordWarnings: true},
			},
		},
		"diffusive": {
			Step: "advection", Steps: 200, Backend: "cpu",
			Grid:   NewGridConfig(1, 128),
			Time:   &TimeConfig{Dt: 0.25},
			State0: map[string][]float64{"u": fill(128, 2), "T": wave(128, 5)},
			Middleware: MiddlewareConfig{
				CFL:          &CFLConfig{CFLMax: 0.8, WaveSpeed: "max_abs", Field: "u"},
				Transforms:   []TransformConfig{{Name: "hyperdiff", Coeff: 0.05, Order: 4, Vars: []string{"T"}}},
				Requirements: &RequirementsConfig{MaxChecks: 3, RaiseOnError: true, RecordWarnings: true},
			},
		},
	},
	"relaxation": {
		"nudge": {
			Step: "relaxation", Steps: 40, Backend: "cpu",
			Time:    &TimeConfig{Dt: 0.5},
			Extra:   map[string]any{"relaxation": map[string]any{"tau": 4.0}},
			State0:  map[string][]float64{"T": fill(16, 250)},
			Forcing: ForcingConfig{Constant: map[string][]float64{"T": fill(16, 300)}},
			Middleware: MiddlewareConfig{
				Requirements: &RequirementsConfig{MaxChecks: 3, RaiseOnError: true, RecordWarnings: true},
			},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(step, preset string) *Config {
	stepPresets, ok := Presets[step]
	if !ok {
		return nil
	}
	cfg, ok := stepPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(step string) []string {
	stepPresets, ok := Presets[step]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(stepPresets))
	for name := range stepPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListSteps() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
