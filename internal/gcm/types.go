package gcm

import (
	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/value"
)

type Array []float64

func (a Array) Clone() Array {
	if a == nil {
		return nil
	}
	c := make(Array, len(a))
	copy(c, a)
	return c
}

// Equal reports bitwise equality of two fields.
func (a Array) Equal(b Array) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type State map[string]Array

func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v.Clone()
	}
	return c
}

func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

func (s State) Tree() value.Map {
	if s == nil {
		return nil
	}
	m := make(value.Map, len(s))
	for k, v := range s {
		m[k] = v
	}
	return m
}

type Forcing map[string]Array

func (f Forcing) Tree() value.Map {
	if f == nil {
		return nil
	}
	m := make(value.Map, len(f))
	for k, v := range f {
		m[k] = v
	}
	return m
}

// Grid describes the horizontal mesh. A nil DxMin means the spacing is
// unknown.
type Grid struct {
	DxMin *float64
	Nx    int
}

func NewGrid(dxMin float64, nx int) *Grid {
	return &Grid{DxMin: &dxMin, Nx: nx}
}

type Time struct {
	Dt float64
}

type Spectral struct {
	Radius float64
}

// Params holds run constants. A Params value is built once before a run
// and shared read-only by every layer; nothing may modify it afterwards.
type Params struct {
	Grid     *Grid
	Time     *Time
	Spectral *Spectral
	Backend  compute.Backend
	Extra    value.Map
}

// Dt returns time.dt, or 1.0 when no time section is present.
func (p *Params) Dt() float64 {
	if p == nil || p.Time == nil {
		return 1.0
	}
	return p.Time.Dt
}

func (p *Params) DxMin() (float64, bool) {
	if p == nil || p.Grid == nil || p.Grid.DxMin == nil {
		return 0, false
	}
	return *p.Grid.DxMin, true
}

// Tree renders the params as a structured value for dotted-path lookups.
// Absent sections are omitted.
func (p *Params) Tree() value.Map {
	if p == nil {
		return nil
	}
	m := value.Map{}
	if p.Grid != nil {
		grid := value.Map{"nx": p.Grid.Nx}
		if p.Grid.DxMin != nil {
			grid["dx_min"] = *p.Grid.DxMin
		}
		m["grid"] = grid
	}
	if p.Time != nil {
		m["time"] = value.Map{"dt": p.Time.Dt}
	}
	if p.Spectral != nil {
		m["spectral"] = value.Map{"radius": p.Spectral.Radius}
	}
	if p.Backend != nil {
		m["backend"] = value.Map{"name": p.Backend.Name()}
	}
	if p.Extra != nil {
		m["extra"] = p.Extra
	}
	return m
}

// InitConfig describes the initial condition of a run.
type InitConfig struct {
	State0 State
	Params Params
}

// Init deep-copies the initial state and returns params with the backend
// recorded. A nil backend selects compute.Default().
func Init(cfg InitConfig, backend compute.Backend) (State, *Params) {
	if backend == nil {
		backend = compute.Default()
	}
	st := cfg.State0.Clone()
	if st == nil {
		st = State{}
	}
	p := cfg.Params
	p.Backend = backend
	return st, &p
}
