package steps

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/requirements"
	"github.com/san-kum/gcmi/internal/value"
)

func sum(a gcm.Array) float64 {
	s := 0.0
	for _, v := range a {
		s += v
	}
	return s
}

func TestAdvection_ConservesMassWithUniformVelocity(t *testing.T) {
	tests := []struct {
		name string
		u    float64
	}{
		{"positive", 0.5},
		{"negative", -0.5},
		{"zero", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := gcm.State{
				"u": {tt.u, tt.u, tt.u, tt.u, tt.u},
				"q": {0, 1, 2, 1, 0},
			}
			params := &gcm.Params{Grid: gcm.NewGrid(1, 0)}
			adv := NewAdvection("u")
			next, diag, err := adv.Call(state, nil, params, 1, compute.Default())
			if err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			if math.Abs(sum(next["q"])-sum(state["q"])) > 1e-12 {
				t.Errorf("mass not conserved: %v -> %v", sum(state["q"]), sum(next["q"]))
			}
			if !next["u"].Equal(state["u"]) {
				t.Error("velocity field was advected")
			}
			if diag["courant"] != math.Abs(tt.u) {
				t.Errorf("courant = %v, want %v", diag["courant"], math.Abs(tt.u))
			}
		})
	}
}

func TestAdvection_Shift(t *testing.T) {
	state := gcm.State{"u": {1, 1, 1, 1}, "q": {1, 0, 0, 0}}
	params := &gcm.Params{Grid: gcm.NewGrid(1, 0)}
	next, _, err := NewAdvection("").Call(state, nil, params, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := gcm.Array{0, 1, 0, 0}
	if !next["q"].Equal(want) {
		t.Errorf("q = %v, want %v", next["q"], want)
	}
}

func TestAdvection_Errors(t *testing.T) {
	tests := []struct {
		name    string
		state   gcm.State
		params  *gcm.Params
		wantErr error
	}{
		{"missing velocity", gcm.State{"q": {1}}, &gcm.Params{Grid: gcm.NewGrid(1, 0)}, ErrMissingField},
		{"no grid", gcm.State{"u": {1}}, &gcm.Params{}, ErrBadParam},
		{"shape", gcm.State{"u": {1}, "q": {1, 2}}, &gcm.Params{Grid: gcm.NewGrid(1, 0)}, ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewAdvection("u").Call(tt.state, nil, tt.params, 1, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Call() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdvection_Requirements(t *testing.T) {
	res, n := requirements.ValidateStep(NewAdvection("u"), gcm.State{}, &gcm.Params{}, gcm.Forcing{})
	if n != 2 {
		t.Fatalf("checked %d requirements, want 2", n)
	}
	if len(res.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(res.Errors))
	}
}

func TestRelaxation(t *testing.T) {
	params := &gcm.Params{Extra: value.Map{"relaxation": value.Map{"tau": 2.0}}}
	state := gcm.State{"T": {0, 10}, "q": {1}}
	forcing := gcm.Forcing{"T": {4, 6}}

	next, diag, err := NewRelaxation().Call(state, forcing, params, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := gcm.Array{2, 8}
	if !next["T"].Equal(want) {
		t.Errorf("T = %v, want %v", next["T"], want)
	}
	if !next["q"].Equal(state["q"]) {
		t.Error("field without forcing changed")
	}
	if diag["relaxed_fields"] != 1 {
		t.Errorf("relaxed_fields = %v", diag["relaxed_fields"])
	}
}

func TestRelaxation_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params *gcm.Params
	}{
		{"missing tau", &gcm.Params{}},
		{"zero tau", &gcm.Params{Extra: value.Map{"relaxation": value.Map{"tau": 0.0}}}},
		{"string tau", &gcm.Params{Extra: value.Map{"relaxation": value.Map{"tau": "fast"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewRelaxation().Call(gcm.State{}, gcm.Forcing{}, tt.params, 1, nil)
			if !errors.Is(err, ErrBadParam) {
				t.Errorf("Call() error = %v, want ErrBadParam", err)
			}
			res, _ := requirements.ValidateStep(NewRelaxation(), gcm.State{}, tt.params, gcm.Forcing{})
			if len(res.Errors) != 1 {
				t.Errorf("requirement check found %d errors, want 1", len(res.Errors))
			}
		})
	}
}

func TestWaveSpeeds(t *testing.T) {
	state := gcm.State{"u": {-3, 2}}
	if got := MaxAbs("u")(state, nil, nil); got != 3 {
		t.Errorf("MaxAbs = %v, want 3", got)
	}
	if got := MaxAbs("v")(state, nil, compute.Default()); got != 0 {
		t.Errorf("MaxAbs of absent field = %v, want 0", got)
	}
	if got := Constant(2.5)(state, nil, nil); got != 2.5 {
		t.Errorf("Constant = %v", got)
	}
}
