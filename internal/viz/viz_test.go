package viz

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/runner"
)

func TestPlotTimings(t *testing.T) {
	if got := PlotTimings(nil, "run"); !strings.Contains(got, "no timings") {
		t.Errorf("empty plot = %q", got)
	}
	got := PlotTimings([]float64{0.001, 0.002, 0.0015}, "run")
	if !strings.Contains(got, "ms/step") {
		t.Errorf("plot missing caption: %q", got)
	}
	if PlotTimings([]float64{0.001}, "one") == "" {
		t.Error("single timing produced no plot")
	}
}

func TestSummary(t *testing.T) {
	diag := gcm.Diag{}
	diag.AppendMeta("cfl_guard", map[string]any{"n_substeps": 20, "cfl": 10.0})
	report := &runner.Report{
		Timings:  runner.Timings{PerStepSec: []float64{0.01, 0.02}},
		LastDiag: diag,
	}
	out := Summary("advection", report)
	for _, want := range []string{"ADVECTION", "cfl_guard", "20 substeps"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestRenderDiag(t *testing.T) {
	if got := RenderDiag(nil); !strings.Contains(got, "null") {
		t.Errorf("RenderDiag(nil) = %q", got)
	}
	d := gcm.Diag{}
	d.AppendMeta("energy_fix", map[string]any{"budget": []string{"latent"}})
	if got := RenderDiag(d); !strings.Contains(got, `"name": "energy_fix"`) {
		t.Errorf("RenderDiag = %q", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := []rune(Sparkline([]float64{1, 2, 3, 4}, 2)); len(got) != 2 {
		t.Errorf("sparkline width = %d, want 2", len(got))
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty sparkline = %q", got)
	}
}

func TestLiveModel_Update(t *testing.T) {
	m := NewLiveModel("advection", 4, func(context.Context, runner.Observer) (*runner.Report, error) {
		return nil, nil
	})

	next, cmd := m.Update(progressMsg{k: 0, stepSec: 0.001, substeps: 3})
	if cmd == nil {
		t.Error("expected a follow-up wait command")
	}
	lm := next.(LiveModel)
	if lm.done != 1 || lm.substeps != 3 {
		t.Errorf("done=%d substeps=%d", lm.done, lm.substeps)
	}

	boom := errors.New("boom")
	next, _ = lm.Update(doneMsg{err: boom})
	lm = next.(LiveModel)
	if _, finished, err := lm.Result(); !finished || !errors.Is(err, boom) {
		t.Errorf("Result() = %v, %v", err, finished)
	}
	if !strings.Contains(lm.View(), "FAILED") {
		t.Error("view does not report failure")
	}

	_, cmd = lm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q did not quit")
	}
}

func TestProgressObserver(t *testing.T) {
	m := NewLiveModel("x", 1, nil)
	diag := gcm.Diag{}
	diag.SetStepSeconds(0.5)
	diag.AppendMeta("cfl_guard", map[string]any{"n_substeps": 4})

	go func() {
		_ = m.prog.Observe(0, gcm.State{}, diag)
	}()
	msg := m.wait()().(progressMsg)
	if msg.substeps != 4 || msg.stepSec != 0.5 {
		t.Errorf("progress message = %+v", msg)
	}

	m.cancel()
	if err := m.prog.Observe(1, gcm.State{}, diag); !errors.Is(err, context.Canceled) {
		t.Errorf("Observe after cancel = %v", err)
	}
}
