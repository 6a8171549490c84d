package viz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/runner"
)

// PlotTimings charts per-step durations in milliseconds.
func PlotTimings(timings []float64, caption string) string {
	if len(timings) == 0 {
		return Subtle.Render("no timings")
	}
	data := make([]float64, len(timings))
	for i, s := range timings {
		data[i] = s * 1e3
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption+" (ms/step)"),
	)
}

// Summary renders the headline numbers of a finished run.
func Summary(title string, report *runner.Report) string {
	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(title)) + "\n\n")
	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Steps", fmt.Sprintf("%d", report.Steps()))
	row("Total", fmt.Sprintf("%.3f ms", report.TotalSec()*1e3))
	row("Mean", fmt.Sprintf("%.3f µs/step", report.MeanSec()*1e6))

	if report.LastDiag != nil {
		layers := make([]string, 0)
		for _, e := range report.LastDiag.MetaEntries() {
			layers = append(layers, e.Name)
		}
		if len(layers) > 0 {
			row("Layers", strings.Join(layers, " → "))
		}
		if meta, ok := report.LastDiag.LastMeta("cfl_guard"); ok {
			n, _ := meta.Get("n_substeps")
			cfl, _ := meta.Get("cfl")
			row("CFL", fmt.Sprintf("%v substeps (ratio %.3g)", n, cfl))
		}
		if _, ok := report.LastDiag[gcm.RequirementsKey]; ok {
			s.WriteString(StatusWarn.Render("requirement violations recorded") + "\n")
		}
	}
	s.WriteString(Separator(40) + "\n")
	row("Trend", Sparkline(report.Timings.PerStepSec, 40))
	return Panel.Render(s.String())
}

// RenderDiag pretty-prints a diag as JSON.
func RenderDiag(diag gcm.Diag) string {
	if diag == nil {
		return Subtle.Render("null")
	}
	b, err := json.MarshalIndent(diag, "", "  ")
	if err != nil {
		return StatusFailed.Render(fmt.Sprintf("diag not renderable: %v", err))
	}
	return string(b)
}
