package runner

import "github.com/san-kum/gcmi/internal/gcm"

type Timings struct {
	PerStepSec []float64 `json:"per_step_sec"`
}

// Report collects per-step timings and the diag of the final iteration.
// LastDiag is nil only when no iteration ran.
type Report struct {
	Timings  Timings  `json:"timings"`
	LastDiag gcm.Diag `json:"last_diag"`
}

func newReport(n int) *Report {
	return &Report{Timings: Timings{PerStepSec: make([]float64, 0, n)}}
}

func (r *Report) Steps() int {
	return len(r.Timings.PerStepSec)
}

func (r *Report) TotalSec() float64 {
	total := 0.0
	for _, s := range r.Timings.PerStepSec {
		total += s
	}
	return total
}

func (r *Report) MeanSec() float64 {
	if r.Steps() == 0 {
		return 0
	}
	return r.TotalSec() / float64(r.Steps())
}
