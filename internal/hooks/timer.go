package hooks

import (
	"io"
	"strconv"

	"github.com/san-kum/gcmi/internal/gcm"
)

// Timer writes the per-step duration recorded by the run loop.
type Timer struct {
	out         sink
	includeDiag bool
	steps       int
	total       float64
}

// NewTimer writes "k,step_sec" rows (CSV) or {"k","step_sec"} records
// (NDJSON). includeDiag adds the full diag to NDJSON records.
func NewTimer(w io.Writer, format Format, includeDiag bool) (*Timer, error) {
	out, err := newSink(w, format)
	if err != nil {
		return nil, err
	}
	return &Timer{out: out, includeDiag: includeDiag}, nil
}

func (t *Timer) Observe(k int, _ gcm.State, diag gcm.Diag) error {
	sec, ok := diag.StepSeconds()
	if !ok {
		return nil
	}
	t.steps++
	t.total += sec

	rec := map[string]any{"k": k, "step_sec": sec}
	if t.includeDiag {
		rec["diag"] = diag
	}
	return t.out.write([]string{strconv.Itoa(k), ftoa(sec)}, rec)
}

func (t *Timer) Steps() int { return t.steps }

func (t *Timer) TotalSec() float64 { return t.total }
