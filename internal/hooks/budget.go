package hooks

import (
	"io"
	"strconv"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/ops"
)

var (
	DefaultEnergyTerms = []string{"dry_static", "latent", "kinetic"}
	DefaultTermVars    = map[string][]string{
		"dry_static": {"T"},
		"latent":     {"q"},
		"kinetic":    {"u", "v"},
	}
)

// EnergyBudget totals selected state fields per energy term each step.
type EnergyBudget struct {
	terms    []string
	termVars map[string][]string
	out      sink
	budgets  map[int]map[string]float64
}

func NewEnergyBudget(terms []string, termVars map[string][]string, w io.Writer, format Format) (*EnergyBudget, error) {
	out, err := newSink(w, format)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		terms = DefaultEnergyTerms
	}
	if termVars == nil {
		termVars = DefaultTermVars
	}
	return &EnergyBudget{
		terms:    terms,
		termVars: termVars,
		out:      out,
		budgets:  make(map[int]map[string]float64),
	}, nil
}

func (e *EnergyBudget) ObserveContext(k int, state gcm.State, _ gcm.Diag, _ *gcm.Params, backend compute.Backend) error {
	energy := make(map[string]float64, len(e.terms))
	row := []string{strconv.Itoa(k)}
	for _, term := range e.terms {
		sum := 0.0
		for _, name := range e.termVars[term] {
			field, ok := state[name]
			if !ok {
				continue
			}
			v, err := ops.Total(field, backend)
			if err != nil {
				return err
			}
			sum += v
		}
		energy[term] = sum
		row = append(row, ftoa(sum))
	}
	e.budgets[k] = energy
	return e.out.write(row, map[string]any{"k": k, "energy": energy})
}

// Budgets returns the per-step term totals keyed by iteration.
func (e *EnergyBudget) Budgets() map[int]map[string]float64 { return e.budgets }

// WaterBudget totals one moisture field each step.
type WaterBudget struct {
	name   string
	out    sink
	totals map[int]float64
}

func NewWaterBudget(name string, w io.Writer, format Format) (*WaterBudget, error) {
	out, err := newSink(w, format)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "q"
	}
	return &WaterBudget{name: name, out: out, totals: make(map[int]float64)}, nil
}

func (wb *WaterBudget) ObserveContext(k int, state gcm.State, _ gcm.Diag, _ *gcm.Params, backend compute.Backend) error {
	total := 0.0
	if field, ok := state[wb.name]; ok {
		v, err := ops.Total(field, backend)
		if err != nil {
			return err
		}
		total = v
	}
	wb.totals[k] = total
	return wb.out.write([]string{strconv.Itoa(k), ftoa(total)}, map[string]any{"k": k, wb.name: total})
}

func (wb *WaterBudget) Totals() map[int]float64 { return wb.totals }
