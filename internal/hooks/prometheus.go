package hooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/requirements"
	"github.com/san-kum/gcmi/internal/value"
)

const metricsNamespace = "gcmi"

// Prometheus exports step timings, CFL substepping and requirement
// violations read from each step's diag.
type Prometheus struct {
	StepDuration prometheus.Histogram
	CFLSubsteps  prometheus.Gauge
	CFLRatio     prometheus.Gauge
	Violations   *prometheus.CounterVec
}

// NewPrometheus registers the collectors with reg. A nil reg uses the
// default registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Prometheus{
		StepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of one outer step",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		CFLSubsteps: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cfl_substeps",
			Help:      "Substeps taken by the CFL guard in the last step",
		}),
		CFLRatio: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cfl_ratio",
			Help:      "CFL ratio observed by the CFL guard in the last step",
		}),
		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requirement_violations_total",
			Help:      "Requirement violations recorded in step diagnostics",
		}, []string{"severity"}),
	}
}

func (p *Prometheus) Observe(_ int, _ gcm.State, diag gcm.Diag) error {
	if sec, ok := diag.StepSeconds(); ok {
		p.StepDuration.Observe(sec)
	}
	if meta, ok := diag.LastMeta("cfl_guard"); ok {
		if n, ok := meta.Get("n_substeps"); ok {
			if f, ok := value.Float(n); ok {
				p.CFLSubsteps.Set(f)
			}
		}
		if c, ok := meta.Get("cfl"); ok {
			if f, ok := value.Float(c); ok {
				p.CFLRatio.Set(f)
			}
		}
	}
	if records, ok := diag[gcm.RequirementsKey].([]requirements.Record); ok {
		for _, r := range records {
			p.Violations.WithLabelValues(string(requirements.SeverityError)).Add(float64(len(r.Errors)))
			p.Violations.WithLabelValues(string(requirements.SeverityWarn)).Add(float64(len(r.Warnings)))
		}
	}
	return nil
}
