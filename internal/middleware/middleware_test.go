package middleware_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gcmi/internal/compute"
	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/logging"
	"github.com/san-kum/gcmi/internal/middleware"
	"github.com/san-kum/gcmi/internal/requirements"
	"github.com/san-kum/gcmi/internal/value"
)

type recorder struct {
	dts  []float64
	diag func() gcm.Diag
}

func (r *recorder) Call(s gcm.State, _ gcm.Forcing, _ *gcm.Params, dt float64, _ compute.Backend) (gcm.State, gcm.Diag, error) {
	r.dts = append(r.dts, dt)
	if r.diag != nil {
		return s, r.diag(), nil
	}
	return s, gcm.Diag{"inner": true}, nil
}

func constantSpeed(v float64) middleware.WaveSpeed {
	return func(gcm.State, *gcm.Params, compute.Backend) float64 { return v }
}

func gridParams(dx float64) *gcm.Params {
	return &gcm.Params{Grid: gcm.NewGrid(dx, 0)}
}

var _ = Describe("CFL guard", func() {
	var (
		inner   *recorder
		backend compute.Backend
		state   gcm.State
	)

	BeforeEach(func() {
		inner = &recorder{}
		backend = compute.Default()
		state = gcm.State{"T": {1, 2, 3}}
	})

	It("splits into 20 substeps when vmax=10, dt=1, dx=1, cfl_max=0.5", func() {
		step := middleware.WithCFLGuard(inner, 0.5, constantSpeed(10))
		st, diag, err := step.Call(state, nil, gridParams(1), 1, backend)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.dts).To(HaveLen(20))
		for _, dt := range inner.dts {
			Expect(dt).To(BeNumerically("~", 0.05, 1e-12))
		}
		Expect(st.Equal(state)).To(BeTrue())

		meta, ok := diag.LastMeta("cfl_guard")
		Expect(ok).To(BeTrue())
		Expect(meta.Fields).To(HaveKeyWithValue("n_substeps", 20))
		Expect(meta.Fields).To(HaveKeyWithValue("cfl", 10.0))
		Expect(meta.Fields["dt_sub"]).To(BeNumerically("~", 0.05, 1e-12))
	})

	It("takes at least two substeps whenever cfl exceeds cfl_max", func() {
		step := middleware.WithCFLGuard(inner, 0.8, constantSpeed(0.81))
		_, diag, err := step.Call(state, nil, gridParams(1), 1, backend)
		Expect(err).NotTo(HaveOccurred())
		meta, _ := diag.LastMeta("cfl_guard")
		Expect(meta.Fields["n_substeps"]).To(BeNumerically(">=", 2))
	})

	DescribeTable("single call without substepping",
		func(vmax, dt, dx float64) {
			step := middleware.WithCFLGuard(inner, 0.5, constantSpeed(vmax))
			_, diag, err := step.Call(state, nil, gridParams(dx), dt, backend)
			Expect(err).NotTo(HaveOccurred())
			Expect(inner.dts).To(Equal([]float64{dt}))
			meta, ok := diag.LastMeta("cfl_guard")
			Expect(ok).To(BeTrue())
			Expect(meta.Fields).To(HaveKeyWithValue("n_substeps", 1))
			Expect(meta.Fields).NotTo(HaveKey("dt_sub"))
		},
		Entry("vmax is zero", 0.0, 1.0, 1.0),
		Entry("dt is zero", 10.0, 0.0, 1.0),
		Entry("dx is zero", 10.0, 1.0, 0.0),
		Entry("cfl below bound", 0.1, 1.0, 1.0),
	)

	It("reports cfl as zero when dx is zero", func() {
		step := middleware.WithCFLGuard(inner, 0.5, constantSpeed(10))
		_, diag, _ := step.Call(state, nil, gridParams(0), 1, backend)
		meta, _ := diag.LastMeta("cfl_guard")
		Expect(meta.Fields).To(HaveKeyWithValue("cfl", 0.0))
	})

	It("disables substepping when cfl_max is not positive", func() {
		step := middleware.WithCFLGuard(inner, 0, constantSpeed(10))
		_, diag, err := step.Call(state, nil, gridParams(1), 1, backend)
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.dts).To(Equal([]float64{1}))
		meta, _ := diag.LastMeta("cfl_guard")
		Expect(meta.Fields).To(HaveKeyWithValue("n_substeps", 1))
	})

	It("uses dx of 1 without a grid section", func() {
		step := middleware.WithCFLGuard(inner, 0.5, constantSpeed(2))
		_, diag, _ := step.Call(state, nil, &gcm.Params{}, 1, backend)
		meta, _ := diag.LastMeta("cfl_guard")
		Expect(meta.Fields).To(HaveKeyWithValue("dx", 1.0))
		Expect(meta.Fields).To(HaveKeyWithValue("n_substeps", 4))
	})

	It("uses dx of 1 when the grid leaves dx_min unset", func() {
		step := middleware.WithCFLGuard(inner, 0.5, constantSpeed(2))
		_, diag, err := step.Call(state, nil, &gcm.Params{Grid: &gcm.Grid{Nx: 32}}, 1, backend)
		Expect(err).NotTo(HaveOccurred())
		meta, _ := diag.LastMeta("cfl_guard")
		Expect(meta.Fields).To(HaveKeyWithValue("dx", 1.0))
		Expect(meta.Fields).To(HaveKeyWithValue("n_substeps", 4))
	})

	It("keeps only the last substep diag", func() {
		n := 0
		inner.diag = func() gcm.Diag {
			n++
			return gcm.Diag{"substep": n}
		}
		step := middleware.WithCFLGuard(inner, 0.5, constantSpeed(1))
		_, diag, _ := step.Call(state, nil, gridParams(1), 1, backend)
		Expect(diag).To(HaveKeyWithValue("substep", 2))
		Expect(diag.MetaEntries()).To(HaveLen(1))
	})

	DescribeTable("refuses to run when the substep count is unbounded",
		func(vmax float64) {
			step := middleware.WithCFLGuard(inner, 0.5, constantSpeed(vmax))
			st, diag, err := step.Call(state, nil, gridParams(1), 1, backend)
			Expect(err).To(MatchError(middleware.ErrSubstepOverflow))
			Expect(st).To(BeNil())
			Expect(diag).To(BeNil())
			Expect(inner.dts).To(BeEmpty())
		},
		Entry("infinite wave speed", math.Inf(1)),
		Entry("huge wave speed", 1e300),
		Entry("NaN wave speed", math.NaN()),
	)

	It("propagates substep errors", func() {
		boom := errors.New("boom")
		failing := gcm.StepFunc(func(gcm.State, gcm.Forcing, *gcm.Params, float64, compute.Backend) (gcm.State, gcm.Diag, error) {
			return nil, nil, boom
		})
		step := middleware.WithCFLGuard(failing, 0.5, constantSpeed(10))
		_, _, err := step.Call(state, nil, gridParams(1), 1, backend)
		Expect(err).To(MatchError(boom))
	})
})

var _ = Describe("Transforms", func() {
	backend := compute.Default()

	It("appends one record per layer in wrapping order", func() {
		step := middleware.Chain(gcm.Identity,
			middleware.Hyperdiff(0, 4),
			middleware.FluxLimiter(""),
			middleware.Positivity(0, ""),
			middleware.EnergyFix(),
			middleware.ConservationProjection(),
		)
		_, diag, err := step.Call(gcm.State{}, nil, &gcm.Params{}, 1, backend)
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, e := range diag.MetaEntries() {
			names = append(names, e.Name)
		}
		Expect(names).To(Equal([]string{"hyperdiff", "flux_limiter", "positivity", "energy_fix", "conservation_projection"}))

		fl, _ := diag.LastMeta("flux_limiter")
		Expect(fl.Fields).To(HaveKeyWithValue("scheme", "mc"))
		Expect(fl.Fields).To(HaveKeyWithValue("vars", []string{"q", "T"}))
		ef, _ := diag.LastMeta("energy_fix")
		Expect(ef.Fields).To(HaveKeyWithValue("budget", []string{"dry_static", "latent", "kinetic"}))
	})

	It("clamps negative values without touching the input", func() {
		in := gcm.State{"q": {-1, 0.5}, "T": {-3}}
		step := middleware.WithPositivity(gcm.Identity, 0, "")
		st, _, err := step.Call(in, nil, &gcm.Params{}, 1, backend)
		Expect(err).NotTo(HaveOccurred())
		Expect(st["q"]).To(Equal(gcm.Array{0, 0.5}))
		Expect(st["T"]).To(Equal(gcm.Array{-3}))
		Expect(in["q"]).To(Equal(gcm.Array{-1, 0.5}))
	})

	It("diffuses named fields when coeff is non-zero", func() {
		in := gcm.State{"T": {0, 1, 0, 1}}
		step := middleware.WithHyperdiff(gcm.Identity, 0.1, 4, "T")
		st, _, err := step.Call(in, nil, gridParams(1), 1, backend)
		Expect(err).NotTo(HaveOccurred())
		lap := backend.Laplacian(in["T"], 1)
		for i := range in["T"] {
			Expect(st["T"][i]).To(BeNumerically("~", in["T"][i]-0.1*lap[i], 1e-12))
		}
	})

	It("records operator failures and leaves the field unchanged", func() {
		in := gcm.State{"q": {math.NaN()}, "u": {}}
		step := middleware.WithPositivity(gcm.Identity, 0, "", "q", "u")
		st, diag, err := step.Call(in, nil, &gcm.Params{}, 1, backend)
		Expect(err).NotTo(HaveOccurred())
		Expect(math.IsNaN(st["q"][0])).To(BeTrue())
		meta, _ := diag.LastMeta("positivity")
		Expect(meta.Fields["skipped"]).To(HaveLen(2))
	})

	It("exposes the inner step", func() {
		step := middleware.WithEnergyFix(gcm.Identity)
		w, ok := step.(gcm.Wrapper)
		Expect(ok).To(BeTrue())
		Expect(w.Unwrap()).NotTo(BeNil())
	})
})

var _ = Describe("Requirements check", func() {
	var core gcm.Step

	radius := requirements.Requirement{
		Where:     requirements.InParams,
		Path:      "spectral.radius",
		Kinds:     value.Numeric,
		Predicate: requirements.Positive,
	}

	BeforeEach(func() {
		core = requirements.Attach(gcm.StepFunc(func(s gcm.State, _ gcm.Forcing, _ *gcm.Params, _ float64, _ compute.Backend) (gcm.State, gcm.Diag, error) {
			return s, gcm.Diag{"inner": true}, nil
		}), radius)
	})

	It("fails fast before the inner step runs", func() {
		ran := false
		inner := requirements.Attach(gcm.StepFunc(func(s gcm.State, _ gcm.Forcing, _ *gcm.Params, _ float64, _ compute.Backend) (gcm.State, gcm.Diag, error) {
			ran = true
			return s, nil, nil
		}), radius)
		step := middleware.WithRequirementsCheck(inner, middleware.CheckOptions{MaxChecks: 2, RaiseOnError: true})
		_, _, err := step.Call(gcm.State{}, gcm.Forcing{}, &gcm.Params{}, 1, nil)
		Expect(err).To(MatchError(ContainSubstring("Requirements not satisfied")))
		Expect(errors.Is(err, requirements.ErrUnsatisfied)).To(BeTrue())
		Expect(ran).To(BeFalse())
	})

	It("records on the first max_checks calls only", func() {
		step := middleware.WithRequirementsCheck(core, middleware.CheckOptions{MaxChecks: 2, RecordWarnings: true})
		for call := 0; call < 2; call++ {
			_, diag, err := step.Call(gcm.State{}, gcm.Forcing{}, &gcm.Params{}, 1, nil)
			Expect(err).NotTo(HaveOccurred())
			records, ok := diag[gcm.RequirementsKey].([]requirements.Record)
			Expect(ok).To(BeTrue())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Call).To(Equal(call))
			Expect(records[0].MaxChecks).To(Equal(2))
			Expect(records[0].Checked).To(Equal(1))
			Expect(records[0].Errors).To(HaveLen(1))
		}
		_, diag, err := step.Call(gcm.State{}, gcm.Forcing{}, &gcm.Params{}, 1, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(diag).NotTo(HaveKey(gcm.RequirementsKey))
	})

	It("logs violations even when neither raising nor recording", func() {
		var buf bytes.Buffer
		step := middleware.WithRequirementsCheck(core, middleware.CheckOptions{
			MaxChecks: 1,
			Logger:    logging.New(&buf, slog.LevelDebug, false),
		})
		_, diag, err := step.Call(gcm.State{}, gcm.Forcing{}, &gcm.Params{}, 1, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(diag).NotTo(HaveKey(gcm.RequirementsKey))
		Expect(buf.String()).To(ContainSubstring("requirements not satisfied"))
		Expect(buf.String()).To(ContainSubstring("errors=1"))
	})

	It("records nothing when requirements are met", func() {
		step := middleware.WithRequirementsCheck(core, middleware.DefaultCheckOptions())
		params := &gcm.Params{Spectral: &gcm.Spectral{Radius: 6371229}}
		_, diag, err := step.Call(gcm.State{}, gcm.Forcing{}, params, 1, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(diag).NotTo(HaveKey(gcm.RequirementsKey))
		Expect(diag).To(HaveKeyWithValue("inner", true))
	})

	It("stops raising once the bound is reached", func() {
		step := middleware.WithRequirementsCheck(core, middleware.CheckOptions{MaxChecks: 1, RaiseOnError: true})
		_, _, err := step.Call(gcm.State{}, gcm.Forcing{}, &gcm.Params{}, 1, nil)
		Expect(err).To(HaveOccurred())
		_, _, err = step.Call(gcm.State{}, gcm.Forcing{}, &gcm.Params{}, 1, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("checks extra requirements and discovers through other wrappers", func() {
		wrapped := middleware.WithCFLGuard(core, 0.8, constantSpeed(0))
		extra := requirements.Requirement{Where: requirements.InState, Path: "T", Severity: requirements.SeverityWarn}
		step := middleware.WithRequirementsCheck(wrapped, middleware.CheckOptions{
			Extra:          []requirements.Requirement{extra},
			MaxChecks:      1,
			RaiseOnError:   true,
			RecordWarnings: true,
		})
		params := &gcm.Params{Spectral: &gcm.Spectral{Radius: 1}}
		_, diag, err := step.Call(gcm.State{}, gcm.Forcing{}, params, 1, nil)
		Expect(err).NotTo(HaveOccurred())
		records := diag[gcm.RequirementsKey].([]requirements.Record)
		Expect(records[0].Checked).To(Equal(2))
		Expect(records[0].Warnings).To(HaveLen(1))
		Expect(records[0].Errors).To(BeEmpty())
	})
})
