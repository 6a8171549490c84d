package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/san-kum/gcmi/internal/config"
	"github.com/san-kum/gcmi/internal/experiment"
	"github.com/san-kum/gcmi/internal/hooks"
	"github.com/san-kum/gcmi/internal/logging"
	"github.com/san-kum/gcmi/internal/runner"
	"github.com/san-kum/gcmi/internal/storage"
	"github.com/san-kum/gcmi/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	configFile  string
	preset      string
	steps       int
	dt          float64
	cflMax      float64
	hyperdiff   float64
	maxChecks   int
	noRaise     bool
	timingsCSV  string
	plot        bool
	metricsAddr string
	showDiag    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gcmi",
		Short:         "middleware pipeline runner for model step functions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logging.Setup(logLevel)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gcmi", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [step]",
		Short: "run a pipeline and store the report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPipeline,
	}
	addPipelineFlags(runCmd)
	runCmd.Flags().StringVar(&timingsCSV, "timings-csv", "", "write per-step timings to this CSV file")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot step timings after the run")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	liveCmd := &cobra.Command{
		Use:   "live [step]",
		Short: "run a pipeline with live progress",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addPipelineFlags(liveCmd)

	checkCmd := &cobra.Command{
		Use:   "check [step]",
		Short: "validate declared requirements without running",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkPipeline,
	}
	addPipelineFlags(checkCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&showDiag, "diag", false, "print the last diag")

	presetsCmd := &cobra.Command{
		Use:   "presets [step]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListSteps()
			if len(args) > 0 {
				names = args
			}
			for _, step := range names {
				presets := config.ListPresets(step)
				if len(presets) == 0 {
					fmt.Printf("no presets for step: %s\n", step)
					continue
				}
				fmt.Printf("presets for %s:\n", step)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, checkCmd, listCmd, showCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusFailed.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&cflMax, "cfl-max", config.DefaultCFLMax, "CFL threshold (<= 0 disables substepping)")
	cmd.Flags().Float64Var(&hyperdiff, "hyperdiff", 0, "append hyperdiffusion with this coefficient")
	cmd.Flags().IntVar(&maxChecks, "max-checks", config.DefaultMaxChecks, "validate requirements on the first N calls")
	cmd.Flags().BoolVar(&noRaise, "no-raise", false, "record requirement errors instead of failing")
}

// loadConfig resolves the configuration: preset, then config file, then
// explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	step := config.DefaultStep
	if len(args) > 0 {
		step = args[0]
	}

	cfg := config.DefaultConfig()
	cfg.Step = step
	if preset != "" {
		p := config.GetPreset(step, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(step))
		}
		cfg = p
	}
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
		if len(args) > 0 {
			cfg.Step = step
		}
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Time = &config.TimeConfig{Dt: dt}
	}
	if flags.Changed("cfl-max") {
		if cfg.Middleware.CFL == nil {
			cfg.Middleware.CFL = &config.CFLConfig{WaveSpeed: "max_abs", Field: "u"}
		}
		cfg.Middleware.CFL.CFLMax = cflMax
	}
	if flags.Changed("hyperdiff") {
		cfg.Middleware.Transforms = append(cfg.Middleware.Transforms, config.TransformConfig{
			Name:  "hyperdiff",
			Coeff: hyperdiff,
		})
	}
	if flags.Changed("max-checks") || flags.Changed("no-raise") {
		if cfg.Middleware.Requirements == nil {
			cfg.Middleware.Requirements = &config.RequirementsConfig{
				MaxChecks:      config.DefaultMaxChecks,
				RaiseOnError:   true,
				RecordWarnings: true,
			}
		}
		if flags.Changed("max-checks") {
			cfg.Middleware.Requirements.MaxChecks = maxChecks
		}
		if noRaise {
			cfg.Middleware.Requirements.RaiseOnError = false
		}
	}
	return cfg, cfg.Validate()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}
	defer exp.Close()
	if err := exp.OpenHooks(); err != nil {
		return err
	}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		exp.AddObserver(hooks.NewPrometheus(reg))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server", "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("serving metrics", "addr", metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, report, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	runID, err := st.Save(storage.RunMetadata{
		Step:     cfg.Step,
		Preset:   preset,
		Steps:    cfg.Steps,
		Dt:       dtOf(cfg),
		Backend:  cfg.Backend,
		Layers:   storage.Layers(report.LastDiag),
		TotalSec: report.TotalSec(),
		MeanSec:  report.MeanSec(),
	}, report)
	if err != nil {
		return err
	}

	if timingsCSV != "" {
		f, err := os.Create(timingsCSV)
		if err != nil {
			return err
		}
		if err := storage.WriteTimingsCSV(f, report); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	fmt.Println(viz.Summary(cfg.Step, report))
	if plot {
		fmt.Println(viz.PlotTimings(report.Timings.PerStepSec, cfg.Step))
	}
	fmt.Printf("run: %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}
	defer exp.Close()

	m := viz.NewLiveModel(cfg.Step, cfg.Steps, func(ctx context.Context, obs runner.Observer) (*runner.Report, error) {
		exp.AddObserver(obs)
		_, report, err := exp.Run(ctx)
		return report, err
	})
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}

	report, finished, runErr := final.(viz.LiveModel).Result()
	if !finished {
		fmt.Println(viz.StatusWarn.Render("cancelled"))
		return nil
	}
	if runErr != nil {
		return runErr
	}
	fmt.Println(viz.Summary(cfg.Step, report))
	return nil
}

func checkPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}
	defer exp.Close()

	res, checked := exp.Check()
	fmt.Printf("checked %d requirements\n", checked)
	for _, v := range res.Warnings {
		fmt.Println(viz.StatusWarn.Render("[WARN] ") + string(v.Where) + "." + v.Path + ": " + v.Message)
	}
	if err := res.Err(); err != nil {
		return err
	}
	fmt.Println(viz.StatusRunning.Render("ok"))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTEP\tTIME\tSTEPS\tDT\tMEAN\tLAYERS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4g\t%.1fµs\t%s\n",
			run.ID,
			run.Step,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.MeanSec*1e6,
			strings.Join(run.Layers, ","),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	report, err := st.LoadReport(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.Summary(meta.Step, report))
	fmt.Println(viz.PlotTimings(report.Timings.PerStepSec, meta.Step))
	if showDiag {
		fmt.Println(viz.RenderDiag(report.LastDiag))
	}
	return nil
}

func dtOf(cfg *config.Config) float64 {
	if cfg.Time == nil {
		return 1.0
	}
	return cfg.Time.Dt
}
