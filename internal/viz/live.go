package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/runner"
)

const historyCapacity = 600

type progressMsg struct {
	k        int
	stepSec  float64
	substeps int
}

type doneMsg struct {
	report *runner.Report
	err    error
}

// RunFunc executes a run, notifying obs after every step.
type RunFunc func(ctx context.Context, obs runner.Observer) (*runner.Report, error)

// progress forwards step notifications to the UI.
type progress struct {
	ctx context.Context
	ch  chan tea.Msg
}

func (p *progress) Observe(k int, _ gcm.State, diag gcm.Diag) error {
	msg := progressMsg{k: k, substeps: 1}
	msg.stepSec, _ = diag.StepSeconds()
	if meta, ok := diag.LastMeta("cfl_guard"); ok {
		if n, ok := meta.Get("n_substeps"); ok {
			if v, ok := n.(int); ok {
				msg.substeps = v
			}
		}
	}
	select {
	case p.ch <- msg:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// LiveModel shows run progress while the run executes in the background.
type LiveModel struct {
	title    string
	total    int
	done     int
	timings  []float64
	substeps int
	report   *runner.Report
	err      error
	finished bool

	run    RunFunc
	prog   *progress
	cancel context.CancelFunc
}

func NewLiveModel(title string, total int, run RunFunc) LiveModel {
	ctx, cancel := context.WithCancel(context.Background())
	return LiveModel{
		title:   title,
		total:   total,
		timings: make([]float64, 0, historyCapacity),
		run:     run,
		prog:    &progress{ctx: ctx, ch: make(chan tea.Msg)},
		cancel:  cancel,
	}
}

func (m LiveModel) Init() tea.Cmd {
	return tea.Batch(m.start(), m.wait())
}

func (m LiveModel) start() tea.Cmd {
	return func() tea.Msg {
		report, err := m.run(m.prog.ctx, m.prog)
		return doneMsg{report: report, err: err}
	}
}

func (m LiveModel) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.prog.ch:
			return msg
		case <-m.prog.ctx.Done():
			return nil
		}
	}
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		}
	case progressMsg:
		m.done = msg.k + 1
		m.substeps = msg.substeps
		m.timings = append(m.timings, msg.stepSec)
		if len(m.timings) > historyCapacity {
			m.timings = m.timings[len(m.timings)-historyCapacity:]
		}
		return m, m.wait()
	case doneMsg:
		m.finished = true
		m.report = msg.report
		m.err = msg.err
		m.cancel()
		return m, nil
	}
	return m, nil
}

func (m LiveModel) View() string {
	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(m.title)) + "\n\n")

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.finished && m.err != nil:
		status = StatusFailed.Render("FAILED")
	case m.finished:
		status = StatusRunning.Render("DONE")
	}
	s.WriteString(status + "\n\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	s.WriteString(ProgressBar(pct, 40) + fmt.Sprintf(" %d/%d\n\n", m.done, m.total))

	if len(m.timings) > 1 {
		ms := make([]float64, len(m.timings))
		for i, v := range m.timings {
			ms[i] = v * 1e3
		}
		chart := asciigraph.Plot(ms, asciigraph.Height(4), asciigraph.Width(40), asciigraph.Caption("ms/step"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(MetricLabel.Render("Substeps") + MetricValue.Render(fmt.Sprintf("%d", m.substeps)) + "\n")
	if m.err != nil {
		s.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("q: quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(s.String())
}

// Result returns the outcome once the run has finished.
func (m LiveModel) Result() (*runner.Report, bool, error) {
	return m.report, m.finished, m.err
}
