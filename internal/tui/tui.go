package tui

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ProgressStep is one line of the progress view
type ProgressStep struct {
	Label  string
	Status string // "active", "done"
}

// ProgressModel is the bubbletea model shown while a rebase runs
type ProgressModel struct {
	title     string
	steps     []ProgressStep
	spinner   spinner.Model
	done      bool
	canceling bool
	err       error
	cancel    context.CancelFunc
	styles    progressStyles
}

type progressStyles struct {
	spinnerStyle lipgloss.Style
	doneStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	titleStyle   lipgloss.Style
	dimStyle     lipgloss.Style
}

// StepMsg starts a new step; the previous one is marked done
type StepMsg struct {
	Label string
}

// WorkDoneMsg ends the progress view
type WorkDoneMsg struct {
	Err error
}

// NewProgressModel creates a progress model. cancel is called when the user
// presses ctrl+c; the view stays up until WorkDoneMsg arrives.
func NewProgressModel(title string, cancel context.CancelFunc) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return ProgressModel{
		title:   title,
		spinner: s,
		cancel:  cancel,
		styles: progressStyles{
			spinnerStyle: lipgloss.NewStyle().Foreground(ColorAccent),
			doneStyle:    lipgloss.NewStyle().Foreground(ColorSuccess),
			errorStyle:   lipgloss.NewStyle().Foreground(ColorFailure),
			titleStyle:   lipgloss.NewStyle().Foreground(ColorTitle).Bold(true),
			dimStyle:     lipgloss.NewStyle().Foreground(ColorDim),
		},
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.canceling {
			m.canceling = true
			if m.cancel != nil {
				m.cancel()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StepMsg:
		m.finishActive()
		m.steps = append(m.steps, ProgressStep{Label: msg.Label, Status: "active"})

	case WorkDoneMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.finishActive()
		}
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *ProgressModel) finishActive() {
	if n := len(m.steps); n > 0 && m.steps[n-1].Status == "active" {
		m.steps[n-1].Status = "done"
	}
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.titleStyle.Render(m.title))
	b.WriteString("\n")

	for _, step := range m.steps {
		var icon string
		label := step.Label
		switch {
		case step.Status == "done":
			icon = m.styles.doneStyle.Render("✓")
		case m.done && m.err != nil:
			icon = m.styles.errorStyle.Render("✗")
		case m.done:
			icon = m.styles.dimStyle.Render("○")
		default:
			icon = m.spinner.View()
			label = m.styles.spinnerStyle.Render(label + "...")
		}
		b.WriteString("  " + icon + " " + label + "\n")
	}

	if m.canceling && !m.done {
		b.WriteString(m.styles.dimStyle.Render("  Canceling, cleaning up..."))
		b.WriteString("\n")
	}
	return b.String()
}

// IsTTY returns true if we can use a TTY for interactive TUI
func IsTTY() bool {
	// First check if stdin/stderr are terminals
	if !((isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))) {
		return false
	}
	// Also try to open /dev/tty to verify it's actually available
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Step reports the start of a named step of work
type Step func(label string)

// RunProgress runs work while showing a spinner on stderr. Console logging on
// splog is muted while the view owns the terminal. work always runs to
// completion before RunProgress returns, even after ctrl+c.
func RunProgress(ctx context.Context, splog *Splog, title string, work func(ctx context.Context, step Step) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title, cancel), tea.WithInput(os.Stdin), tea.WithOutput(os.Stderr))

	if splog != nil {
		splog.SetQuiet(true)
		defer splog.SetQuiet(false)
	}

	result := make(chan error, 1)
	go func() {
		err := work(ctx, func(label string) { p.Send(StepMsg{Label: label}) })
		result <- err
		p.Send(WorkDoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		return <-result
	}
	return <-result
}

// RunProgressSimple runs work without a TUI, logging each step
func RunProgressSimple(ctx context.Context, splog *Splog, title string, work func(ctx context.Context, step Step) error) error {
	splog.Info("%s", title)
	return work(ctx, func(label string) {
		splog.Info("  ⋯ %s...", label)
	})
}
