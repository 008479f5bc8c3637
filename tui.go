package clsort

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	checkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type spinner struct {
	frames []string
	index  int
}

func newSpinner() spinner {
	return spinner{frames: []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}}
}

func (s *spinner) tick() { s.index = (s.index + 1) % len(s.frames) }

func (s spinner) View() string { return s.frames[s.index] }

type tickMsg struct{}

type progressMsg struct{ current, total int }

type doneMsg struct {
	summary Summary
	err     error
}

type progressModel struct {
	spinner    spinner
	cur, total int
	done       *doneMsg
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m progressModel) Init() tea.Cmd { return tick() }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.spinner.tick()
		return m, tick()
	case progressMsg:
		m.cur, m.total = msg.current, msg.total
		return m, nil
	case doneMsg:
		m.done = &msg
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done != nil {
		return ""
	}
	return fmt.Sprintf("%s Processing... %d/%d\n", m.spinner.View(), m.cur, m.total)
}

type TUI struct {
	app         *App
	noAnimation bool
	out         io.Writer
	errOut      io.Writer
}

func NewTUI(app *App, noAnimation bool, out, errOut io.Writer) *TUI {
	return &TUI{app: app, noAnimation: noAnimation, out: out, errOut: errOut}
}

// Run processes root, showing a spinner on errOut while files are handled, then prints
// the summary to out and per-file errors to errOut.
func (t *TUI) Run(ctx context.Context, root string) (Summary, error) {
	if t.noAnimation {
		summary, err := t.app.Run(ctx, root)
		if err == nil {
			t.print(summary)
		}
		return summary, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(progressModel{spinner: newSpinner()},
		tea.WithOutput(t.errOut), tea.WithInput(nil), tea.WithContext(ctx))
	t.app.SetProgressCallback(func(c, total int) { p.Send(progressMsg{current: c, total: total}) })

	go func() {
		summary, err := t.app.Run(ctx, root)
		p.Send(doneMsg{summary: summary, err: err})
	}()

	final, err := p.Run()
	t.app.SetProgressCallback(nil)
	if err != nil {
		return Summary{}, err
	}

	m := final.(progressModel)
	if m.done == nil {
		return Summary{}, context.Canceled
	}
	if m.done.err == nil {
		t.print(m.done.summary)
	}
	return m.done.summary, m.done.err
}

func (t *TUI) print(s Summary) {
	fmt.Fprint(t.out, FormatSummary(s))
	fmt.Fprint(t.errOut, FormatFailures(s))
}

func FormatSummary(s Summary) string {
	var b strings.Builder
	if s.Message != "" {
		b.WriteString(headerStyle.Render(s.Message) + "\n")
	}

	label, style := "Modified:", successStyle
	if s.Check {
		label, style = "Would modify:", checkStyle
	}
	for _, f := range s.Modified {
		fmt.Fprintf(&b, "%s %s\n", style.Render(label), RelativePath(f))
	}
	for _, f := range s.Failed {
		fmt.Fprintf(&b, "%s %s\n", errorStyle.Render("Failed:"), RelativePath(f.Path))
	}

	verb := "modified"
	if s.Check {
		verb = "would modify"
	}
	fmt.Fprintf(&b, "\n%s\n", dimStyle.Render(fmt.Sprintf("Processed %d files, %s %d", s.Scanned, verb, len(s.Modified))))
	return b.String()
}

func FormatFailures(s Summary) string {
	var b strings.Builder
	for _, f := range s.Failed {
		fmt.Fprintf(&b, "%s %s: %v\n", errorStyle.Render("Error processing"), RelativePath(f.Path), f.Err)
	}
	return b.String()
}
