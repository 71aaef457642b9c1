package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/ports"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	changedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

const recentLines = 6

type startMsg struct{ total int }

type fileMsg struct{ report ports.FileReport }

type doneMsg struct{}

type model struct {
	title   string
	base    string
	bar     progress.Model
	spin    spinner.Model
	total   int
	seen    int
	changed int
	failed  int
	running bool
	recent  []string

	onInterrupt func()
}

func initialModel(title, base string, onInterrupt func()) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{
		title:       title,
		base:        base,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spin:        s,
		onInterrupt: onInterrupt,
	}
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-20, 10), 80)
	case startMsg:
		m.total, m.seen, m.changed, m.failed = msg.total, 0, 0, 0
		m.running = true
		return m, m.bar.SetPercent(0)
	case fileMsg:
		m.seen++
		line := ""
		switch msg.report.Outcome {
		case ports.OutcomeChanged:
			m.changed++
			line = changedStyle.Render("~ " + helpers.DisplayPath(msg.report.Path, m.base))
		case ports.OutcomeFailed:
			m.failed++
			line = failedStyle.Render("! " + helpers.DisplayPath(msg.report.Path, m.base))
		}
		if line != "" {
			m.recent = append(m.recent, line)
			if len(m.recent) > recentLines {
				m.recent = m.recent[len(m.recent)-recentLines:]
			}
		}
		if m.total > 0 {
			return m, m.bar.SetPercent(float64(m.seen) / float64(m.total))
		}
	case doneMsg:
		m.running = false
		return m, m.bar.SetPercent(1)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	head := titleStyle.Render(m.title)
	if m.running {
		head = m.spin.View() + " " + head
	}
	b.WriteString(head + "\n\n")
	b.WriteString(m.bar.View() + "\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%d/%d files | %d changed | %d failed", m.seen, m.total, m.changed, m.failed)) + "\n")
	for _, line := range m.recent {
		b.WriteString(line + "\n")
	}
	return b.String()
}

// Progress shows a live view of a run and implements ports.Progress.
type Progress struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
	err     error
}

var _ ports.Progress = (*Progress)(nil)

// StartProgress launches the view on out. onInterrupt runs when the user
// presses q or ctrl+c.
func StartProgress(out io.Writer, title, base string, onInterrupt func()) *Progress {
	p := &Progress{done: make(chan struct{})}
	p.program = tea.NewProgram(initialModel(title, base, onInterrupt), tea.WithOutput(out), tea.WithInput(os.Stdin))
	go func() {
		defer close(p.done)
		_, p.err = p.program.Run()
	}()
	return p
}

func (p *Progress) Start(total int)              { p.program.Send(startMsg{total: total}) }
func (p *Progress) File(report ports.FileReport) { p.program.Send(fileMsg{report: report}) }
func (p *Progress) Done()                        { p.program.Send(doneMsg{}) }

// Stop closes the view and waits for the terminal to be restored.
func (p *Progress) Stop() error {
	p.once.Do(p.program.Quit)
	<-p.done
	return p.err
}

// UseTUI resolves the --ui flag: "on", "off" or "auto", where auto means
// f is a terminal.
func UseTUI(mode string, f *os.File) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		return term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("--ui must be one of auto, on, off; got %q", mode)
}
