package progressui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"media-pipeline/internal/batch"
	"media-pipeline/internal/logging"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	maxBarWidth = 60
	padding     = 2
	plainStep   = 10
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

type progressMsg batch.Progress

type barModel struct {
	title     string
	bar       progress.Model
	last      batch.Progress
	done      bool
	interrupt func()
}

func newModel(title string, interrupt func()) barModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = maxBarWidth
	return barModel{title: title, bar: bar, interrupt: interrupt}
}

func (m barModel) Init() tea.Cmd {
	return nil
}

func (m barModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-padding*2, maxBarWidth)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.interrupt != nil {
			m.interrupt()
		}
		return m, nil
	case progressMsg:
		m.last = batch.Progress(msg)
		if m.last.Status.IsTerminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m barModel) View() string {
	pad := strings.Repeat(" ", padding)
	var b strings.Builder

	b.WriteString(pad + titleStyle.Render(m.title) + "\n")
	b.WriteString(pad + m.bar.ViewAs(m.last.Percent/100) + "\n")

	counts := fmt.Sprintf("%d/%d", m.last.Completed, m.last.Total)
	if m.last.Message != "" {
		counts += "  " + m.last.Message
	}
	b.WriteString(pad + mutedStyle.Render(counts) + "\n")

	if m.done {
		if m.last.Error != "" {
			b.WriteString(pad + errorStyle.Render("failed: "+m.last.Error) + "\n")
		} else {
			b.WriteString(pad + okStyle.Render(string(m.last.Status)) + "\n")
		}
	}
	return b.String()
}

// UI shows batch progress on the terminal. When stderr is not a terminal
// it prints a line every ten percent instead.
type UI struct {
	program *tea.Program
	done    chan struct{}

	mu          sync.Mutex
	plain       io.Writer
	title       string
	lastPercent int
}

// New creates a progress display for a batch titled title. interrupt is
// called when the user presses Ctrl+C while the bar owns the terminal.
func New(title string, interrupt func()) *UI {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return newPlain(os.Stderr, title)
	}

	opts := []tea.ProgramOption{tea.WithOutput(os.Stderr)}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, tea.WithInput(nil))
	}
	return newTerminal(tea.NewProgram(newModel(title, interrupt), opts...), title)
}

func newTerminal(program *tea.Program, title string) *UI {
	return &UI{program: program, done: make(chan struct{}), title: title}
}

func newPlain(w io.Writer, title string) *UI {
	return &UI{plain: w, title: title, lastPercent: -plainStep}
}

// Start begins rendering. It returns immediately.
func (u *UI) Start() {
	if u.program == nil {
		return
	}
	go func() {
		defer close(u.done)
		if _, err := u.program.Run(); err != nil {
			logging.Warn("Progress display for %s stopped: %v", u.title, err)
		}
	}()
}

// Observe is a batch.Observer.
func (u *UI) Observe(p batch.Progress) {
	if u.program != nil {
		u.program.Send(progressMsg(p))
		return
	}
	u.printPlain(p)
}

// Wait blocks until the display has shown a terminal state. It stops the
// display if the batch ended without one.
func (u *UI) Wait() {
	if u.program == nil {
		return
	}
	u.program.Quit()
	<-u.done
}

func (u *UI) printPlain(p batch.Progress) {
	u.mu.Lock()
	defer u.mu.Unlock()

	pct := int(p.Percent)
	terminal := p.Status.IsTerminal()
	if !terminal && pct < u.lastPercent+plainStep {
		return
	}
	u.lastPercent = pct - pct%plainStep

	line := fmt.Sprintf("%s: %3d%% (%d/%d)", u.title, pct, p.Completed, p.Total)
	if terminal {
		line += " " + string(p.Status)
		if p.Error != "" {
			line += ": " + p.Error
		}
	}
	fmt.Fprintln(u.plain, line)
}
