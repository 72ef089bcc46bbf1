package progressui

import (
	"bytes"
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"media-pipeline/internal/batch"
	"media-pipeline/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelUpdate(t *testing.T) {
	interrupted := false
	m := newModel("thumbnails", func() { interrupted = true })

	next, cmd := m.Update(progressMsg(batch.Progress{
		Status: model.StatusRunning, Completed: 3, Total: 10, Percent: 30, Message: "a.jpg",
	}))
	m = next.(barModel)
	if cmd != nil || m.done {
		t.Fatal("running progress ended the display")
	}
	view := m.View()
	for _, want := range []string{"thumbnails", "3/10", "a.jpg"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(barModel)
	if !interrupted {
		t.Error("Ctrl+C did not call interrupt")
	}

	next, cmd = m.Update(progressMsg(batch.Progress{
		Status: model.StatusCompleted, Completed: 10, Total: 10, Percent: 100,
	}))
	m = next.(barModel)
	if !m.done || cmd == nil {
		t.Fatal("terminal progress did not quit")
	}
	if !strings.Contains(m.View(), "completed") {
		t.Errorf("final view = %s", m.View())
	}
}

func TestModelFailedView(t *testing.T) {
	m := newModel("optimize", nil)
	next, _ := m.Update(progressMsg(batch.Progress{Status: model.StatusFailed, Error: "pool not running"}))
	if view := next.(barModel).View(); !strings.Contains(view, "failed: pool not running") {
		t.Errorf("View() = %s", view)
	}
}

func TestModelWindowSize(t *testing.T) {
	m := newModel("x", nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	if w := next.(barModel).bar.Width; w != 26 {
		t.Errorf("bar width = %d, want 26", w)
	}
	next, _ = m.Update(tea.WindowSizeMsg{Width: 300, Height: 10})
	if w := next.(barModel).bar.Width; w != maxBarWidth {
		t.Errorf("bar width = %d, want %d", w, maxBarWidth)
	}
}

func TestPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	ui := newPlain(&buf, "analyze")
	ui.Start()

	for i := 0; i <= 20; i++ {
		ui.Observe(batch.Progress{Status: model.StatusRunning, Completed: i, Total: 20, Percent: float64(i) * 5})
	}
	ui.Observe(batch.Progress{Status: model.StatusCompleted, Completed: 20, Total: 20, Percent: 100})
	ui.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// 0, 10, ..., 100 while running plus the final line.
	if len(lines) != 12 {
		t.Fatalf("got %d lines, want 12:\n%s", len(lines), buf.String())
	}
	if lines[0] != "analyze:   0% (0/20)" {
		t.Errorf("first line = %q", lines[0])
	}
	if last := lines[len(lines)-1]; last != "analyze: 100% (20/20) completed" {
		t.Errorf("last line = %q", last)
	}
}

func TestPlainFailure(t *testing.T) {
	var buf bytes.Buffer
	ui := newPlain(&buf, "enhance")
	ui.Observe(batch.Progress{Status: model.StatusFailed, Completed: 1, Total: 4, Percent: 25, Error: "cancelled"})
	if got := strings.TrimSpace(buf.String()); got != "enhance:  25% (1/4) failed: cancelled" {
		t.Errorf("output = %q", got)
	}
}

func TestTerminalRunErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	program := tea.NewProgram(newModel("thumbnails", nil),
		tea.WithContext(ctx), tea.WithInput(nil), tea.WithOutput(io.Discard))
	ui := newTerminal(program, "thumbnails")
	ui.Start()

	select {
	case <-ui.done:
	case <-time.After(5 * time.Second):
		t.Fatal("display did not stop")
	}
	if !strings.Contains(buf.String(), "Progress display for thumbnails stopped") {
		t.Errorf("log output = %q", buf.String())
	}
}
