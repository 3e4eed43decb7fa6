package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages from the orchestrator into the Bubble Tea model.
type (
	serverLineMsg string
	promptMsg     string
	statusMsg     string
)

// TUI implements UI using Bubble Tea. It bridges the channel-based
// orchestrator with Bubble Tea's model/update/view loop.
type TUI struct {
	program   *tea.Program
	inputChan chan string

	// Synchronization for startup
	ready     chan struct{}
	readyOnce sync.Once

	// Shutdown coordination
	done     chan struct{}
	doneOnce sync.Once
}

// NewTUI creates a new Bubble Tea-based UI.
func NewTUI() *TUI {
	return &TUI{
		inputChan: make(chan string, 100),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Render queues a line for display. Called from the orchestrator goroutine.
func (t *TUI) Render(text string) {
	<-t.ready
	t.program.Send(serverLineMsg(text))
}

// RenderPrompt updates the prompt area.
func (t *TUI) RenderPrompt(text string) {
	<-t.ready
	t.program.Send(promptMsg(text))
}

// SetStatus sets the status bar text.
func (t *TUI) SetStatus(text string) {
	select {
	case <-t.ready:
		t.program.Send(statusMsg(text))
	default:
		// Not started yet, ignore
	}
}

// Input returns the channel for user input.
func (t *TUI) Input() <-chan string {
	return t.inputChan
}

// Run starts the TUI and blocks until exit.
func (t *TUI) Run() error {
	t.program = tea.NewProgram(
		newModel(t.inputChan),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	t.readyOnce.Do(func() {
		close(t.ready)
	})

	_, err := t.program.Run()

	t.doneOnce.Do(func() {
		close(t.done)
	})

	return err
}

// Done returns a channel that closes when the UI exits.
func (t *TUI) Done() <-chan struct{} {
	return t.done
}

// Quit signals the TUI to exit.
func (t *TUI) Quit() {
	select {
	case <-t.ready:
		if t.program != nil {
			t.program.Quit()
		}
	default:
		// Not started yet, just close done
		t.doneOnce.Do(func() {
			close(t.done)
		})
	}
}
