// Package ui provides the terminal front-ends: a plain console UI and a
// Bubble Tea TUI with scrollback, status bar, and input history.
package ui

// UI defines the terminal layer.
type UI interface {
	// Core rendering
	Render(text string)       // Render a complete line (with newline)
	RenderPrompt(text string) // Render a prompt (no newline, overwrites previous prompt)
	Input() <-chan string     // Stream from user
	Run() error
	Quit()
	Done() <-chan struct{} // Signals when UI exits

	// Status bar (no-op for ConsoleUI)
	SetStatus(text string)
}
