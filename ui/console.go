package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleUI is the plain stdin/stdout fallback for terminals where the
// full-screen UI is unwanted. The server's prompt occupies the bottom
// line and is redrawn in place; server lines push it up.
type ConsoleUI struct {
	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	prompt string // currently displayed prompt, "" when none

	inputChan chan string
	done      chan struct{}
	doneOnce  sync.Once
}

// NewConsoleUI builds a console UI over stdin and stdout.
func NewConsoleUI() *ConsoleUI {
	return newConsoleUI(os.Stdin, os.Stdout)
}

func newConsoleUI(in io.Reader, out io.Writer) *ConsoleUI {
	return &ConsoleUI{
		in:        in,
		out:       out,
		inputChan: make(chan string, 2048),
		done:      make(chan struct{}),
	}
}

// Render prints a server line above the prompt: the prompt line is
// cleared, the text printed, and the prompt redrawn underneath.
func (c *ConsoleUI) Render(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.erasePrompt()
	fmt.Fprintln(c.out, text)
	c.drawPrompt()
}

// RenderPrompt replaces the prompt line. A repeated identical prompt is
// left alone so the user's in-progress typing is not wiped.
func (c *ConsoleUI) RenderPrompt(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if text == c.prompt {
		return
	}
	c.erasePrompt()
	c.prompt = text
	c.drawPrompt()
}

func (c *ConsoleUI) erasePrompt() {
	if c.prompt != "" {
		fmt.Fprint(c.out, "\r\033[K")
	}
}

func (c *ConsoleUI) drawPrompt() {
	if c.prompt != "" {
		fmt.Fprint(c.out, c.prompt)
	}
}

// Input returns the channel carrying user-typed lines.
func (c *ConsoleUI) Input() <-chan string {
	return c.inputChan
}

// Run scans input lines until EOF or Quit.
func (c *ConsoleUI) Run() error {
	scanner := bufio.NewScanner(c.in)
	scanDone := make(chan error, 1)

	go func() {
		for scanner.Scan() {
			select {
			case <-c.done:
				scanDone <- nil
				return
			default:
			}
			c.inputChan <- scanner.Text()
		}
		scanDone <- scanner.Err()
	}()

	select {
	case <-c.done:
		return nil
	case err := <-scanDone:
		return err
	}
}

// Done returns a channel that closes when the UI is done.
func (c *ConsoleUI) Done() <-chan struct{} {
	return c.done
}

// Quit requests the console UI to exit.
func (c *ConsoleUI) Quit() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// SetStatus is a no-op in simple mode.
func (c *ConsoleUI) SetStatus(text string) {}
