package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const scrollbackLimit = 10000

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
	echoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("71"))
	scrolledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))
)

// model is the Bubble Tea model: scrollback, prompt line, status bar,
// and an input line with history.
type model struct {
	lines  []string
	prompt string
	status string

	// Scroll offset from the bottom; 0 means live view.
	offset int

	input        textinput.Model
	history      []string
	historyIndex int // -1 = draft
	draft        string

	inputChan chan<- string

	width  int
	height int
}

func newModel(inputChan chan<- string) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Width = 80
	ti.Focus()

	return model{
		input:        ti,
		historyIndex: -1,
		inputChan:    inputChan,
		status:       "tern - not connected",
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 2

	case serverLineMsg:
		// Server output ignores screen-clear sequences; feeding them to
		// the scrollback would wipe the terminal.
		m.lines = append(m.lines, filterClearSequences(string(msg)))
		if len(m.lines) > scrollbackLimit {
			m.lines = m.lines[len(m.lines)-scrollbackLimit:]
		}

	case promptMsg:
		m.prompt = string(msg)

	case statusMsg:
		m.status = string(msg)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEnter:
			text := m.input.Value()
			m.input.SetValue("")
			m.pushHistory(text)
			// Echo locally; the server does not echo in line mode.
			m.lines = append(m.lines, echoStyle.Render("> "+text))
			m.offset = 0
			select {
			case m.inputChan <- text:
			default:
			}

		case tea.KeyUp:
			m.browseHistory(1)
		case tea.KeyDown:
			m.browseHistory(-1)

		case tea.KeyPgUp:
			m.offset += m.viewportHeight() / 2
			if max := len(m.lines) - 1; m.offset > max {
				m.offset = max
			}
		case tea.KeyPgDown:
			m.offset -= m.viewportHeight() / 2
			if m.offset < 0 {
				m.offset = 0
			}

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if m.offset < len(m.lines)-1 {
				m.offset += 3
			}
		case tea.MouseButtonWheelDown:
			m.offset -= 3
			if m.offset < 0 {
				m.offset = 0
			}
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	vh := m.viewportHeight()
	visible := m.visibleLines(vh)
	b.WriteString(strings.Join(visible, "\n"))
	for i := len(visible); i < vh; i++ {
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	b.WriteString(promptStyle.Render(m.prompt))
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	b.WriteByte('\n')

	status := m.status
	if m.offset > 0 {
		status += scrolledStyle.Render("  [scrolled]")
	}
	b.WriteString(statusStyle.Width(m.width).Render(status))

	return b.String()
}

// viewportHeight is the scrollback area height: everything minus the
// prompt, input, and status rows.
func (m model) viewportHeight() int {
	h := m.height - 3
	if h < 1 {
		return 1
	}
	return h
}

// visibleLines returns the slice of scrollback currently on screen.
func (m model) visibleLines(vh int) []string {
	end := len(m.lines) - m.offset
	if end < 0 {
		end = 0
	}
	start := end - vh
	if start < 0 {
		start = 0
	}
	return m.lines[start:end]
}

// pushHistory records submitted input and resets history browsing.
func (m *model) pushHistory(text string) {
	if text != "" && (len(m.history) == 0 || m.history[len(m.history)-1] != text) {
		m.history = append(m.history, text)
	}
	m.historyIndex = -1
	m.draft = ""
}

// browseHistory moves through history; dir is +1 for older, -1 for newer.
func (m *model) browseHistory(dir int) {
	if len(m.history) == 0 {
		return
	}

	if m.historyIndex == -1 {
		if dir < 0 {
			return
		}
		m.draft = m.input.Value()
		m.historyIndex = len(m.history) - 1
	} else {
		m.historyIndex -= dir
	}

	if m.historyIndex < 0 {
		m.historyIndex = 0
	}
	if m.historyIndex >= len(m.history) {
		// Walked past the newest entry, restore the draft.
		m.historyIndex = -1
		m.input.SetValue(m.draft)
		m.input.CursorEnd()
		return
	}

	m.input.SetValue(m.history[m.historyIndex])
	m.input.CursorEnd()
}

// filterClearSequences removes ANSI sequences that would clear the screen.
func filterClearSequences(line string) string {
	line = strings.ReplaceAll(line, "\x1b[2J", "")   // Clear entire screen
	line = strings.ReplaceAll(line, "\x1b[H", "")    // Move cursor to home
	line = strings.ReplaceAll(line, "\x1b[0;0H", "") // Move cursor to 0,0
	line = strings.ReplaceAll(line, "\x1b[1;1H", "") // Move cursor to 1,1
	return line
}
