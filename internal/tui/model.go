// Package tui provides the Bubble Tea chat interface for lawbot.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/lawbot0/lawbot/internal/pipeline"
	"github.com/lawbot0/lawbot/internal/session"
)

// State represents the TUI state machine.
type State int

const (
	StateInput    State = iota // Awaiting user input
	StateThinking              // Pipeline running
)

// Memory bounds to prevent unbounded growth.
const (
	maxMessages = 200
	maxHistory  = 100
)

// askTimeout bounds one full pipeline turn.
const askTimeout = 2 * time.Minute

// Display role constants.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleTemplate  = "template"
	roleSystem    = "system"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	helpLines      = 1
	promptLines    = 1
	minViewport    = 3
)

// Message is a transcript entry for display. The pipeline's session
// remains the source of truth for model context; this slice only drives
// rendering.
type Message struct {
	Role string
	Text string
}

// keyMap holds key bindings for the help bar.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Reset      key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Reset:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset chat")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
	}
}

// Model is the Bubble Tea model for the chat surface.
type Model struct {
	input      textarea.Model
	history    []string
	historyIdx int

	state     State
	lastCtrlC time.Time

	spinner  spinner.Model
	viewBuf  strings.Builder
	messages []Message

	viewport viewport.Model
	help     help.Model
	keys     keyMap

	askCancel context.CancelFunc
	askSeq    int

	pipeline *pipeline.Pipeline
	session  *session.Session

	ctx       context.Context
	ctxCancel context.CancelFunc

	width  int
	height int

	styles   Styles
	markdown *markdownRenderer
}

// addMessage appends a transcript entry and enforces maxMessages.
func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// New creates a Model. ctx must be the same context passed to
// tea.WithContext so cancellation stays consistent.
func New(ctx context.Context, p *pipeline.Pipeline, sess *session.Session) (*Model, error) {
	if p == nil {
		return nil, errors.New("tui.New: pipeline is required")
	}
	if sess == nil {
		return nil, errors.New("tui.New: session is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Ask a legal question..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{Focused: cleanStyle, Blurred: cleanStyle})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{} // keys are routed explicitly in handleKey

	return &Model{
		pipeline:  p,
		session:   sess,
		ctx:       ctx,
		ctxCancel: cancel,
		input:     ta,
		spinner:   sp,
		viewport:  vp,
		help:      help.New(),
		keys:      newKeyMap(),
		styles:    DefaultStyles(),
		history:   make([]string, 0, maxHistory),
		markdown:  newMarkdownRenderer(80),
		width:     80,
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(),
	)
}
