package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/lawbot0/lawbot/internal/pipeline"
)

// Slash command constants.
const (
	cmdHelp  = "/help"
	cmdReset = "/reset"
	cmdExit  = "/exit"
	cmdQuit  = "/quit"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		inputHeight := m.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(vpHeight)
		m.input.SetWidth(msg.Width - 4)
		m.help.SetWidth(msg.Width)
		m.markdown.UpdateWidth(msg.Width)

		m.rebuildViewportContent()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateThinking {
			m.rebuildViewportContent()
		}
		return m, cmd

	case askStartedMsg:
		if msg.seq != m.askSeq {
			// Turn was canceled before its goroutine registered.
			msg.cancel()
			return m, nil
		}
		m.askCancel = msg.cancel
		return m, awaitAsk(msg.seq, msg.resultCh)

	case askDoneMsg:
		if msg.seq != m.askSeq {
			return m, nil
		}
		m.finishAsk()
		m.addMessage(answerMessage(msg.answer))
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case askErrorMsg:
		if msg.seq != m.askSeq {
			return m, nil
		}
		m.finishAsk()
		switch {
		case errors.Is(msg.err, context.Canceled):
			m.addMessage(Message{Role: roleSystem, Text: "(Canceled)"})
		case errors.Is(msg.err, context.DeadlineExceeded):
			m.addMessage(Message{Role: roleError, Text: "The answer took too long. Please try again."})
		default:
			m.addMessage(Message{Role: roleError, Text: msg.err.Error()})
		}
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// finishAsk returns to the input state and releases the turn context.
func (m *Model) finishAsk() {
	m.state = StateInput
	if m.askCancel != nil {
		m.askCancel()
		m.askCancel = nil
	}
}

// answerMessage picks the display role for a pipeline answer.
func answerMessage(a pipeline.Answer) Message {
	switch a.Kind {
	case pipeline.KindTemplate:
		return Message{Role: roleTemplate, Text: a.Text}
	case pipeline.KindError:
		return Message{Role: roleError, Text: a.Text}
	default:
		return Message{Role: roleAssistant, Text: a.Text}
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			return m, m.cleanup()
		case 'r':
			return m.handleReset()
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		if m.state == StateInput && k.Mod&tea.ModShift == 0 {
			return m.handleSubmit()
		}

	case tea.KeyUp:
		if m.state == StateInput && m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}

	case tea.KeyDown:
		if m.state == StateInput && m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}

	case tea.KeyEscape:
		if m.state == StateThinking {
			m.cancelAsk()
			m.state = StateInput
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second quits.
	if now.Sub(m.lastCtrlC) < time.Second {
		return m, m.cleanup()
	}
	m.lastCtrlC = now

	switch m.state {
	case StateInput:
		m.input.Reset()
	case StateThinking:
		m.cancelAsk()
		m.state = StateInput
		m.addMessage(Message{Role: roleSystem, Text: "(Canceled)"})
		m.rebuildViewportContent()
	}
	return m, nil
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}

	if strings.HasPrefix(query, "/") {
		return m.handleSlashCommand(query)
	}

	m.history = append(m.history, query)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.historyIdx = len(m.history)

	m.addMessage(Message{Role: roleUser, Text: query})
	m.input.Reset()
	m.state = StateThinking
	m.rebuildViewportContent()
	m.viewport.GotoBottom()

	m.askSeq++
	return m, tea.Batch(m.spinner.Tick, m.ask(m.askSeq, query))
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case cmdHelp:
		m.addMessage(Message{
			Role: roleSystem,
			Text: "Commands: " + cmdHelp + ", " + cmdReset + ", " + cmdExit + "\nShortcuts:\n  Enter: send message\n  Shift+Enter: new line\n  Ctrl+R: reset conversation\n  Ctrl+C: cancel/clear\n  Ctrl+D: exit\n  Up/Down: history\n  PgUp/PgDn: scroll",
		})
	case cmdReset:
		return m.handleReset()
	case cmdExit, cmdQuit:
		return m, m.cleanup()
	default:
		m.addMessage(Message{Role: roleError, Text: "Unknown command: " + cmd})
	}
	m.input.Reset()
	m.rebuildViewportContent()
	return m, nil
}

// handleReset clears both the display transcript and the pipeline's
// conversation history. Ignored while a turn is in flight so the session
// is never reset mid-pipeline.
func (m *Model) handleReset() (tea.Model, tea.Cmd) {
	if m.state != StateInput {
		return m, nil
	}

	m.session.Reset()
	m.messages = nil
	m.input.Reset()
	m.addMessage(Message{Role: roleSystem, Text: "(Conversation reset)"})
	m.rebuildViewportContent()
	return m, nil
}

func (m *Model) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}

	m.historyIdx += delta
	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	if m.historyIdx > len(m.history) {
		m.historyIdx = len(m.history)
	}

	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[m.historyIdx])
		m.input.CursorEnd()
	}
	return m, nil
}

// cancelAsk stops the in-flight turn and invalidates its pending
// messages so the canceled result never reaches the transcript.
func (m *Model) cancelAsk() {
	m.askSeq++
	if m.askCancel != nil {
		m.askCancel()
		m.askCancel = nil
	}
}

// cleanup cancels any in-flight turn and quits.
func (m *Model) cleanup() tea.Cmd {
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}
	m.cancelAsk()
	return tea.Quit
}
