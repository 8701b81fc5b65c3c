package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// templateHeader introduces a served legal document in the transcript.
const templateHeader = "Here is the requested legal format:"

// View implements tea.Model.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	m.viewBuf.WriteString(m.viewport.View())
	m.viewBuf.WriteString("\n")

	m.viewBuf.WriteString(m.renderSeparator())
	m.viewBuf.WriteString("\n")

	m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
	m.viewBuf.WriteString(m.input.View())
	m.viewBuf.WriteString("\n")

	m.viewBuf.WriteString(m.renderSeparator())
	m.viewBuf.WriteString("\n")

	m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the transcript from messages and
// state. Called whenever either changes.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	b.WriteString(m.styles.RenderBanner())
	b.WriteString("\n")
	b.WriteString(m.styles.RenderWelcomeTips())
	b.WriteString("\n")

	for _, msg := range m.messages {
		switch msg.Role {
		case roleUser:
			b.WriteString(m.styles.User.Render("You> "))
			b.WriteString(msg.Text)
		case roleAssistant:
			b.WriteString(m.styles.Assistant.Render("Lawbot> "))
			b.WriteString(m.markdown.Render(msg.Text))
		case roleTemplate:
			// Documents are rendered verbatim; markdown would mangle
			// numbered clauses and underscores.
			b.WriteString(m.styles.Template.Render("Lawbot> " + templateHeader))
			b.WriteString("\n\n")
			b.WriteString(msg.Text)
		case roleSystem:
			b.WriteString(m.styles.System.Render(msg.Text))
		case roleError:
			b.WriteString(m.styles.Error.Render("Error: " + msg.Text))
		}
		b.WriteString("\n\n")
	}

	if m.state == StateThinking {
		b.WriteString(m.spinner.View())
		b.WriteString(" Generating...\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (m *Model) renderStatusBar() string {
	var bindings []key.Binding
	switch m.state {
	case StateInput:
		bindings = []key.Binding{
			m.keys.Submit, m.keys.NewLine, m.keys.History,
			m.keys.Reset, m.keys.Quit, m.keys.ScrollUp,
		}
	case StateThinking:
		bindings = []key.Binding{
			m.keys.Cancel, m.keys.ScrollUp, m.keys.ScrollDown,
		}
	}
	return m.help.ShortHelpView(bindings)
}
