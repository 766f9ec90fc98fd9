package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul-hamid-achik/hitpad/packages/core/lifecycle"
)

// Update handles all messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		updated, cmd, handled := m.handleKeyMsg(msg)
		if handled {
			return updated, cmd
		}
		m = updated
		return m.updateFocused(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg), nil

	case outcomeMsg:
		if m.ws.Deliver(msg.outcome) {
			m.refreshResponse()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.anyLoading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused editor.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldURL:
		m.url, cmd = m.url.Update(msg)
	case fieldParams:
		m.params, cmd = m.params.Update(msg)
	case fieldHeaders:
		m.headers, cmd = m.headers.Update(msg)
	case fieldBody:
		m.body, cmd = m.body.Update(msg)
	case fieldAuth:
		m.auth, cmd = m.auth.Update(msg)
	}
	return m, cmd
}

func (m Model) handleWindowResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	inner := msg.Width - 4
	if inner < 20 {
		inner = 20
	}
	m.url.Width = inner - 10
	m.auth.Width = inner - 10
	m.params.SetWidth(inner)
	m.headers.SetWidth(inner)
	m.body.SetWidth(inner)

	// tabs, env line, request line, editor label and editor, meta line, footer
	used := 3 + 1 + 1 + 1 + m.body.Height() + 2 + 1 + 2
	m.response.Width = inner
	m.response.Height = msg.Height - used
	if m.response.Height < 3 {
		m.response.Height = 3
	}
	return m
}

func (m Model) anyLoading() bool {
	for _, s := range m.ws.Slots() {
		if s.State().Phase == lifecycle.Loading {
			return true
		}
	}
	return false
}

// refreshResponse shows the active slot's result in the viewport.
func (m *Model) refreshResponse() {
	s := m.slot()
	if s == nil {
		return
	}
	st := s.State()
	switch st.Phase {
	case lifecycle.Error:
		m.response.SetContent(ErrorStyle.Render(st.Text))
	case lifecycle.Success:
		m.response.SetContent(st.Text)
	case lifecycle.Idle, lifecycle.Loading:
		m.response.SetContent("")
	}
	m.response.GotoTop()
}
