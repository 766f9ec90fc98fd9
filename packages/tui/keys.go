package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// handleKeyMsg runs shortcuts. handled is false when the key should go to the
// focused editor.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true

	case "ctrl+s":
		updated, cmd := m.handleSend()
		return updated, cmd, true

	case "enter":
		if m.focus != fieldURL {
			return m, nil, false
		}
		updated, cmd := m.handleSend()
		return updated, cmd, true

	case "tab":
		m.cycleFocus(1)
		return m, nil, true

	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil, true

	case "ctrl+t":
		return m.handleNewTab(), nil, true

	case "ctrl+w":
		return m.handleCloseTab(), nil, true

	case "ctrl+n":
		return m.selectTab(m.active + 1), nil, true

	case "ctrl+p":
		return m.selectTab(m.active - 1), nil, true

	case "ctrl+o":
		if s := m.slot(); s != nil {
			s.Draft.Method = s.Draft.Method.Next()
		}
		return m, nil, true

	case "ctrl+b":
		if s := m.slot(); s != nil {
			s.Draft.ContentType = nextContentType(s.Draft.ContentType)
		}
		return m, nil, true

	case "ctrl+a":
		return m.handleCycleAuth(), nil, true

	case "ctrl+e":
		return m.handleCycleEnvironment(), nil, true

	case "ctrl+y":
		return m.handleCopy(), nil, true

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.response, cmd = m.response.Update(msg)
		return m, cmd, true
	}
	return m, nil, false
}

// handleSend submits the active tab. The request runs as a command and comes
// back as an outcomeMsg.
func (m Model) handleSend() (Model, tea.Cmd) {
	m.saveDraft()
	task, err := m.ws.Submit(m.active)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	m.refreshResponse()

	ctx := m.ctx
	run := func() tea.Msg {
		return outcomeMsg{outcome: task.Run(ctx)}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m Model) handleNewTab() Model {
	m.saveDraft()
	m.active = m.ws.AddSlot()
	m.loadDraft()
	m.setFocus(fieldURL)
	return m
}

func (m Model) handleCloseTab() Model {
	if err := m.ws.CloseSlot(m.active); err != nil {
		m.status = err.Error()
		return m
	}
	if m.active >= len(m.ws.Slots()) {
		m.active = len(m.ws.Slots()) - 1
	}
	m.loadDraft()
	return m
}

func (m Model) selectTab(i int) Model {
	n := len(m.ws.Slots())
	i = ((i % n) + n) % n
	if i == m.active {
		return m
	}
	m.saveDraft()
	m.active = i
	m.loadDraft()
	return m
}

func (m Model) handleCycleAuth() Model {
	s := m.slot()
	if s == nil {
		return m
	}
	next := auth.Kinds[(int(s.Draft.Auth.Kind())+1)%len(auth.Kinds)]
	s.Draft.Auth = s.Draft.Auth.Switch(next)
	m.auth.SetValue("")
	return m
}

// handleCycleEnvironment steps through none and each environment in order.
func (m Model) handleCycleEnvironment() Model {
	envs := m.ws.Environments()
	if len(envs) == 0 {
		m.status = "no environments"
		return m
	}

	current := m.ws.Active()
	next := 0
	if current != nil {
		for i, b := range envs {
			if b.ID == current.ID {
				next = i + 1
			}
		}
	}
	if next >= len(envs) {
		m.ws.Deactivate()
		m.status = "environment: none"
		return m
	}
	_ = m.ws.Activate(envs[next].ID)
	m.status = "environment: " + envs[next].Name
	return m
}

func (m Model) handleCopy() Model {
	copied, err := m.ws.Copy(m.active)
	switch {
	case err != nil:
		m.status = err.Error()
	case copied:
		m.status = "copied response"
	default:
		m.status = "nothing to copy"
	}
	return m
}

func nextContentType(c http.ContentType) http.ContentType {
	for i, known := range http.ContentTypes {
		if c == known {
			return http.ContentTypes[(i+1)%len(http.ContentTypes)]
		}
	}
	return http.ContentJSON
}
