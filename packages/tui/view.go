package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abdul-hamid-achik/hitpad/packages/auth"
	"github.com/abdul-hamid-achik/hitpad/packages/core/lifecycle"
)

const helpLine = "enter/ctrl+s send · tab focus · ctrl+o method · ctrl+b type · ctrl+a auth · ctrl+e env · " +
	"ctrl+t new · ctrl+w close · ctrl+n/p switch · ctrl+y copy · ctrl+c quit"

// View renders the entire TUI to a string.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderEnvironment())
	b.WriteString("\n")
	b.WriteString(m.renderRequestLine())
	b.WriteString("\n")
	b.WriteString(m.renderEditor())
	b.WriteString("\n")
	b.WriteString(m.renderMeta())
	b.WriteString("\n")
	b.WriteString(PanelStyle.Width(m.response.Width).Render(m.response.View()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderTabs() string {
	slots := m.ws.Slots()
	tabs := make([]string, 0, len(slots))
	for i, s := range slots {
		label := tabLabel(i, s)
		if i == m.active {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func tabLabel(i int, s *lifecycle.Slot) string {
	label := fmt.Sprintf("%d %s", i+1, s.Draft.Method)
	switch s.State().Phase {
	case lifecycle.Loading:
		label += " …"
	case lifecycle.Error:
		label += " !"
	case lifecycle.Success:
		if s.State().Meta != nil {
			label += fmt.Sprintf(" %d", s.State().Meta.StatusCode)
		}
	case lifecycle.Idle:
	}
	return label
}

func (m Model) renderEnvironment() string {
	name := "none"
	if active := m.ws.Active(); active != nil {
		name = active.Name
	}
	return LabelStyle.Render("Environment: ") + name
}

func (m Model) renderRequestLine() string {
	s := m.slot()
	if s == nil {
		return ""
	}
	d := s.Draft
	method := MethodStyle.Render(fmt.Sprintf("%-7s", d.Method))
	extras := LabelStyle.Render(fmt.Sprintf("  [%s] [auth: %s]", d.ContentType, d.Auth.Kind()))
	return method + " " + m.url.View() + extras
}

func (m Model) renderEditor() string {
	var labels []string
	for _, f := range fields[1:] {
		if f == m.focus {
			labels = append(labels, FocusedLabelStyle.Render(f.String()))
		} else {
			labels = append(labels, LabelStyle.Render(f.String()))
		}
	}
	header := strings.Join(labels, LabelStyle.Render(" | "))

	var editor string
	switch m.focus {
	case fieldParams:
		editor = m.params.View()
	case fieldHeaders:
		editor = m.headers.View()
	case fieldAuth:
		editor = m.renderAuth()
	case fieldBody, fieldURL:
		editor = m.body.View()
	}
	return header + "\n" + editor
}

func (m Model) renderAuth() string {
	s := m.slot()
	if s == nil {
		return ""
	}
	switch s.Draft.Auth.Kind() {
	case auth.Bearer:
		return LabelStyle.Render("Token: ") + m.auth.View()
	case auth.Basic:
		return LabelStyle.Render("user:pass: ") + m.auth.View()
	case auth.None:
		return LabelStyle.Render("No auth. Press ctrl+a to choose bearer or basic.")
	}
	return ""
}

// renderMeta shows the status line for the active result.
func (m Model) renderMeta() string {
	s := m.slot()
	if s == nil {
		return ""
	}
	st := s.State()
	switch st.Phase {
	case lifecycle.Loading:
		return m.spinner.View() + " sending..."
	case lifecycle.Error:
		return ErrorStyle.Render("request failed")
	case lifecycle.Success:
		if st.Meta == nil {
			return ""
		}
		lines := st.Meta.Lines()
		lines[0] = statusStyle(st.Meta.StatusCode).Render(lines[0])
		return strings.Join(lines, LabelStyle.Render("  ·  "))
	case lifecycle.Idle:
	}
	return LabelStyle.Render("no response yet")
}

func (m Model) renderFooter() string {
	if m.status != "" {
		return HelpStyle.Render(m.status)
	}
	return HelpStyle.Render(helpLine)
}
