package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abdul-hamid-achik/hitpad/packages/core/lifecycle"
	"github.com/abdul-hamid-achik/hitpad/packages/core/workspace"
)

// field is the editor that receives typed input.
type field int

const (
	fieldURL field = iota
	fieldParams
	fieldHeaders
	fieldBody
	fieldAuth
)

var fields = []field{fieldURL, fieldParams, fieldHeaders, fieldBody, fieldAuth}

func (f field) String() string {
	switch f {
	case fieldURL:
		return "URL"
	case fieldParams:
		return "Params"
	case fieldHeaders:
		return "Headers"
	case fieldBody:
		return "Body"
	case fieldAuth:
		return "Auth"
	default:
		return ""
	}
}

// Model is the Bubble Tea model. The editors hold the draft of the active
// tab only; they are written back to the draft before sending and before
// switching tabs.
type Model struct {
	ctx context.Context
	ws  *workspace.Workspace

	active int
	focus  field

	url     textinput.Model
	auth    textinput.Model
	params  textarea.Model
	headers textarea.Model
	body    textarea.Model

	response viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	// status is a one-line notice shown in the footer.
	status string
}

// outcomeMsg carries a finished request back to the update loop.
type outcomeMsg struct {
	outcome lifecycle.Outcome
}

// New builds the model around ws. Requests run with ctx.
func New(ctx context.Context, ws *workspace.Workspace) Model {
	m := Model{
		ctx:      ctx,
		ws:       ws,
		url:      newTextInput("https://api.example.com/items"),
		auth:     newTextInput(""),
		params:   newTextArea("key=value"),
		headers:  newTextArea("Name: value"),
		body:     newTextArea(`{"name": "value"}`),
		response: viewport.New(80, 10),
		spinner:  newSpinner(),
	}
	m.loadDraft()
	m.setFocus(fieldURL)
	return m
}

func newTextInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(DimColor)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(AccentColor)
	return ti
}

func newTextArea(placeholder string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(5)
	return ta
}

func newSpinner() spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)
	return sp
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) slot() *lifecycle.Slot {
	s, err := m.ws.Slot(m.active)
	if err != nil {
		return nil
	}
	return s
}

// setFocus moves keyboard input to f.
func (m *Model) setFocus(f field) {
	m.focus = f
	m.url.Blur()
	m.auth.Blur()
	m.params.Blur()
	m.headers.Blur()
	m.body.Blur()

	switch f {
	case fieldURL:
		m.url.Focus()
	case fieldParams:
		m.params.Focus()
	case fieldHeaders:
		m.headers.Focus()
	case fieldBody:
		m.body.Focus()
	case fieldAuth:
		m.auth.Focus()
	}
}

func (m *Model) cycleFocus(step int) {
	i := int(m.focus) + step
	n := len(fields)
	m.setFocus(fields[((i%n)+n)%n])
}
