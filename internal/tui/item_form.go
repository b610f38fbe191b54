package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ghswipe/internal/gh"
)

// ItemFormModel is the create-draft-item form: a required title and an
// optional body. It runs the mutation itself; the app follows up with a
// full reload.
type ItemFormModel struct {
	client *gh.Client
	ctx    context.Context

	projectID string
	title     textinput.Model
	body      textarea.Model
	focusBody bool
	saving    bool
	errText   string
}

// NewItemFormModel creates the draft item form for a project.
func NewItemFormModel(client *gh.Client, ctx context.Context, projectID string) ItemFormModel {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 256
	title.Focus()

	body := textarea.New()
	body.Placeholder = "Body (optional)"
	body.SetHeight(5)

	return ItemFormModel{
		client:    client,
		ctx:       ctx,
		projectID: projectID,
		title:     title,
		body:      body,
	}
}

// Init initializes the model.
func (m ItemFormModel) Init() tea.Cmd {
	return textinput.Blink
}

// createItem runs the draft creation mutation.
func (m ItemFormModel) createItem(title, body string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.client.CreateDraftItem(m.ctx, m.projectID, title, body); err != nil {
			return ErrorMsg{Err: err}
		}
		return itemCreatedMsg{}
	}
}

// Update handles messages and updates the model state.
func (m ItemFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.saving {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, func() tea.Msg {
				return closeOverlayMsg{}
			}
		case "tab", "shift+tab":
			m.focusBody = !m.focusBody
			if m.focusBody {
				m.title.Blur()
				return m, m.body.Focus()
			}
			m.body.Blur()
			return m, m.title.Focus()
		case "ctrl+s":
			return m.submit()
		case "enter":
			// Enter submits from the title field; in the body it is a
			// newline, submission is ctrl+s.
			if !m.focusBody {
				return m.submit()
			}
		}

	case ErrorMsg:
		m.saving = false
		m.errText = msg.Err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusBody {
		m.body, cmd = m.body.Update(msg)
	} else {
		m.title, cmd = m.title.Update(msg)
	}
	return m, cmd
}

// submit validates locally and starts the mutation. An empty title never
// reaches the network.
func (m ItemFormModel) submit() (tea.Model, tea.Cmd) {
	if strings.TrimSpace(m.title.Value()) == "" {
		m.errText = "Title must not be empty."
		return m, nil
	}
	m.saving = true
	m.errText = ""
	return m, m.createItem(m.title.Value(), m.body.Value())
}

// View renders the model.
func (m ItemFormModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("New Draft Item"))
	b.WriteString("\n")
	b.WriteString(m.title.View())
	b.WriteString("\n\n")
	b.WriteString(m.body.View())
	b.WriteString("\n")

	if m.saving {
		b.WriteString("\nCreating...")
	}
	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.errText))
	}
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("enter: create • tab: switch field • ctrl+s: create • esc: back"))

	return b.String()
}
