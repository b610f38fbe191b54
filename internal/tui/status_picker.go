package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"ghswipe/internal/domain"
	"ghswipe/internal/gh"
)

// optionItem wraps a status option for use in bubbles/list.
type optionItem struct {
	option  domain.Option
	current bool
}

func (i optionItem) FilterValue() string {
	return i.option.Name
}

// optionDelegate renders status options one per line, marking the item's
// current status.
type optionDelegate struct{}

func (d optionDelegate) Height() int                             { return 1 }
func (d optionDelegate) Spacing() int                            { return 0 }
func (d optionDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d optionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(optionItem)
	if !ok {
		return
	}

	label := i.option.Name
	if i.current {
		label += " (current)"
	}

	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> "+label))
	} else {
		fmt.Fprint(w, NormalItemStyle.Render("  "+label))
	}
}

// StatusPickerModel moves one item to a new status. It runs the mutation
// itself and reports the outcome; the app follows up with a full reload.
type StatusPickerModel struct {
	client *gh.Client
	ctx    context.Context

	projectID string
	item      domain.Item
	field     domain.Field

	list    list.Model
	saving  bool
	errText string
}

// NewStatusPickerModel creates a status picker for the given item.
func NewStatusPickerModel(client *gh.Client, ctx context.Context, projectID string, item domain.Item, field domain.Field) StatusPickerModel {
	current, _ := item.ValueFor(field.ID)

	items := make([]list.Item, len(field.Options))
	for i, opt := range field.Options {
		items[i] = optionItem{option: opt, current: opt.Name == current}
	}

	l := list.New(items, optionDelegate{}, 50, len(field.Options)+6)
	l.Title = "Move to"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle

	return StatusPickerModel{
		client:    client,
		ctx:       ctx,
		projectID: projectID,
		item:      item,
		field:     field,
		list:      l,
	}
}

// Init initializes the model.
func (m StatusPickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// updateStatus runs the field value mutation for the chosen option.
func (m StatusPickerModel) updateStatus(optionID string) tea.Cmd {
	return func() tea.Msg {
		err := m.client.UpdateItemStatus(m.ctx, m.projectID, m.item.ID, m.field.ID, optionID)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return statusUpdatedMsg{}
	}
}

// Update handles messages and updates the model state.
func (m StatusPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.saving {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q", "esc":
			return m, func() tea.Msg {
				return closeOverlayMsg{}
			}
		case "enter":
			if item, ok := m.list.SelectedItem().(optionItem); ok {
				if item.current {
					// Already there; nothing to mutate.
					return m, func() tea.Msg {
						return closeOverlayMsg{}
					}
				}
				m.saving = true
				return m, m.updateStatus(item.option.ID)
			}
		}

	case ErrorMsg:
		// Stale ids mean the board changed under us; the reload after
		// returning to the board sorts the view out either way.
		m.saving = false
		if gh.IsNotFound(msg.Err) {
			m.errText = "Item or status no longer exists. Reload the board."
		} else {
			m.errText = msg.Err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m StatusPickerModel) View() string {
	var b strings.Builder

	b.WriteString(PromptStyle.Render(m.item.Title()))
	b.WriteString("\n")
	b.WriteString(m.list.View())

	if m.saving {
		b.WriteString("\nSaving...")
	}
	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.errText))
	}
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("enter: move • esc: back"))

	return b.String()
}
