package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/browser"

	"ghswipe/internal/board"
	"ghswipe/internal/domain"
	"ghswipe/internal/gh"
	"ghswipe/internal/session"
)

// Layout constants
const (
	maxCardWidth   = 60
	chromeLines    = 7 // header, column title, dots, status bar, spacing
	bodyPreviewMax = 2 // lines of body shown per card
)

// Styles for the board view
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	columnTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	dotActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	dotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	toastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// boardInitMsg triggers a column rebuild from the current snapshot.
type boardInitMsg struct{}

// BoardModel is the swipe-style board: one status column on screen at a
// time, left/right to flip between columns.
type BoardModel struct {
	// Dependencies
	store  *session.Store
	client *gh.Client
	ctx    context.Context

	// UI components
	keymap KeyMap
	help   HelpModel

	// Derived state, recomputed from the project snapshot on every change
	columns     []domain.Column
	statusField *domain.Field

	// View state
	selected   map[string]int // column ID -> selected item index
	scroll     map[string]int // column ID -> first visible item index
	width      int
	height     int
	showHelp   bool
	errorToast string
}

// NewBoardModel creates a board over the store's selected project.
func NewBoardModel(s *session.Store, client *gh.Client, ctx context.Context) BoardModel {
	return BoardModel{
		store:    s,
		client:   client,
		ctx:      ctx,
		keymap:   DefaultKeyMap(),
		help:     NewHelpModel(DefaultKeyMap()),
		selected: make(map[string]int),
		scroll:   make(map[string]int),
	}
}

// Init initializes the board.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(
		tea.WindowSize(),
		func() tea.Msg { return boardInitMsg{} },
	)
}

// rebuildColumns re-derives the column structure from the store's project
// snapshot. Called on init and after every reload; never patches
// incrementally.
func (m *BoardModel) rebuildColumns() {
	project := m.store.SelectedProject()
	m.columns = board.DeriveColumns(project)
	if project != nil {
		m.statusField = board.FindStatusField(project.Fields)
	} else {
		m.statusField = nil
	}

	// Clamp the stored column position against the fresh column list.
	if idx := m.store.ColumnIndex(); idx >= len(m.columns) {
		if len(m.columns) == 0 {
			m.store.SetColumnIndex(0)
		} else {
			m.store.SetColumnIndex(len(m.columns) - 1)
		}
	}

	// Clamp item selections per column.
	for _, col := range m.columns {
		if m.selected[col.ID] >= len(col.Items) {
			if len(col.Items) == 0 {
				m.selected[col.ID] = 0
			} else {
				m.selected[col.ID] = len(col.Items) - 1
			}
		}
	}
}

// currentColumn returns the column on screen, or nil when there is none.
func (m *BoardModel) currentColumn() *domain.Column {
	idx := m.store.ColumnIndex()
	if idx < 0 || idx >= len(m.columns) {
		return nil
	}
	return &m.columns[idx]
}

// currentItem returns the selected item in the current column, or nil.
func (m *BoardModel) currentItem() *domain.Item {
	col := m.currentColumn()
	if col == nil || len(col.Items) == 0 {
		return nil
	}
	idx := m.selected[col.ID]
	if idx < 0 || idx >= len(col.Items) {
		return nil
	}
	return &col.Items[idx]
}

// Update handles messages.
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardInitMsg:
		(&m).rebuildColumns()
		return m, nil

	case projectReloadedMsg:
		// The app already swapped the snapshot into the store.
		m.errorToast = ""
		(&m).rebuildColumns()
		return m, nil

	case ErrorMsg:
		m.errorToast = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Help overlay swallows everything except its own dismissal.
	if m.showHelp {
		if msg.String() == "?" || msg.String() == "q" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	m.errorToast = ""

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keymap.Left):
		if idx := m.store.ColumnIndex(); idx > 0 {
			m.store.SetColumnIndex(idx - 1)
		}
		return m, nil

	case key.Matches(msg, m.keymap.Right):
		if idx := m.store.ColumnIndex(); idx < len(m.columns)-1 {
			m.store.SetColumnIndex(idx + 1)
		}
		return m, nil

	case key.Matches(msg, m.keymap.Down):
		if col := m.currentColumn(); col != nil && m.selected[col.ID] < len(col.Items)-1 {
			m.selected[col.ID]++
			(&m).scrollIntoView(col)
		}
		return m, nil

	case key.Matches(msg, m.keymap.Up):
		if col := m.currentColumn(); col != nil && m.selected[col.ID] > 0 {
			m.selected[col.ID]--
			(&m).scrollIntoView(col)
		}
		return m, nil

	case key.Matches(msg, m.keymap.NewItem):
		return m, func() tea.Msg { return openNewItemMsg{} }

	case key.Matches(msg, m.keymap.ChangeStatus):
		item := m.currentItem()
		if item == nil {
			return m, nil
		}
		if m.statusField == nil {
			m.errorToast = "No status field in this project."
			return m, nil
		}
		it, field := *item, *m.statusField
		return m, func() tea.Msg {
			return openStatusPickerMsg{item: it, field: field}
		}

	case key.Matches(msg, m.keymap.Open):
		if p := m.store.SelectedProject(); p != nil && p.URL != "" {
			if err := browser.OpenURL(p.URL); err != nil {
				m.errorToast = fmt.Sprintf("Open failed: %v", err)
			}
		}
		return m, nil

	case key.Matches(msg, m.keymap.Refresh):
		return m, func() tea.Msg { return reloadRequestMsg{} }

	case key.Matches(msg, m.keymap.Logout):
		return m, func() tea.Msg { return logoutRequestMsg{} }
	}

	return m, nil
}

// scrollIntoView keeps the selected item inside the visible window.
func (m *BoardModel) scrollIntoView(col *domain.Column) {
	rows := m.visibleItems()
	if rows <= 0 {
		return
	}
	sel := m.selected[col.ID]
	if sel < m.scroll[col.ID] {
		m.scroll[col.ID] = sel
	}
	if sel >= m.scroll[col.ID]+rows {
		m.scroll[col.ID] = sel - rows + 1
	}
}

// visibleItems returns how many item cards fit on screen.
func (m *BoardModel) visibleItems() int {
	rows := (m.height - chromeLines) / (bodyPreviewMax + 2)
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *BoardModel) cardWidth() int {
	w := m.width - 4
	if w > maxCardWidth {
		w = maxCardWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// View renders the board.
func (m BoardModel) View() string {
	project := m.store.SelectedProject()
	if project == nil {
		return "No project selected."
	}

	if m.showHelp {
		return m.help.View(m.width)
	}

	var b strings.Builder

	// Header: project title and signed-in user.
	login := ""
	if u := m.store.User(); u != nil {
		login = "@" + u.Login
	}
	b.WriteString(headerStyle.Render(project.Title))
	if login != "" {
		b.WriteString(statusBarStyle.Render("  " + login))
	}
	b.WriteString("\n\n")

	col := m.currentColumn()
	if col == nil {
		b.WriteString("No columns available.")
		return b.String()
	}

	// Column title, item count, and the swipe position dots.
	b.WriteString(columnTitleStyle.Render(col.Name))
	b.WriteString(statusBarStyle.Render(fmt.Sprintf("  %d %s", len(col.Items), pluralize(len(col.Items), "item", "items"))))
	b.WriteString("  ")
	b.WriteString(m.renderDots())
	b.WriteString("\n\n")

	b.WriteString(m.renderItems(col))

	// Status bar with toast or key hints.
	b.WriteString("\n")
	if m.errorToast != "" {
		b.WriteString(toastStyle.Render(m.errorToast))
	} else {
		b.WriteString(statusBarStyle.Render("h/l: columns • j/k: items • s: status • n: new • r: reload • ?: help"))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// renderDots renders the column position indicator row.
func (m BoardModel) renderDots() string {
	current := m.store.ColumnIndex()
	dots := make([]string, len(m.columns))
	for i := range m.columns {
		if i == current {
			dots[i] = dotActiveStyle.Render("●")
		} else {
			dots[i] = dotStyle.Render("○")
		}
	}
	return strings.Join(dots, " ")
}

// renderItems renders the visible window of the column's item cards.
func (m BoardModel) renderItems(col *domain.Column) string {
	if len(col.Items) == 0 {
		return DimStyle.Render("No items in this column.") + "\n"
	}

	rows := m.visibleItems()
	start := m.scroll[col.ID]
	if start > len(col.Items)-1 {
		start = 0
	}
	end := start + rows
	if end > len(col.Items) {
		end = len(col.Items)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderItem(col.Items[i], i == m.selected[col.ID]))
		b.WriteString("\n")
	}

	if end < len(col.Items) {
		b.WriteString(DimStyle.Render(fmt.Sprintf("… %d more", len(col.Items)-end)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderItem renders one item card: title plus a short body preview.
func (m BoardModel) renderItem(item domain.Item, selected bool) string {
	width := m.cardWidth()
	style := cardStyle
	prefix := "  "
	if selected {
		style = selectedCardStyle
		prefix = "> "
	}

	title := truncate.StringWithTail(item.Title(), uint(width-2), "…")
	lines := []string{style.Render(prefix + title)}

	if item.Content != nil && item.Content.Body != "" {
		wrapped := wordwrap.String(item.Content.Body, width-4)
		for i, line := range strings.Split(wrapped, "\n") {
			if i >= bodyPreviewMax {
				break
			}
			lines = append(lines, DimStyle.Render("  "+truncate.StringWithTail(line, uint(width-4), "…")))
		}
	}

	return strings.Join(lines, "\n")
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
