package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ghswipe/internal/gh"
	"ghswipe/internal/session"
)

// Screen identifies which model is currently on screen.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenLoading
	ScreenProjects
	ScreenBoard
	ScreenNewItem
	ScreenStatusPicker
)

// AppModel is the root model. It owns the session store and the API
// client, runs screen transitions, and delegates everything else to the
// model currently on screen.
type AppModel struct {
	ctx    context.Context
	store  *session.Store
	client *gh.Client

	// Startup options from the command line.
	ownerFlag     string
	projectNumber int // 0 means pick interactively

	screen       Screen
	currentModel tea.Model
	boardModel   tea.Model // kept while an overlay is on top

	spinner     spinner.Model
	loadingText string
	loadErr     string
	retry       tea.Cmd // re-runs the load that failed

	width  int
	height int
}

// NewAppModel creates the root model. With a stored token the app goes
// straight to loading the profile; otherwise it starts at the login
// screen.
func NewAppModel(ctx context.Context, store *session.Store, owner string, projectNumber int) AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := AppModel{
		ctx:           ctx,
		store:         store,
		ownerFlag:     owner,
		projectNumber: projectNumber,
		spinner:       sp,
	}

	if token := store.Token(); token != "" {
		m.client = gh.New(token)
		m.screen = ScreenLoading
		m.loadingText = "Loading profile..."
		m.retry = m.loadUser()
	} else {
		m.screen = ScreenLogin
		m.currentModel = NewLoginModel()
	}

	return m
}

// Init initializes the application.
func (m AppModel) Init() tea.Cmd {
	if m.screen == ScreenLoading {
		return tea.Batch(m.spinner.Tick, m.loadUser())
	}
	return m.currentModel.Init()
}

// owner returns the project owner to query: the --owner flag when given,
// otherwise the authenticated user.
func (m AppModel) owner() string {
	if m.ownerFlag != "" {
		return m.ownerFlag
	}
	if u := m.store.User(); u != nil {
		return u.Login
	}
	return ""
}

// loadUser fetches the viewer profile. A rejected token forces a logout.
func (m AppModel) loadUser() tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		user, err := client.GetCurrentUser(ctx)
		if err != nil {
			return userLoadFailedMsg{err: err, authErr: gh.IsAuthError(err)}
		}
		return userLoadedMsg{user: user}
	}
}

// loadProjects fetches the owner's project list.
func (m AppModel) loadProjects(owner string) tea.Cmd {
	client := m.client
	ctx := m.ctx
	return func() tea.Msg {
		projects, err := client.GetProjects(ctx, owner)
		if err != nil {
			if gh.IsAuthError(err) {
				return userLoadFailedMsg{err: err, authErr: true}
			}
			return ErrorMsg{Err: err}
		}
		return projectsLoadedMsg{projects: projects}
	}
}

// reloadProject re-fetches the selected project snapshot. Every mutation
// and every manual refresh goes through here; the board is never patched
// in place.
func (m AppModel) reloadProject() tea.Cmd {
	client := m.client
	ctx := m.ctx
	owner := m.owner()
	number := 0
	if p := m.store.SelectedProject(); p != nil {
		number = p.Number
	}
	return func() tea.Msg {
		project, err := client.GetProject(ctx, owner, number)
		if err != nil {
			if gh.IsAuthError(err) {
				return userLoadFailedMsg{err: err, authErr: true}
			}
			return ErrorMsg{Err: err}
		}
		return projectReloadedMsg{project: project}
	}
}

// toLogin drops to the login screen with an optional notice.
func (m AppModel) toLogin(notice string) (AppModel, tea.Cmd) {
	login := NewLoginModel()
	login.errMsg = notice
	m.client = nil
	m.boardModel = nil
	m.screen = ScreenLogin
	m.currentModel = login
	return m, login.Init()
}

// showBoard puts a fresh board on screen over the selected project.
func (m AppModel) showBoard() (AppModel, tea.Cmd) {
	board := NewBoardModel(m.store, m.client, m.ctx)
	m.screen = ScreenBoard
	m.currentModel = board
	m.boardModel = nil
	return m, board.Init()
}

// Update routes messages: app-level transitions here, the rest to the
// model on screen.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Fall through to the current model below.

	case tea.KeyMsg:
		if m.screen == ScreenLoading {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "r":
				if m.loadErr != "" && m.retry != nil {
					m.loadErr = ""
					return m, tea.Batch(m.spinner.Tick, m.retry)
				}
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.screen == ScreenLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case AuthSucceededMsg:
		if err := m.store.SetToken(msg.Token); err != nil {
			// The session still works for this run; it just won't survive
			// a restart.
			m.loadErr = fmt.Sprintf("Could not save the session: %v", err)
		}
		m.client = gh.New(msg.Token)
		m.screen = ScreenLoading
		m.loadingText = "Loading profile..."
		m.retry = m.loadUser()
		return m, tea.Batch(m.spinner.Tick, m.loadUser())

	case userLoadedMsg:
		m.store.SetUser(msg.user)
		m.screen = ScreenLoading
		m.loadingText = "Loading projects..."
		m.retry = m.loadProjects(m.owner())
		return m, tea.Batch(m.spinner.Tick, m.loadProjects(m.owner()))

	case userLoadFailedMsg:
		if msg.authErr {
			// The token is stale; drop the session instead of retrying.
			_ = m.store.Logout()
			return m.toLogin("Session expired, sign in again.")
		}
		m.screen = ScreenLoading
		m.loadErr = msg.err.Error()
		return m, nil

	case projectsLoadedMsg:
		m.store.SetProjects(msg.projects)

		if m.projectNumber != 0 {
			for i := range msg.projects {
				if msg.projects[i].Number == m.projectNumber {
					project := msg.projects[i]
					m.store.SetSelectedProject(&project)
					return m.showBoard()
				}
			}
			m.screen = ScreenLoading
			m.loadErr = fmt.Sprintf("Project #%d not found for %s.", m.projectNumber, m.owner())
			return m, nil
		}

		picker := NewProjectPickerModel(msg.projects)
		m.screen = ScreenProjects
		m.currentModel = picker
		return m, picker.Init()

	case ProjectSelectedMsg:
		project := msg.Project
		m.store.SetSelectedProject(&project)
		return m.showBoard()

	case openNewItemMsg:
		project := m.store.SelectedProject()
		if project == nil {
			return m, nil
		}
		form := NewItemFormModel(m.client, m.ctx, project.ID)
		m.boardModel = m.currentModel
		m.screen = ScreenNewItem
		m.currentModel = form
		return m, form.Init()

	case openStatusPickerMsg:
		project := m.store.SelectedProject()
		if project == nil {
			return m, nil
		}
		picker := NewStatusPickerModel(m.client, m.ctx, project.ID, msg.item, msg.field)
		m.boardModel = m.currentModel
		m.screen = ScreenStatusPicker
		m.currentModel = picker
		return m, picker.Init()

	case closeOverlayMsg:
		if m.boardModel != nil {
			m.currentModel = m.boardModel
			m.boardModel = nil
		}
		m.screen = ScreenBoard
		return m, nil

	case itemCreatedMsg, statusUpdatedMsg:
		// Mutations never patch the snapshot; close the overlay and reload.
		if m.boardModel != nil {
			m.currentModel = m.boardModel
			m.boardModel = nil
		}
		m.screen = ScreenBoard
		return m, m.reloadProject()

	case reloadRequestMsg:
		return m, m.reloadProject()

	case projectReloadedMsg:
		m.store.ReplaceSelectedProject(msg.project)
		// The board rebuilds its columns from the fresh snapshot.
		if m.currentModel != nil {
			var cmd tea.Cmd
			m.currentModel, cmd = m.currentModel.Update(msg)
			return m, cmd
		}
		return m, nil

	case logoutRequestMsg:
		_ = m.store.Logout()
		return m.toLogin("")

	case QuitMsg:
		return m, tea.Quit
	}

	if m.currentModel == nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.currentModel, cmd = m.currentModel.Update(msg)
	return m, cmd
}

// View renders the current screen.
func (m AppModel) View() string {
	if m.screen == ScreenLoading {
		var b strings.Builder
		if m.loadErr != "" {
			b.WriteString(ErrorStyle.Render(m.loadErr))
			b.WriteString("\n")
			b.WriteString(HelpStyle.Render("r: retry • q: quit"))
		} else {
			b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), m.loadingText))
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
	}

	if m.currentModel == nil {
		return ""
	}
	return m.currentModel.View()
}
