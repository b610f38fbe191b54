package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"ghswipe/internal/auth"
)

// loginStep tracks the login screen's position in the device flow.
type loginStep int

const (
	loginIdle loginStep = iota
	loginRequesting
	loginWaiting
)

// Login screen messages.
type (
	deviceCodeReadyMsg struct {
		flow  *auth.Flow
		authz *auth.DeviceAuthorization
		err   error
	}

	pollTickMsg struct{}

	pollDoneMsg struct {
		token string
		err   error
	}
)

// LoginModel runs the OAuth device flow: it shows the user code, opens the
// verification page in the browser, and animates while the poller waits
// for the user to authorize.
type LoginModel struct {
	spinner spinner.Model

	step    loginStep
	flow    *auth.Flow
	authz   *auth.DeviceAuthorization
	cancel  context.CancelFunc
	ticks   chan struct{}
	attempt int
	errMsg  string

	width  int
	height int
}

// NewLoginModel creates the login screen.
func NewLoginModel() LoginModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return LoginModel{spinner: sp}
}

// Init initializes the model.
func (m LoginModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// requestDeviceCode starts a fresh flow and asks for a device/user code pair.
func (m LoginModel) requestDeviceCode() tea.Cmd {
	return func() tea.Msg {
		flow := auth.NewFlow()
		authz, err := flow.RequestDeviceCode(context.Background())
		return deviceCodeReadyMsg{flow: flow, authz: authz, err: err}
	}
}

// pollForToken runs the polling loop in the background. Each attempt
// pushes a tick into the channel (dropped when the UI is behind); the
// channel is closed when the loop resolves so the tick listener exits.
func pollForToken(ctx context.Context, flow *auth.Flow, authz *auth.DeviceAuthorization, ticks chan struct{}) tea.Cmd {
	return func() tea.Msg {
		token, err := flow.PollForAccessToken(ctx, authz.DeviceCode,
			time.Duration(authz.Interval)*time.Second,
			func() {
				select {
				case ticks <- struct{}{}:
				default:
				}
			})
		close(ticks)
		return pollDoneMsg{token: token, err: err}
	}
}

// listenForTicks forwards poll attempts to the UI for the progress dots.
func listenForTicks(ticks chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ticks; !ok {
			return nil
		}
		return pollTickMsg{}
	}
}

// Update handles messages.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.step == loginWaiting {
				m.stopPolling()
			}
			return m, tea.Quit
		case "enter":
			if m.step == loginIdle {
				m.step = loginRequesting
				m.errMsg = ""
				return m, m.requestDeviceCode()
			}
		case "esc":
			if m.step == loginWaiting {
				m.stopPolling()
				m.step = loginIdle
				m.errMsg = "Login canceled."
			}
			return m, nil
		}

	case deviceCodeReadyMsg:
		if msg.err != nil {
			m.step = loginIdle
			m.errMsg = msg.err.Error()
			return m, nil
		}

		m.step = loginWaiting
		m.flow = msg.flow
		m.authz = msg.authz
		m.attempt = 0

		// Best effort; the code and URL stay on screen either way.
		_ = browser.OpenURL(msg.authz.VerificationURI)

		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.ticks = make(chan struct{}, 1)

		return m, tea.Batch(
			m.spinner.Tick,
			pollForToken(ctx, m.flow, m.authz, m.ticks),
			listenForTicks(m.ticks),
		)

	case pollTickMsg:
		m.attempt++
		return m, listenForTicks(m.ticks)

	case pollDoneMsg:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}

		// A late result after the user already backed out is ignored.
		if m.step != loginWaiting {
			return m, nil
		}

		if msg.err != nil {
			m.step = loginIdle
			m.errMsg = loginErrorMessage(msg.err)
			return m, nil
		}

		token := msg.token
		return m, func() tea.Msg {
			return AuthSucceededMsg{Token: token}
		}

	case spinner.TickMsg:
		if m.step != loginWaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// stopPolling cancels the background poll loop. Idempotent.
func (m *LoginModel) stopPolling() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// loginErrorMessage turns a flow outcome into a short, retryable message.
func loginErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccessDenied):
		return "Access denied."
	case errors.Is(err, auth.ErrAuthorizationExpired):
		return "Authorization expired, please try again."
	case errors.Is(err, context.Canceled):
		return "Login canceled."
	default:
		return err.Error()
	}
}

// View renders the login screen.
func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("ghswipe"))
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("GitHub Projects, one column at a time"))
	b.WriteString("\n\n")

	switch m.step {
	case loginIdle:
		b.WriteString(PromptStyle.Render("Sign in with GitHub to see your project boards."))
		b.WriteString("\n")
		if m.errMsg != "" {
			b.WriteString(ErrorStyle.Render(m.errMsg))
			b.WriteString("\n")
		}
		b.WriteString(HelpStyle.Render("enter: sign in • q: quit"))

	case loginRequesting:
		b.WriteString("Requesting device code...")

	case loginWaiting:
		b.WriteString("First, copy your one-time code:\n\n")
		b.WriteString(UserCodeStyle.Render(m.authz.UserCode))
		b.WriteString("\n\nThen enter it at ")
		b.WriteString(SelectedItemStyle.Render(m.authz.VerificationURI))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("%s Waiting for authorization%s",
			m.spinner.View(), strings.Repeat(".", m.attempt%4)))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("esc: cancel • q: quit"))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
