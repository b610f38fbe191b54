// Package tui provides Bubble Tea models for the interactive TUI.
package tui

import (
	"ghswipe/internal/domain"
)

// AuthSucceededMsg is emitted by the login screen when the device flow
// resolved with a token.
type AuthSucceededMsg struct {
	Token string
}

// ProjectSelectedMsg is emitted when the user selects a project.
type ProjectSelectedMsg struct {
	Project domain.Project
}

// ErrorMsg is emitted when an error occurs.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// Internal transition messages.
type (
	// userLoadedMsg carries the viewer profile fetched after login.
	userLoadedMsg struct {
		user *domain.User
	}

	// userLoadFailedMsg means the profile fetch failed; authErr marks a
	// rejected token, which forces a logout.
	userLoadFailedMsg struct {
		err     error
		authErr bool
	}

	// projectsLoadedMsg carries the owner's project list.
	projectsLoadedMsg struct {
		projects []domain.Project
	}

	// projectReloadedMsg carries a fresh snapshot of the selected project
	// after a mutation or a manual refresh.
	projectReloadedMsg struct {
		project *domain.Project
	}

	// openNewItemMsg asks the app to show the draft item form.
	openNewItemMsg struct{}

	// openStatusPickerMsg asks the app to show the status picker for an item.
	openStatusPickerMsg struct {
		item  domain.Item
		field domain.Field
	}

	// itemCreatedMsg means a draft item was created; a full reload follows.
	itemCreatedMsg struct{}

	// statusUpdatedMsg means an item's status changed; a full reload follows.
	statusUpdatedMsg struct{}

	// closeOverlayMsg returns from a form/picker to the board unchanged.
	closeOverlayMsg struct{}

	// reloadRequestMsg asks the app to re-fetch the selected project.
	reloadRequestMsg struct{}

	// logoutRequestMsg asks the app to clear the session.
	logoutRequestMsg struct{}
)
