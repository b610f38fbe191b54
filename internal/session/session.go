// Package session holds the process-wide session state: the bearer token,
// the authenticated user, and the current project selection. It is the only
// mutable shared state in the application and exposes a fixed set of
// mutating operations instead of ad-hoc field writes.
package session

import (
	"ghswipe/internal/domain"
)

// Store is the session state container. It is mutated only from the
// top-level login/logout flow and after successful loads; the core
// algorithms operate on values passed to them, not on the store.
type Store struct {
	tokens TokenStore

	token       string
	transient   bool // true when the token came from the environment, not disk
	user        *domain.User
	projects    []domain.Project
	selected    *domain.Project
	columnIndex int
}

// New creates a store backed by the given token storage and loads any
// persisted token. A load failure is treated as "no stored token"; the
// user simply logs in again.
func New(tokens TokenStore) *Store {
	s := &Store{tokens: tokens}
	if tokens != nil {
		if tok, err := tokens.Load(); err == nil {
			s.token = tok
		}
	}
	return s
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	return s.token
}

// SetToken stores the token and persists it so it survives restarts.
func (s *Store) SetToken(token string) error {
	s.token = token
	s.transient = false
	if s.tokens == nil {
		return nil
	}
	if token == "" {
		return s.tokens.Delete()
	}
	return s.tokens.Save(token)
}

// UseToken sets a token for this process only, without persisting it.
// Used for the GITHUB_TOKEN environment override.
func (s *Store) UseToken(token string) {
	s.token = token
	s.transient = true
}

// User returns the authenticated user, or nil while the profile has not
// been loaded. A present token with a nil user means "authenticated,
// profile not yet loaded".
func (s *Store) User() *domain.User {
	return s.user
}

// SetUser records the authenticated user's profile.
func (s *Store) SetUser(user *domain.User) {
	s.user = user
}

// Projects returns the last fetched project list.
func (s *Store) Projects() []domain.Project {
	return s.projects
}

// SetProjects replaces the project list with a fresh snapshot.
func (s *Store) SetProjects(projects []domain.Project) {
	s.projects = projects
}

// SelectedProject returns the currently selected project, or nil.
func (s *Store) SelectedProject() *domain.Project {
	return s.selected
}

// SetSelectedProject selects a project and resets the column position.
func (s *Store) SetSelectedProject(project *domain.Project) {
	s.selected = project
	s.columnIndex = 0
}

// ReplaceSelectedProject swaps in a re-fetched snapshot of the selected
// project while keeping the user's column position. Used after mutations,
// which always trigger a full reload.
func (s *Store) ReplaceSelectedProject(project *domain.Project) {
	s.selected = project
}

// ColumnIndex returns the index of the column currently on screen.
func (s *Store) ColumnIndex() int {
	return s.columnIndex
}

// SetColumnIndex records the column currently on screen.
func (s *Store) SetColumnIndex(index int) {
	s.columnIndex = index
}

// Logout clears the whole session, including the persisted token. It is
// also the recovery path for a stale token: a token the API rejects cannot
// self-heal, so the session is dropped rather than retried.
func (s *Store) Logout() error {
	s.token = ""
	s.user = nil
	s.projects = nil
	s.selected = nil
	s.columnIndex = 0

	if s.tokens == nil || s.transient {
		s.transient = false
		return nil
	}
	return s.tokens.Delete()
}
