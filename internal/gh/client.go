// Package gh provides a GraphQL client for GitHub Projects v2 API.
// It implements a deep module interface - simple methods hiding complex GraphQL queries.
package gh

import (
	"context"
	"errors"
	"strings"

	"github.com/machinebox/graphql"
)

const graphqlEndpoint = "https://api.github.com/graphql"

// ErrEmptyTitle indicates a draft item was submitted with an empty or
// whitespace-only title. Checked locally, before any network call.
var ErrEmptyTitle = errors.New("title must not be empty")

// Client is a GitHub GraphQL API client for Projects v2.
// It provides high-level methods for querying and mutating project data.
type Client struct {
	gql   *graphql.Client
	token string
}

// New creates a client that authenticates with the given bearer token.
func New(token string) *Client {
	return &Client{
		gql:   graphql.NewClient(graphqlEndpoint),
		token: token,
	}
}

// NewWithEndpoint creates a client against a custom endpoint. Used by tests.
func NewWithEndpoint(token, endpoint string) *Client {
	return &Client{
		gql:   graphql.NewClient(endpoint),
		token: token,
	}
}

// makeRequest executes a GraphQL request with authentication.
// This is a helper method to avoid repeating the authorization header setup.
func (c *Client) makeRequest(ctx context.Context, req *graphql.Request, resp interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.gql.Run(ctx, req, resp)
}

// IsAuthError reports whether an API error means the token is invalid or
// expired. A stale token cannot self-heal, so callers respond by clearing
// the session rather than retrying.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "Bad credentials") ||
		strings.Contains(msg, "This endpoint requires you to be authenticated")
}

// IsNotFound reports whether an API error means a referenced node
// (project, item, field, or option) no longer exists - typically because
// it was deleted concurrently.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Could not resolve") ||
		strings.Contains(msg, "NOT_FOUND")
}
