package gh

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphqlStub serves canned GraphQL responses and records requests.
type graphqlStub struct {
	t        *testing.T
	response string
	requests int32
	lastBody string
}

func (g *graphqlStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.requests, 1)

		body, err := io.ReadAll(r.Body)
		require.NoError(g.t, err)
		g.lastBody = string(body)

		assert.Equal(g.t, "Bearer gho_test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(g.response))
	}
}

func newStubClient(t *testing.T, response string) (*Client, *graphqlStub) {
	stub := &graphqlStub{t: t, response: response}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return NewWithEndpoint("gho_test", srv.URL), stub
}

func TestGetCurrentUser(t *testing.T) {
	client, _ := newStubClient(t, `{
		"data": {
			"viewer": {
				"login": "octocat",
				"name": "The Octocat",
				"avatarUrl": "https://avatars.githubusercontent.com/u/583231"
			}
		}
	}`)

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "The Octocat", user.Name)
	assert.Equal(t, "https://avatars.githubusercontent.com/u/583231", user.AvatarURL)
}

func TestGetProjects_MapsSnapshot(t *testing.T) {
	client, _ := newStubClient(t, `{
		"data": {
			"user": {
				"projectsV2": {
					"nodes": [
						{
							"id": "proj_1",
							"number": 3,
							"title": "Roadmap",
							"url": "https://github.com/users/octocat/projects/3",
							"fields": {
								"nodes": [
									{"__typename": "ProjectV2Field", "id": "f_title", "name": "Title"},
									{
										"__typename": "ProjectV2SingleSelectField",
										"id": "f_status",
										"name": "Status",
										"options": [
											{"id": "o1", "name": "Todo"},
											{"id": "o2", "name": "Done"}
										]
									}
								]
							},
							"items": {
								"nodes": [
									{
										"id": "item_1",
										"content": {
											"__typename": "DraftIssue",
											"title": "Ship it",
											"body": "Details",
											"createdAt": "2024-01-01T00:00:00Z",
											"updatedAt": "2024-01-02T00:00:00Z"
										},
										"fieldValues": {
											"nodes": [
												{},
												{"field": {"id": "f_status", "name": "Status"}, "name": "Todo"}
											]
										}
									},
									{
										"id": "item_2",
										"content": null,
										"fieldValues": {"nodes": []}
									}
								]
							}
						}
					]
				}
			}
		}
	}`)

	projects, err := client.GetProjects(context.Background(), "octocat")
	require.NoError(t, err)
	require.Len(t, projects, 1)

	p := projects[0]
	assert.Equal(t, "proj_1", p.ID)
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, "Roadmap", p.Title)

	// Field order preserved, options only on the single-select field.
	require.Len(t, p.Fields, 2)
	assert.Equal(t, "Title", p.Fields[0].Name)
	assert.False(t, p.Fields[0].IsSingleSelect())
	assert.True(t, p.Fields[1].IsSingleSelect())
	require.Len(t, p.Fields[1].Options, 2)

	require.Len(t, p.Items, 2)
	require.NotNil(t, p.Items[0].Content)
	assert.Equal(t, "Ship it", p.Items[0].Content.Title)

	value, ok := p.Items[0].ValueFor("f_status")
	require.True(t, ok)
	assert.Equal(t, "Todo", value)

	// Deleted content maps to nil.
	assert.Nil(t, p.Items[1].Content)
	_, ok = p.Items[1].ValueFor("f_status")
	assert.False(t, ok)
}

func TestGetProject_SelectsByNumber(t *testing.T) {
	client, _ := newStubClient(t, `{
		"data": {
			"user": {
				"projectsV2": {
					"nodes": [
						{"id": "proj_1", "number": 1, "title": "One", "url": "", "fields": {"nodes": []}, "items": {"nodes": []}},
						{"id": "proj_2", "number": 2, "title": "Two", "url": "", "fields": {"nodes": []}, "items": {"nodes": []}}
					]
				}
			}
		}
	}`)

	p, err := client.GetProject(context.Background(), "octocat", 2)
	require.NoError(t, err)
	assert.Equal(t, "proj_2", p.ID)

	_, err = client.GetProject(context.Background(), "octocat", 9)
	assert.Error(t, err)
}

func TestCreateDraftItem(t *testing.T) {
	client, stub := newStubClient(t, `{
		"data": {
			"addProjectV2DraftIssue": {
				"projectItem": {"id": "item_new"}
			}
		}
	}`)

	id, err := client.CreateDraftItem(context.Background(), "proj_1", "New task", "some body")
	require.NoError(t, err)
	assert.Equal(t, "item_new", id)

	var payload struct {
		Variables map[string]interface{} `json:"variables"`
	}
	require.NoError(t, json.Unmarshal([]byte(stub.lastBody), &payload))
	assert.Equal(t, "New task", payload.Variables["title"])
	assert.Equal(t, "some body", payload.Variables["body"])
}

// TestCreateDraftItem_EmptyTitleRejectedLocally verifies validation happens
// before any network I/O: zero requests reach the server.
func TestCreateDraftItem_EmptyTitleRejectedLocally(t *testing.T) {
	client, stub := newStubClient(t, `{"data": {}}`)

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := client.CreateDraftItem(context.Background(), "proj_1", title, "")
		assert.ErrorIs(t, err, ErrEmptyTitle)
	}
	assert.EqualValues(t, 0, atomic.LoadInt32(&stub.requests))
}

func TestUpdateItemStatus(t *testing.T) {
	client, stub := newStubClient(t, `{
		"data": {
			"updateProjectV2ItemFieldValue": {
				"projectV2Item": {"id": "item_1"}
			}
		}
	}`)

	err := client.UpdateItemStatus(context.Background(), "proj_1", "item_1", "f_status", "o2")
	require.NoError(t, err)

	var payload struct {
		Variables map[string]interface{} `json:"variables"`
	}
	require.NoError(t, json.Unmarshal([]byte(stub.lastBody), &payload))
	value, ok := payload.Variables["value"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "o2", value["singleSelectOptionId"])
}

func TestUpdateItemStatus_StaleID(t *testing.T) {
	client, _ := newStubClient(t, `{
		"data": null,
		"errors": [{"message": "Could not resolve to a node with the global id of 'item_gone'"}]
	}`)

	err := client.UpdateItemStatus(context.Background(), "proj_1", "item_gone", "f_status", "o2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(errors.New("graphql: server returned a non-200 status code: 401")))
	assert.True(t, IsAuthError(errors.New("graphql: Bad credentials")))
	assert.False(t, IsAuthError(errors.New("graphql: something else")))
	assert.False(t, IsAuthError(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(errors.New("graphql: Could not resolve to a node")))
	assert.False(t, IsNotFound(errors.New("graphql: timeout")))
	assert.False(t, IsNotFound(nil))
}
