package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/machinebox/graphql"
)

// CreateDraftItem adds a draft issue to a project and returns the new
// item's node ID. The title is validated locally; an empty or
// whitespace-only title is rejected with ErrEmptyTitle before any network
// call. Body is optional.
func (c *Client) CreateDraftItem(ctx context.Context, projectID, title, body string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", ErrEmptyTitle
	}

	req := graphql.NewRequest(`
		mutation($projectId: ID!, $title: String!, $body: String) {
			addProjectV2DraftIssue(input: {
				projectId: $projectId
				title: $title
				body: $body
			}) {
				projectItem {
					id
				}
			}
		}
	`)
	req.Var("projectId", projectID)
	req.Var("title", title)
	if body != "" {
		req.Var("body", body)
	} else {
		req.Var("body", nil)
	}

	var resp struct {
		AddProjectV2DraftIssue struct {
			ProjectItem struct {
				ID string `json:"id"`
			} `json:"projectItem"`
		} `json:"addProjectV2DraftIssue"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("failed to create draft item: %w", err)
	}

	return resp.AddProjectV2DraftIssue.ProjectItem.ID, nil
}

// UpdateItemStatus sets an item's single-select field to the given option.
// Stale ids (project/item/field/option deleted concurrently) surface as
// the provider's resolution error, detectable with IsNotFound.
func (c *Client) UpdateItemStatus(ctx context.Context, projectID, itemID, fieldID, optionID string) error {
	req := graphql.NewRequest(`
		mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
			updateProjectV2ItemFieldValue(
				input: {
					projectId: $projectId
					itemId: $itemId
					fieldId: $fieldId
					value: $value
				}
			) {
				projectV2Item {
					id
				}
			}
		}
	`)
	req.Var("projectId", projectID)
	req.Var("itemId", itemID)
	req.Var("fieldId", fieldID)
	req.Var("value", map[string]interface{}{
		"singleSelectOptionId": optionID,
	})

	var resp struct {
		UpdateProjectV2ItemFieldValue struct {
			ProjectV2Item struct {
				ID string `json:"id"`
			} `json:"projectV2Item"`
		} `json:"updateProjectV2ItemFieldValue"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}

	return nil
}
