package gh

import (
	"context"
	"fmt"

	"ghswipe/internal/domain"
	"github.com/machinebox/graphql"
)

// Page limits for the single-page fetch. The client deliberately reads
// only the first page of each connection; anything beyond is truncated.
const (
	maxProjects    = 20
	maxFields      = 20
	maxItems       = 100
	maxFieldValues = 20
)

// GetCurrentUser returns the authenticated user (the viewer).
func (c *Client) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	req := graphql.NewRequest(`
		query {
			viewer {
				login
				name
				avatarUrl
			}
		}
	`)

	var resp struct {
		Viewer struct {
			Login     string `json:"login"`
			Name      string `json:"name"`
			AvatarURL string `json:"avatarUrl"`
		} `json:"viewer"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return &domain.User{
		Login:     resp.Viewer.Login,
		Name:      resp.Viewer.Name,
		AvatarURL: resp.Viewer.AvatarURL,
	}, nil
}

// projectNode is the raw GraphQL shape of a project with its fields,
// items, and resolved single-select field values.
type projectNode struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Fields struct {
		Nodes []struct {
			Typename string `json:"__typename"`
			ID       string `json:"id"`
			Name     string `json:"name"`
			Options  []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"options"`
		} `json:"nodes"`
	} `json:"fields"`
	Items struct {
		Nodes []struct {
			ID      string `json:"id"`
			Content *struct {
				Typename  string `json:"__typename"`
				Title     string `json:"title"`
				Body      string `json:"body"`
				CreatedAt string `json:"createdAt"`
				UpdatedAt string `json:"updatedAt"`
			} `json:"content"`
			FieldValues struct {
				Nodes []struct {
					Field *struct {
						ID   string `json:"id"`
						Name string `json:"name"`
					} `json:"field"`
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"fieldValues"`
		} `json:"nodes"`
	} `json:"items"`
}

// GetProjects fetches the owner's projects with fields, items, and field
// values in one query, mapped to immutable domain snapshots. Only the
// first page of each connection is fetched; longer lists are silently
// truncated.
func (c *Client) GetProjects(ctx context.Context, owner string) ([]domain.Project, error) {
	req := graphql.NewRequest(`
		query($owner: String!, $projects: Int!, $fields: Int!, $items: Int!, $values: Int!) {
			user(login: $owner) {
				projectsV2(first: $projects) {
					nodes {
						id
						number
						title
						url
						fields(first: $fields) {
							nodes {
								... on ProjectV2SingleSelectField {
									__typename
									id
									name
									options {
										id
										name
									}
								}
								... on ProjectV2Field {
									__typename
									id
									name
								}
							}
						}
						items(first: $items) {
							nodes {
								id
								content {
									... on Issue {
										__typename
										title
										body
										createdAt
										updatedAt
									}
									... on PullRequest {
										__typename
										title
										body
										createdAt
										updatedAt
									}
									... on DraftIssue {
										__typename
										title
										body
										createdAt
										updatedAt
									}
								}
								fieldValues(first: $values) {
									nodes {
										... on ProjectV2ItemFieldSingleSelectValue {
											field {
												... on ProjectV2SingleSelectField {
													id
													name
												}
											}
											name
										}
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("owner", owner)
	req.Var("projects", maxProjects)
	req.Var("fields", maxFields)
	req.Var("items", maxItems)
	req.Var("values", maxFieldValues)

	var resp struct {
		User struct {
			ProjectsV2 struct {
				Nodes []projectNode `json:"nodes"`
			} `json:"projectsV2"`
		} `json:"user"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}

	projects := make([]domain.Project, 0, len(resp.User.ProjectsV2.Nodes))
	for _, node := range resp.User.ProjectsV2.Nodes {
		projects = append(projects, mapProject(node))
	}
	return projects, nil
}

// GetProject re-fetches a single project snapshot by number. Used for the
// full reload after a mutation.
func (c *Client) GetProject(ctx context.Context, owner string, number int) (*domain.Project, error) {
	projects, err := c.GetProjects(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Number == number {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("project #%d not found for %s", number, owner)
}

// mapProject converts the raw GraphQL node into a domain snapshot,
// preserving server order for fields and items.
func mapProject(node projectNode) domain.Project {
	project := domain.Project{
		ID:     node.ID,
		Number: node.Number,
		Title:  node.Title,
		URL:    node.URL,
	}

	project.Fields = make([]domain.Field, 0, len(node.Fields.Nodes))
	for _, f := range node.Fields.Nodes {
		field := domain.Field{ID: f.ID, Name: f.Name}
		if len(f.Options) > 0 {
			field.Options = make([]domain.Option, 0, len(f.Options))
			for _, opt := range f.Options {
				field.Options = append(field.Options, domain.Option{ID: opt.ID, Name: opt.Name})
			}
		}
		project.Fields = append(project.Fields, field)
	}

	project.Items = make([]domain.Item, 0, len(node.Items.Nodes))
	for _, it := range node.Items.Nodes {
		item := domain.Item{ID: it.ID}

		if it.Content != nil && it.Content.Typename != "" {
			item.Content = &domain.ItemContent{
				Title:     it.Content.Title,
				Body:      it.Content.Body,
				CreatedAt: it.Content.CreatedAt,
				UpdatedAt: it.Content.UpdatedAt,
			}
		}

		for _, fv := range it.FieldValues.Nodes {
			// Non-single-select values come back as empty fragments.
			if fv.Field == nil || fv.Field.ID == "" {
				continue
			}
			item.FieldValues = append(item.FieldValues, domain.FieldValue{
				FieldID: fv.Field.ID,
				Name:    fv.Name,
			})
		}

		project.Items = append(project.Items, item)
	}

	return project
}
