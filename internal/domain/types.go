// Package domain defines the normalized domain types for GitHub Projects v2.
// These types represent the core concepts independent of the GitHub GraphQL API structure.
package domain

// User is the authenticated GitHub user (the viewer).
type User struct {
	Login     string // GitHub login handle
	Name      string // Display name (may be empty)
	AvatarURL string // Avatar image URL
}

// Project represents a GitHub Project v2 board as an immutable snapshot.
// Fields and Items keep the order the server returned them in; the client
// never mutates a snapshot in place. Any status change triggers a full
// re-fetch that replaces the whole snapshot.
type Project struct {
	ID     string // GitHub Project node ID
	Number int    // Project number within the owner's namespace
	Title  string // Project title
	URL    string // Project board URL
	Fields []Field
	Items  []Item
}

// Field represents a project field definition.
// Only single-select fields carry Options; for every other field type
// Options is nil.
type Field struct {
	ID      string // GitHub field node ID
	Name    string // Field name (e.g., "Status")
	Options []Option
}

// IsSingleSelect reports whether the field has a fixed option set.
func (f Field) IsSingleSelect() bool {
	return len(f.Options) > 0
}

// Option represents a single option value for a single-select field.
// Option IDs are unique; names are the display/matching key.
type Option struct {
	ID   string // GitHub option node ID
	Name string // Option name displayed to users (e.g., "In Progress")
}

// Item represents one project entry (issue, PR, or draft).
type Item struct {
	ID          string       // GitHub ProjectV2Item node ID
	Content     *ItemContent // nil when the underlying issue/PR/draft was deleted
	FieldValues []FieldValue // Resolved display value per field the item has a value for
}

// ItemContent holds the displayable content of an item.
type ItemContent struct {
	Title     string
	Body      string // Optional; empty for items without a body
	CreatedAt string // ISO8601 timestamp
	UpdatedAt string // ISO8601 timestamp
}

// FieldValue is the resolved display value an item carries for one field.
// An item has at most one value per field.
type FieldValue struct {
	FieldID string // Node ID of the field this value belongs to
	Name    string // Resolved display name of the value
}

// ValueFor returns the item's resolved value for the given field ID.
// The second return is false when the item has no value for that field.
func (i Item) ValueFor(fieldID string) (string, bool) {
	for _, fv := range i.FieldValues {
		if fv.FieldID == fieldID {
			return fv.Name, true
		}
	}
	return "", false
}

// Title returns the item's display title, or a placeholder when the
// underlying content was deleted.
func (i Item) Title() string {
	if i.Content == nil {
		return "(deleted item)"
	}
	return i.Content.Title
}

// Column is a derived grouping of items sharing one status option value.
// Columns are recomputed from scratch on every project change and never
// persisted.
type Column struct {
	ID    string // Option node ID, or FallbackColumnID for the fallback view
	Name  string
	Items []Item
}

// FallbackColumnID is the synthetic column ID used when a project has no
// status field and all items are shown in a single column.
const FallbackColumnID = "all"

// FallbackColumnName is the display name of the fallback column.
const FallbackColumnName = "All Items"
