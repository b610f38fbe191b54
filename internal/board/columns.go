// Package board derives the kanban column structure from a project
// snapshot. The functions here are pure: same snapshot in, same columns
// out, recomputed from scratch on every change - no incremental patching.
package board

import (
	"strings"

	"ghswipe/internal/domain"
)

// FindStatusField scans the project's fields in server order for the field
// to group by: the first single-select field whose name contains "status",
// case-insensitively. Returns nil when no field qualifies.
func FindStatusField(fields []domain.Field) *domain.Field {
	for i := range fields {
		if !fields[i].IsSingleSelect() {
			continue
		}
		if strings.Contains(strings.ToLower(fields[i].Name), "status") {
			return &fields[i]
		}
	}
	return nil
}

// DeriveColumns builds the ordered column list for a project snapshot.
//
// With a status field, one column is created per option in option order,
// holding every item whose resolved value for that field equals the option
// name. Items carry at most one value per field, so no item lands in more
// than one column; items with no value for the field land in none.
//
// Without a status field the result is a single fallback column holding
// every item in original order. Even an empty project yields that one
// column - "no columns" only happens when the project itself is absent.
func DeriveColumns(project *domain.Project) []domain.Column {
	if project == nil {
		return nil
	}

	field := FindStatusField(project.Fields)
	if field == nil {
		items := make([]domain.Item, len(project.Items))
		copy(items, project.Items)
		return []domain.Column{{
			ID:    domain.FallbackColumnID,
			Name:  domain.FallbackColumnName,
			Items: items,
		}}
	}

	columns := make([]domain.Column, 0, len(field.Options))
	for _, opt := range field.Options {
		col := domain.Column{ID: opt.ID, Name: opt.Name, Items: []domain.Item{}}
		for _, item := range project.Items {
			if value, ok := item.ValueFor(field.ID); ok && value == opt.Name {
				col.Items = append(col.Items, item)
			}
		}
		columns = append(columns, col)
	}
	return columns
}
