// Package handlers implements the REST API endpoints.
package handlers

import (
	"github.com/maruel/ksid"
	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/markdown"
	"github.com/maruel/notedb/internal/sharing"
	"github.com/maruel/notedb/internal/storage"
)

// Services bundles the dependencies the handlers need.
type Services struct {
	Hierarchy  *storage.HierarchyService
	Completion *storage.CompletionService
	Calendar   *storage.CalendarService
	Sharing    *sharing.Manager
	Markdown   *markdown.Renderer
	Git        *storage.Git
	Store      *storage.Store
}

// parseID parses a route ID parameter, mapping failures to a 400.
func parseID(field, raw string) (ksid.ID, error) {
	if raw == "" {
		var zero ksid.ID
		return zero, apierrors.MissingField(field)
	}
	id, err := ksid.Parse(raw)
	if err != nil {
		var zero ksid.ID
		return zero, apierrors.InvalidFormat(field, "ID").Wrap(err)
	}
	return id, nil
}

// parseOptionalID parses an optional ID, returning the zero ID for "".
func parseOptionalID(field, raw string) (ksid.ID, error) {
	var zero ksid.ID
	if raw == "" {
		return zero, nil
	}
	id, err := ksid.Parse(raw)
	if err != nil {
		return zero, apierrors.InvalidFormat(field, "ID").Wrap(err)
	}
	return id, nil
}
