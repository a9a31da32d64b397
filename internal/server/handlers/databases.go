package handlers

import (
	"context"

	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/models"
)

// DatabaseHandler serves the /api/databases endpoints.
type DatabaseHandler struct {
	svc *Services
}

// NewDatabaseHandler creates a DatabaseHandler.
func NewDatabaseHandler(svc *Services) *DatabaseHandler {
	return &DatabaseHandler{svc: svc}
}

// ListDatabasesRequest is the request for ListDatabases.
type ListDatabasesRequest struct{}

// ListDatabasesResponse is the response for ListDatabases.
type ListDatabasesResponse struct {
	Databases []*models.Database `json:"databases"`
}

// ListDatabases returns all databases.
func (h *DatabaseHandler) ListDatabases(ctx context.Context, _ ListDatabasesRequest) (*ListDatabasesResponse, error) {
	return &ListDatabasesResponse{Databases: h.svc.Hierarchy.ListDatabases(ctx)}, nil
}

// GetDatabaseRequest is the request for GetDatabase.
type GetDatabaseRequest struct {
	ID string `path:"id"`
}

// DatabaseResponse is a single database.
type DatabaseResponse struct {
	Database *models.Database `json:"database"`
}

// GetDatabase returns a single database.
func (h *DatabaseHandler) GetDatabase(ctx context.Context, req GetDatabaseRequest) (*DatabaseResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	db, err := h.svc.Hierarchy.GetDatabase(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DatabaseResponse{Database: db}, nil
}

// CreateDatabaseRequest is the request for CreateDatabase.
type CreateDatabaseRequest struct {
	Name         string                     `json:"name"`
	Properties   map[string]models.Property `json:"properties,omitempty"`
	Color        string                     `json:"color,omitempty"`
	ParentPageID string                     `json:"parent_page_id,omitempty"`
}

// CreateDatabase creates a database, optionally under a parent page.
func (h *DatabaseHandler) CreateDatabase(ctx context.Context, req CreateDatabaseRequest) (*DatabaseResponse, error) {
	if req.Name == "" {
		return nil, apierrors.MissingField("name")
	}
	parentID, err := parseOptionalID("parent_page_id", req.ParentPageID)
	if err != nil {
		return nil, err
	}
	db, err := h.svc.Hierarchy.CreateDatabase(ctx, req.Name, req.Properties, req.Color, parentID)
	if err != nil {
		return nil, err
	}
	return &DatabaseResponse{Database: db}, nil
}

// UpdateDatabaseRequest is the request for UpdateDatabase.
type UpdateDatabaseRequest struct {
	ID         string                     `path:"id"`
	Name       *string                    `json:"name,omitempty"`
	Color      *string                    `json:"color,omitempty"`
	Properties map[string]models.Property `json:"properties,omitempty"`
}

// UpdateDatabase updates a database's name, color and/or property schema.
func (h *DatabaseHandler) UpdateDatabase(ctx context.Context, req UpdateDatabaseRequest) (*DatabaseResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	db, err := h.svc.Hierarchy.UpdateDatabase(ctx, id, req.Name, req.Color, req.Properties)
	if err != nil {
		return nil, err
	}
	return &DatabaseResponse{Database: db}, nil
}

// DeleteDatabaseRequest is the request for DeleteDatabase.
type DeleteDatabaseRequest struct {
	ID string `path:"id"`
}

// DeleteDatabaseResponse is the response for DeleteDatabase.
type DeleteDatabaseResponse struct {
	Deleted bool `json:"deleted"`
}

// DeleteDatabase deletes a database and its whole subtree.
func (h *DatabaseHandler) DeleteDatabase(ctx context.Context, req DeleteDatabaseRequest) (*DeleteDatabaseResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Hierarchy.DeleteDatabase(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteDatabaseResponse{Deleted: true}, nil
}
