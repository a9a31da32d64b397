package handlers

import (
	"context"

	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/jsonldb"
	"github.com/maruel/notedb/internal/models"
)

// SchemaHandler serves the /api/schema endpoint.
type SchemaHandler struct{}

// NewSchemaHandler creates a SchemaHandler.
func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

// SchemaRequest is the request for GetSchema.
type SchemaRequest struct{}

// SchemaResponse describes the columns of every table file.
type SchemaResponse struct {
	Tables map[string][]jsonldb.Column `json:"tables"`
}

// GetSchema returns the storage schema derived from the entity types, the
// same definitions written to each table file's header line.
func (h *SchemaHandler) GetSchema(ctx context.Context, _ SchemaRequest) (*SchemaResponse, error) {
	tables := map[string]func() ([]jsonldb.Column, error){
		"pages":           jsonldb.Columns[models.Page],
		"databases":       jsonldb.Columns[models.Database],
		"blocks":          jsonldb.Columns[models.Block],
		"completion_logs": jsonldb.Columns[models.CompletionLog],
	}
	resp := &SchemaResponse{Tables: make(map[string][]jsonldb.Column, len(tables))}
	for name, cols := range tables {
		c, err := cols()
		if err != nil {
			return nil, apierrors.InternalWithError("failed to derive schema", err)
		}
		resp.Tables[name] = c
	}
	return resp, nil
}
