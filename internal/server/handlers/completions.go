package handlers

import (
	"context"

	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/models"
)

// CompletionHandler serves the per-page completion endpoints.
type CompletionHandler struct {
	svc *Services
}

// NewCompletionHandler creates a CompletionHandler.
func NewCompletionHandler(svc *Services) *CompletionHandler {
	return &CompletionHandler{svc: svc}
}

// ListCompletionsRequest is the request for ListCompletions.
type ListCompletionsRequest struct {
	ID string `path:"id"`
}

// ListCompletionsResponse is the response for ListCompletions.
type ListCompletionsResponse struct {
	Logs []*models.CompletionLog `json:"logs"`
}

// ListCompletions returns all completion logs for a page.
func (h *CompletionHandler) ListCompletions(ctx context.Context, req ListCompletionsRequest) (*ListCompletionsResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	logs, err := h.svc.Completion.Logs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ListCompletionsResponse{Logs: logs}, nil
}

// MarkCompletedRequest is the request for MarkCompleted. Completed defaults
// to true when omitted.
type MarkCompletedRequest struct {
	ID        string `path:"id"`
	Date      string `json:"date"`
	Completed *bool  `json:"completed"`
}

// MarkCompletedResponse is the response for MarkCompleted.
type MarkCompletedResponse struct {
	Log *models.CompletionLog `json:"log"`
}

// MarkCompleted upserts the completion state of a (page, date) occurrence.
func (h *CompletionHandler) MarkCompleted(ctx context.Context, req MarkCompletedRequest) (*MarkCompletedResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if req.Date == "" {
		return nil, apierrors.MissingField("date")
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	log, err := h.svc.Completion.MarkCompleted(ctx, id, req.Date, completed)
	if err != nil {
		return nil, err
	}
	return &MarkCompletedResponse{Log: log}, nil
}
