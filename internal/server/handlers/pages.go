package handlers

import (
	"context"
	"log/slog"
	"time"

	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/models"
	"github.com/maruel/notedb/internal/storage"
)

// PageHandler serves the /api/pages endpoints.
type PageHandler struct {
	svc *Services
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(svc *Services) *PageHandler {
	return &PageHandler{svc: svc}
}

// PageResponse is a page plus rendered HTML for its rich text properties,
// keyed by property ID.
type PageResponse struct {
	Page     *models.Page      `json:"page"`
	Rendered map[string]string `json:"rendered,omitempty"`
}

func (h *PageHandler) pageResponse(page *models.Page) *PageResponse {
	resp := &PageResponse{Page: page}
	for id, prop := range page.Properties {
		if prop.Type != models.PropertyTypeRichText || prop.RichTextContent == "" {
			continue
		}
		html, err := h.svc.Markdown.Render(prop.RichTextContent)
		if err != nil {
			slog.Warn("failed to render rich text property", "page", page.ID, "property", id, "err", err)
			continue
		}
		if resp.Rendered == nil {
			resp.Rendered = make(map[string]string)
		}
		resp.Rendered[id] = html
	}
	return resp
}

// ListPagesRequest is the request for ListPages.
type ListPagesRequest struct{}

// ListPagesResponse is the response for ListPages.
type ListPagesResponse struct {
	Pages []*models.Page `json:"pages"`
}

// ListPages returns all pages.
func (h *PageHandler) ListPages(ctx context.Context, _ ListPagesRequest) (*ListPagesResponse, error) {
	return &ListPagesResponse{Pages: h.svc.Hierarchy.ListPages(ctx)}, nil
}

// GetPageRequest is the request for GetPage.
type GetPageRequest struct {
	ID string `path:"id"`
}

// GetPage returns a single page with rendered rich text.
func (h *PageHandler) GetPage(ctx context.Context, req GetPageRequest) (*PageResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	page, err := h.svc.Hierarchy.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.pageResponse(page), nil
}

// CreatePageRequest is the request for CreatePage.
type CreatePageRequest struct {
	Title            string                     `json:"title"`
	Properties       map[string]models.Property `json:"properties,omitempty"`
	ParentDatabaseID string                     `json:"parent_database_id,omitempty"`
}

// CreatePage creates a page, optionally under a parent database.
func (h *PageHandler) CreatePage(ctx context.Context, req CreatePageRequest) (*PageResponse, error) {
	if req.Title == "" {
		return nil, apierrors.MissingField("title")
	}
	parentID, err := parseOptionalID("parent_database_id", req.ParentDatabaseID)
	if err != nil {
		return nil, err
	}
	page, err := h.svc.Hierarchy.CreatePage(ctx, req.Title, req.Properties, parentID)
	if err != nil {
		return nil, err
	}
	return h.pageResponse(page), nil
}

// UpdatePageRequest is the request for UpdatePage.
type UpdatePageRequest struct {
	ID         string                     `path:"id"`
	Title      *string                    `json:"title,omitempty"`
	Properties map[string]models.Property `json:"properties,omitempty"`
}

// UpdatePage updates a page's title and/or properties.
func (h *PageHandler) UpdatePage(ctx context.Context, req UpdatePageRequest) (*PageResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	page, err := h.svc.Hierarchy.UpdatePage(ctx, id, req.Title, req.Properties)
	if err != nil {
		return nil, err
	}
	return h.pageResponse(page), nil
}

// DeletePageRequest is the request for DeletePage.
type DeletePageRequest struct {
	ID string `path:"id"`
}

// DeletePageResponse is the response for DeletePage.
type DeletePageResponse struct {
	Deleted bool `json:"deleted"`
}

// DeletePage deletes a page and its whole subtree.
func (h *PageHandler) DeletePage(ctx context.Context, req DeletePageRequest) (*DeletePageResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Hierarchy.DeletePage(ctx, id); err != nil {
		return nil, err
	}
	return &DeletePageResponse{Deleted: true}, nil
}

// PathRequest is the request for GetPath.
type PathRequest struct {
	ID   string `path:"id"`
	Kind string `query:"kind"`
}

// PathResponse is the response for GetPath.
type PathResponse struct {
	Path []models.PathEntry `json:"path"`
}

// GetPath returns the root-to-node ancestry chain. Kind defaults to page.
func (h *PageHandler) GetPath(ctx context.Context, req PathRequest) (*PathResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	kind := models.NodeKind(req.Kind)
	if kind == "" {
		kind = models.KindPage
	}
	path, err := h.svc.Hierarchy.PathToRoot(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	return &PathResponse{Path: path}, nil
}

// HistoryRequest is the request for GetHistory.
type HistoryRequest struct {
	ID    string `path:"id"`
	Limit int    `query:"limit"`
}

// HistoryResponse is the response for GetHistory.
type HistoryResponse struct {
	Commits []storage.Commit `json:"commits"`
}

// GetHistory returns the data directory commits, newest first. Available
// only when versioning is enabled.
func (h *PageHandler) GetHistory(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	if h.svc.Git == nil {
		return nil, apierrors.NewAPIError(503, apierrors.ErrStorageError, "versioning is disabled")
	}
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if _, err := h.svc.Hierarchy.GetPage(ctx, id); err != nil {
		return nil, err
	}
	commits, err := h.svc.Git.History(ctx, "", req.Limit)
	if err != nil {
		return nil, apierrors.InternalWithError("failed to read history", err)
	}
	return &HistoryResponse{Commits: commits}, nil
}

// SharePageRequest is the request for SharePage.
type SharePageRequest struct {
	ID       string `path:"id"`
	TTLHours int    `json:"ttl_hours,omitempty"`
}

// SharePageResponse is the response for SharePage.
type SharePageResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SharePage issues a read-only share token for the page.
func (h *PageHandler) SharePage(ctx context.Context, req SharePageRequest) (*SharePageResponse, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if req.TTLHours < 0 {
		return nil, apierrors.BadRequest("ttl_hours must not be negative")
	}
	if _, err := h.svc.Hierarchy.GetPage(ctx, id); err != nil {
		return nil, err
	}
	token, expiresAt, err := h.svc.Sharing.Issue(id, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		return nil, apierrors.InternalWithError("failed to issue share token", err)
	}
	return &SharePageResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// SharedPageRequest is the request for GetSharedPage.
type SharedPageRequest struct {
	Token string `path:"token"`
}

// GetSharedPage resolves a share token and returns the shared page.
func (h *PageHandler) GetSharedPage(ctx context.Context, req SharedPageRequest) (*PageResponse, error) {
	id, err := h.svc.Sharing.Verify(req.Token)
	if err != nil {
		return nil, err
	}
	page, err := h.svc.Hierarchy.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.pageResponse(page), nil
}
