package handlers

import (
	"context"
	"time"

	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/models"
)

// CalendarHandler serves the /api/calendar endpoint.
type CalendarHandler struct {
	svc *Services
}

// NewCalendarHandler creates a CalendarHandler.
func NewCalendarHandler(svc *Services) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

// CalendarRequest is the request for GetCalendar.
type CalendarRequest struct {
	From string `query:"from"`
	To   string `query:"to"`
}

// CalendarEntry is a calendar item enriched with its completion state.
type CalendarEntry struct {
	models.CalendarItem
	Completed bool `json:"completed"`
}

// CalendarResponse is the response for GetCalendar.
type CalendarResponse struct {
	Items []CalendarEntry `json:"items"`
}

// GetCalendar returns all occurrences in [from, to], each carrying its
// completion state. Each missing bound defaults to the current month's edge.
func (h *CalendarHandler) GetCalendar(ctx context.Context, req CalendarRequest) (*CalendarResponse, error) {
	from, to := req.From, req.To
	if from == "" || to == "" {
		now := time.Now()
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		if from == "" {
			from = first.Format("2006-01-02")
		}
		if to == "" {
			to = first.AddDate(0, 1, -1).Format("2006-01-02")
		}
	}
	for _, v := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return nil, apierrors.InvalidFormat("from/to", "YYYY-MM-DD")
		}
	}
	if to < from {
		return nil, apierrors.BadRequest("to must not precede from")
	}

	items := h.svc.Calendar.Items(ctx, from, to)
	entries := make([]CalendarEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, CalendarEntry{
			CalendarItem: it,
			Completed:    h.svc.Completion.IsCompleted(it.PageID, it.Date),
		})
	}
	return &CalendarResponse{Items: entries}, nil
}
