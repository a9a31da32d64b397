package storage

import (
	"context"
	"slices"

	"github.com/maruel/notedb/internal/models"
	"github.com/maruel/notedb/internal/recur"
)

// CalendarService projects pages with date properties onto a date range.
type CalendarService struct {
	repo Repository
}

// NewCalendarService creates a CalendarService.
func NewCalendarService(repo Repository) *CalendarService {
	return &CalendarService{repo: repo}
}

// Items returns every occurrence falling within [from, to], both inclusive
// YYYY-MM-DD bounds, sorted by date then page ID. Pages without a date
// property, or with an unparseable one, contribute nothing.
func (s *CalendarService) Items(ctx context.Context, from, to string) []models.CalendarItem {
	var items []models.CalendarItem
	for _, page := range s.repo.Pages() {
		prop := models.DateValueOf(page)
		if prop == nil {
			continue
		}
		d, err := models.ParseDateValue(prop.Value)
		if err != nil {
			continue
		}
		for _, date := range recur.Expand(d) {
			if date < from || date > to {
				continue
			}
			items = append(items, models.CalendarItem{
				PageID:      page.ID,
				Title:       page.Title,
				Date:        date,
				StartTime:   d.StartTime,
				EndTime:     d.EndTime,
				IsRepeating: d.Repetition,
				IsAllDay:    d.IsAllDay(),
			})
		}
	}
	slices.SortFunc(items, func(a, b models.CalendarItem) int {
		if a.Date != b.Date {
			if a.Date < b.Date {
				return -1
			}
			return 1
		}
		as, bs := a.PageID.String(), b.PageID.String()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	})
	return items
}
