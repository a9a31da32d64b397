// Package recur expands repeating date values into concrete occurrence dates.
package recur

import (
	"log/slog"
	"slices"
	"time"

	"github.com/maruel/notedb/internal/models"
)

const dateLayout = "2006-01-02"

// maxSpan caps the expansion horizon relative to the start date. Rules with a
// later (or absent) end date are truncated, not rejected.
const maxSpan = 365 * 24 * time.Hour

// Expand returns the concrete occurrence dates of a date value, sorted
// ascending and deduplicated, formatted as YYYY-MM-DD.
//
// A non-repeating value yields its start date alone. Malformed dates yield an
// empty slice; failures are logged, never returned, so a single bad property
// cannot break a calendar view.
func Expand(d *models.DateValue) []string {
	if d == nil || d.StartDate == "" {
		return nil
	}
	start, err := time.Parse(dateLayout, d.StartDate)
	if err != nil {
		slog.Warn("recur: unparseable start date", "date", d.StartDate, "err", err)
		return nil
	}
	if !d.Repetition {
		return []string{d.StartDate}
	}

	end := endOf(start, d.RepetitionConfig.EndDate)
	interval := d.RepetitionConfig.Interval
	if interval < 1 {
		interval = 1
	}

	var dates []time.Time
	switch d.RepetitionType {
	case models.RepetitionDaily:
		dates = expandDaily(start, end, interval)
	case models.RepetitionWeekly:
		dates = expandWeekly(start, end, interval, d.RepetitionConfig.DaysOfWeek)
	case models.RepetitionMonthly:
		dates = expandMonthly(start, end, interval, d.RepetitionConfig.DayOfMonth)
	case models.RepetitionCustom:
		// Custom rules carry Sunday=0 weekday indices; weekly uses Monday=0.
		// Normalize once, then share the weekly machinery.
		days := make([]int, 0, len(d.RepetitionConfig.DaysOfWeek))
		for _, w := range d.RepetitionConfig.DaysOfWeek {
			days = append(days, (w+6)%7)
		}
		dates = expandWeekly(start, end, interval, days)
	default:
		slog.Warn("recur: unknown repetition type", "type", d.RepetitionType)
		return []string{d.StartDate}
	}

	out := make([]string, 0, len(dates))
	for _, t := range dates {
		out = append(out, t.Format(dateLayout))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// endOf resolves the expansion horizon: the configured end date when present
// and parseable, otherwise one year from start, never beyond one year.
func endOf(start time.Time, endDate string) time.Time {
	horizon := start.Add(maxSpan)
	if endDate == "" {
		return horizon
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		slog.Warn("recur: unparseable end date", "date", endDate, "err", err)
		return horizon
	}
	if end.After(horizon) {
		return horizon
	}
	return end
}

func expandDaily(start, end time.Time, interval int) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, interval) {
		out = append(out, d)
	}
	return out
}

// expandWeekly iterates day by day over Monday-aligned week blocks, keeping
// days whose week offset from the start's week is a multiple of interval and
// whose weekday is in days (Monday=0). An empty days set falls back to the
// start date's weekday.
func expandWeekly(start, end time.Time, interval int, days []int) []time.Time {
	if len(days) == 0 {
		days = []int{mondayIndex(start.Weekday())}
	}
	wanted := make(map[int]bool, len(days))
	for _, d := range days {
		wanted[((d%7)+7)%7] = true
	}
	weekStart := start.AddDate(0, 0, -mondayIndex(start.Weekday()))
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		weeks := int(d.Sub(weekStart).Hours()/24) / 7
		if weeks%interval != 0 {
			continue
		}
		if wanted[mondayIndex(d.Weekday())] {
			out = append(out, d)
		}
	}
	return out
}

// expandMonthly emits one occurrence per interval months on the configured
// day of month (defaulting to the start's day), clamping to the last day of
// shorter months instead of skipping them.
func expandMonthly(start, end time.Time, interval, dayOfMonth int) []time.Time {
	if dayOfMonth < 1 {
		dayOfMonth = start.Day()
	}
	var out []time.Time
	year, month := start.Year(), int(start.Month())
	for {
		day := min(dayOfMonth, daysInMonth(year, month))
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if d.After(end) {
			break
		}
		if !d.Before(start) {
			out = append(out, d)
		}
		month += interval
		for month > 12 {
			month -= 12
			year++
		}
	}
	return out
}

// mondayIndex maps time.Weekday (Sunday=0) to the Monday=0 convention.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
