package recur

import (
	"slices"
	"testing"

	"github.com/maruel/notedb/internal/models"
)

func TestExpandNonRepeating(t *testing.T) {
	got := Expand(&models.DateValue{StartDate: "2024-03-15"})
	if !slices.Equal(got, []string{"2024-03-15"}) {
		t.Fatalf("got %v", got)
	}
	if got := Expand(nil); got != nil {
		t.Fatalf("nil value: got %v", got)
	}
	if got := Expand(&models.DateValue{StartDate: "not-a-date"}); got != nil {
		t.Fatalf("malformed date: got %v", got)
	}
}

func TestExpandDaily(t *testing.T) {
	d := &models.DateValue{
		StartDate:        "2024-01-01",
		Repetition:       true,
		RepetitionType:   models.RepetitionDaily,
		RepetitionConfig: models.RepetitionConfig{Interval: 3, EndDate: "2024-01-10"},
	}
	want := []string{"2024-01-01", "2024-01-04", "2024-01-07", "2024-01-10"}
	if got := Expand(d); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWeekly(t *testing.T) {
	// 2024-01-01 is a Monday. Monday=0 convention: Mon, Wed, Fri.
	d := &models.DateValue{
		StartDate:        "2024-01-01",
		Repetition:       true,
		RepetitionType:   models.RepetitionWeekly,
		RepetitionConfig: models.RepetitionConfig{DaysOfWeek: []int{0, 2, 4}, EndDate: "2024-01-12"},
	}
	want := []string{"2024-01-01", "2024-01-03", "2024-01-05", "2024-01-08", "2024-01-10", "2024-01-12"}
	if got := Expand(d); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWeeklyInterval(t *testing.T) {
	// Every second week, Mondays only. The skipped week contributes nothing.
	d := &models.DateValue{
		StartDate:        "2024-01-01",
		Repetition:       true,
		RepetitionType:   models.RepetitionWeekly,
		RepetitionConfig: models.RepetitionConfig{Interval: 2, DaysOfWeek: []int{0}, EndDate: "2024-01-29"},
	}
	want := []string{"2024-01-01", "2024-01-15", "2024-01-29"}
	if got := Expand(d); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandWeeklyDefaultsToStartWeekday(t *testing.T) {
	// No weekday set: repeat on the start date's weekday (2024-01-03 is a
	// Wednesday).
	d := &models.DateValue{
		StartDate:        "2024-01-03",
		Repetition:       true,
		RepetitionType:   models.RepetitionWeekly,
		RepetitionConfig: models.RepetitionConfig{EndDate: "2024-01-17"},
	}
	want := []string{"2024-01-03", "2024-01-10", "2024-01-17"}
	if got := Expand(d); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	// Day 31 lands on Feb 29 in a leap year and Apr 30, instead of skipping
	// those months.
	d := &models.DateValue{
		StartDate:        "2024-01-31",
		Repetition:       true,
		RepetitionType:   models.RepetitionMonthly,
		RepetitionConfig: models.RepetitionConfig{DayOfMonth: 31, EndDate: "2024-04-30"},
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
	if got := Expand(d); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandMonthlyYearRollover(t *testing.T) {
	d := &models.DateValue{
		StartDate:        "2024-11-15",
		Repetition:       true,
		RepetitionType:   models.RepetitionMonthly,
		RepetitionConfig: models.RepetitionConfig{EndDate: "2025-02-15"},
	}
	want := []string{"2024-11-15", "2024-12-15", "2025-01-15", "2025-02-15"}
	if got := Expand(d); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandCustomNormalizesSundayIndices(t *testing.T) {
	// Custom rules use Sunday=0: 1=Monday, 3=Wednesday. Must match the
	// weekly rule written in Monday=0 for the same weekdays.
	custom := &models.DateValue{
		StartDate:        "2024-01-01",
		Repetition:       true,
		RepetitionType:   models.RepetitionCustom,
		RepetitionConfig: models.RepetitionConfig{DaysOfWeek: []int{1, 3}, EndDate: "2024-01-10"},
	}
	weekly := &models.DateValue{
		StartDate:        "2024-01-01",
		Repetition:       true,
		RepetitionType:   models.RepetitionWeekly,
		RepetitionConfig: models.RepetitionConfig{DaysOfWeek: []int{0, 2}, EndDate: "2024-01-10"},
	}
	if got, want := Expand(custom), Expand(weekly); !slices.Equal(got, want) {
		t.Fatalf("custom %v != weekly %v", got, want)
	}
}

func TestExpandCapsAtOneYear(t *testing.T) {
	d := &models.DateValue{
		StartDate:      "2024-01-01",
		Repetition:     true,
		RepetitionType: models.RepetitionDaily,
	}
	got := Expand(d)
	if len(got) == 0 {
		t.Fatal("no occurrences")
	}
	if last := got[len(got)-1]; last > "2025-01-01" {
		t.Fatalf("expansion ran past the one-year cap: %s", last)
	}
	far := &models.DateValue{
		StartDate:        "2024-01-01",
		Repetition:       true,
		RepetitionType:   models.RepetitionDaily,
		RepetitionConfig: models.RepetitionConfig{EndDate: "2099-01-01"},
	}
	got = Expand(far)
	if last := got[len(got)-1]; last > "2025-01-01" {
		t.Fatalf("far end date escaped the cap: %s", last)
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	d := &models.DateValue{
		StartDate:        "2024-01-01",
		Repetition:       true,
		RepetitionType:   models.RepetitionWeekly,
		RepetitionConfig: models.RepetitionConfig{DaysOfWeek: []int{0, 2, 4}, EndDate: "2024-02-01"},
	}
	a, b := Expand(d), Expand(d)
	if !slices.Equal(a, b) {
		t.Fatalf("expansion not deterministic: %v vs %v", a, b)
	}
	if !slices.IsSorted(a) {
		t.Fatalf("expansion not sorted: %v", a)
	}
	for i := 1; i < len(a); i++ {
		if a[i] == a[i-1] {
			t.Fatalf("duplicate date %s", a[i])
		}
	}
}
