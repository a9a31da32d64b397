package models

import (
	"encoding/json"
	"testing"

	"github.com/maruel/ksid"
)

func TestDateValueUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want DateValue
	}{
		{
			name: "legacy bare string",
			in:   `"2024-03-15"`,
			want: DateValue{StartDate: "2024-03-15"},
		},
		{
			name: "object without repetition",
			in:   `{"start_date":"2024-03-15","start_time":"09:00","end_time":"10:30","repetition":false}`,
			want: DateValue{StartDate: "2024-03-15", StartTime: "09:00", EndTime: "10:30"},
		},
		{
			name: "object with weekly repetition",
			in:   `{"start_date":"2024-01-01","repetition":true,"repetition_type":"weekly","repetition_config":{"interval":2,"days_of_week":[0,2]}}`,
			want: DateValue{
				StartDate:        "2024-01-01",
				Repetition:       true,
				RepetitionType:   RepetitionWeekly,
				RepetitionConfig: RepetitionConfig{Interval: 2, DaysOfWeek: []int{0, 2}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got DateValue
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatal(err)
			}
			if got.StartDate != tt.want.StartDate || got.StartTime != tt.want.StartTime ||
				got.EndTime != tt.want.EndTime || got.Repetition != tt.want.Repetition ||
				got.RepetitionType != tt.want.RepetitionType {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if len(got.RepetitionConfig.DaysOfWeek) != len(tt.want.RepetitionConfig.DaysOfWeek) {
				t.Fatalf("days_of_week = %v, want %v", got.RepetitionConfig.DaysOfWeek, tt.want.RepetitionConfig.DaysOfWeek)
			}
		})
	}
}

func TestParseDateValueFromMap(t *testing.T) {
	// Property values decoded from JSON arrive as map[string]any.
	v := map[string]any{
		"start_date":      "2024-06-01",
		"repetition":      true,
		"repetition_type": "daily",
	}
	d, err := ParseDateValue(v)
	if err != nil {
		t.Fatal(err)
	}
	if d.StartDate != "2024-06-01" || !d.Repetition || d.RepetitionType != RepetitionDaily {
		t.Fatalf("unexpected value: %+v", d)
	}
	if _, err := ParseDateValue(nil); err == nil {
		t.Fatal("expected error for nil value")
	}
	if _, err := ParseDateValue(map[string]any{"repetition": true}); err == nil {
		t.Fatal("expected error for missing start_date")
	}
}

func TestPropertySetValue(t *testing.T) {
	rich, err := NewProperty("p1", "Notes", PropertyTypeRichText, nil)
	if err != nil {
		t.Fatal(err)
	}
	rich.SetValue("# Heading")
	if rich.RichTextContent != "# Heading" || rich.Value != nil {
		t.Fatalf("rich_text value not routed to RichTextContent: %+v", rich)
	}
	if err := rich.Validate(); err != nil {
		t.Fatal(err)
	}

	plain, err := NewProperty("p2", "Status", PropertyTypeStatus, []string{"todo", "done"})
	if err != nil {
		t.Fatal(err)
	}
	plain.SetValue("done")
	if plain.Value != "done" || plain.RichTextContent != "" {
		t.Fatalf("status value misrouted: %+v", plain)
	}

	if _, err := NewProperty("p3", "Bad", PropertyType("bogus"), nil); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestPageCloneIsDeep(t *testing.T) {
	p := &Page{
		ID:    ksid.NewID(),
		Title: "original",
		Properties: map[string]Property{
			"status": {ID: "status", Name: "Status", Type: PropertyTypeStatus, Value: "todo", Options: []string{"todo", "done"}},
		},
		Databases: []ksid.ID{ksid.NewID()},
	}
	c := p.Clone()
	prop := c.Properties["status"]
	prop.SetValue("done")
	prop.Options[0] = "changed"
	c.Properties["status"] = prop
	c.Databases[0] = ksid.NewID()

	if p.Properties["status"].Value != "todo" {
		t.Fatal("clone shares property values with original")
	}
	if p.Properties["status"].Options[0] != "todo" {
		t.Fatal("clone shares option slice with original")
	}
	if c.Databases[0] == p.Databases[0] {
		t.Fatal("clone shares database list with original")
	}
}

func TestDateValueOf(t *testing.T) {
	p := &Page{
		ID: ksid.NewID(),
		Properties: map[string]Property{
			"b_date": {ID: "b_date", Name: "Due", Type: PropertyTypeDate, Value: "2024-05-01"},
			"a_text": {ID: "a_text", Name: "Note", Type: PropertyTypeText, Value: "x"},
		},
	}
	d := DateValueOf(p)
	if d == nil || d.ID != "b_date" {
		t.Fatalf("DateValueOf = %+v, want b_date property", d)
	}
	if StatusValueOf(p) != nil {
		t.Fatal("StatusValueOf should be nil when no status property exists")
	}
}
