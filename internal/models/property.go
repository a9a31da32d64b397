package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// PropertyType represents the type of a page or database property.
type PropertyType string

const (
	// PropertyTypeText stores plain text values.
	PropertyTypeText PropertyType = "text"
	// PropertyTypeRichText stores markdown content rendered to HTML on read.
	PropertyTypeRichText PropertyType = "rich_text"
	// PropertyTypeNumber stores numeric values (integer or float).
	PropertyTypeNumber PropertyType = "number"
	// PropertyTypeSelect stores a single selection from predefined options.
	PropertyTypeSelect PropertyType = "select"
	// PropertyTypeStatus stores a workflow status from predefined options.
	PropertyTypeStatus PropertyType = "status"
	// PropertyTypeDate stores a date value, optionally with a repetition rule.
	PropertyTypeDate PropertyType = "date"
)

// knownPropertyTypes is the closed set of valid property types.
var knownPropertyTypes = map[PropertyType]bool{
	PropertyTypeText:     true,
	PropertyTypeRichText: true,
	PropertyTypeNumber:   true,
	PropertyTypeSelect:   true,
	PropertyTypeStatus:   true,
	PropertyTypeDate:     true,
}

// Property represents a typed, named attribute attached to a Page (with a
// value) or a Database (schema definition only).
//
// Value and RichTextContent are mutually exclusive storage for the same
// logical value: RichTextContent is populated if and only if Type is
// rich_text. SetValue maintains the invariant; construct properties through
// NewProperty or SetValue rather than writing the fields directly.
type Property struct {
	ID              string       `json:"id" jsonschema:"description=Property identifier (unique within its entity)"`
	Name            string       `json:"name" jsonschema:"description=Display name"`
	Type            PropertyType `json:"type" jsonschema:"description=Property type (text/rich_text/number/select/status/date)"`
	Value           any          `json:"value,omitempty" jsonschema:"description=Property value for all types except rich_text"`
	Options         []string     `json:"options,omitempty" jsonschema:"description=Allowed values for select and status types"`
	RichTextContent string       `json:"rich_text_content,omitempty" jsonschema:"description=Markdown content when type is rich_text"`
}

// NewProperty creates a property of the given type with no value.
func NewProperty(id, name string, typ PropertyType, options []string) (*Property, error) {
	if !knownPropertyTypes[typ] {
		return nil, fmt.Errorf("unknown property type %q", typ)
	}
	p := &Property{ID: id, Name: name, Type: typ}
	if typ == PropertyTypeSelect || typ == PropertyTypeStatus {
		p.Options = options
	}
	return p, nil
}

// Clone returns a deep copy of the Property.
func (p *Property) Clone() *Property {
	c := *p
	if p.Options != nil {
		c.Options = append([]string(nil), p.Options...)
	}
	return &c
}

// Validate checks the property's structural invariants.
func (p *Property) Validate() error {
	if p.ID == "" {
		return errors.New("property id is required")
	}
	if !knownPropertyTypes[p.Type] {
		return fmt.Errorf("unknown property type %q", p.Type)
	}
	if p.Type != PropertyTypeRichText && p.RichTextContent != "" {
		return fmt.Errorf("property %s: rich_text_content set on %s property", p.ID, p.Type)
	}
	if p.Type == PropertyTypeRichText && p.Value != nil {
		return fmt.Errorf("property %s: value set on rich_text property", p.ID)
	}
	return nil
}

// SetValue updates the property's value, keeping Value and RichTextContent
// mutually exclusive.
func (p *Property) SetValue(v any) {
	if p.Type == PropertyTypeRichText {
		s, _ := v.(string)
		p.RichTextContent = s
		p.Value = nil
		return
	}
	p.Value = v
	p.RichTextContent = ""
}

// DateValueOf returns the first property of type date on the page, or nil. A
// page is assumed to have at most one meaningful date property for calendar
// purposes.
func DateValueOf(p *Page) *Property {
	return firstOfType(p, PropertyTypeDate)
}

// StatusValueOf returns the first property of type status on the page, or nil.
func StatusValueOf(p *Page) *Property {
	return firstOfType(p, PropertyTypeStatus)
}

func firstOfType(p *Page, typ PropertyType) *Property {
	// Iterate IDs in sorted order so "first" is deterministic across calls.
	ids := make([]string, 0, len(p.Properties))
	for id := range p.Properties {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if prop := p.Properties[id]; prop.Type == typ {
			return prop.Clone()
		}
	}
	return nil
}

// RepetitionType identifies the recurrence rule family of a date property.
type RepetitionType string

const (
	// RepetitionDaily repeats every interval days.
	RepetitionDaily RepetitionType = "daily"
	// RepetitionWeekly repeats on selected weekdays every interval weeks.
	RepetitionWeekly RepetitionType = "weekly"
	// RepetitionMonthly repeats on a day of month every interval months.
	RepetitionMonthly RepetitionType = "monthly"
	// RepetitionCustom repeats on a caller-supplied weekday set (Sunday=0
	// convention) every interval weeks.
	RepetitionCustom RepetitionType = "custom"
)

// RepetitionConfig tunes a repetition rule. All fields are optional.
type RepetitionConfig struct {
	Interval   int    `json:"interval,omitempty"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
	DayOfMonth int    `json:"day_of_month,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
}

// DateValue is the persisted value of a date property.
//
// The wire shape is either a structured object or, for backward
// compatibility, a bare ISO date string treated as a single non-repeating
// occurrence.
type DateValue struct {
	StartDate        string           `json:"start_date"`
	StartTime        string           `json:"start_time,omitempty"`
	EndTime          string           `json:"end_time,omitempty"`
	Repetition       bool             `json:"repetition"`
	RepetitionType   RepetitionType   `json:"repetition_type,omitempty"`
	RepetitionConfig RepetitionConfig `json:"repetition_config,omitempty"`
}

// UnmarshalJSON accepts both the structured object form and the legacy bare
// date string form.
func (d *DateValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DateValue{StartDate: s}
		return nil
	}
	type alias DateValue
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = DateValue(a)
	return nil
}

// IsAllDay reports whether the value carries no time-of-day component.
func (d *DateValue) IsAllDay() bool {
	return d.StartTime == ""
}

// ParseDateValue interprets a raw property value as a DateValue. The value
// may be a string (legacy), a map decoded from JSON, or an already-typed
// *DateValue.
func ParseDateValue(v any) (*DateValue, error) {
	switch t := v.(type) {
	case nil:
		return nil, errors.New("empty date value")
	case string:
		if t == "" {
			return nil, errors.New("empty date value")
		}
		return &DateValue{StartDate: t}, nil
	case *DateValue:
		return t, nil
	case DateValue:
		return &t, nil
	default:
		// Round-trip through JSON to handle map[string]any from decoded
		// property values.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid date value: %w", err)
		}
		var d DateValue
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("invalid date value: %w", err)
		}
		if d.StartDate == "" {
			return nil, errors.New("date value missing start_date")
		}
		return &d, nil
	}
}
