// Package models defines the core data structures used throughout the application.
package models

import (
	"errors"
	"slices"
	"time"

	"github.com/maruel/ksid"
)

var errIDRequired = errors.New("id is required")

// Page represents a content node. It may be a child of a Database and may
// itself contain child Databases, forming a tree of alternating Page/Database
// layers.
type Page struct {
	ID               ksid.ID             `json:"id" jsonschema:"description=Unique page identifier"`
	Title            string              `json:"title" jsonschema:"description=Page title"`
	Properties       map[string]Property `json:"properties,omitempty" jsonschema:"description=Property values keyed by property ID"`
	Databases        []ksid.ID           `json:"databases,omitempty" jsonschema:"description=Child database IDs"`
	ParentDatabaseID ksid.ID             `json:"parent_database_id,omitempty" jsonschema:"description=Parent database ID (zero for a root page)"`
	Created          time.Time           `json:"created_at" jsonschema:"description=Page creation timestamp"`
	Modified         time.Time           `json:"updated_at" jsonschema:"description=Last modification timestamp"`
}

// Clone returns a deep copy of the Page.
func (p *Page) Clone() *Page {
	c := *p
	if p.Properties != nil {
		c.Properties = make(map[string]Property, len(p.Properties))
		for k, v := range p.Properties {
			c.Properties[k] = *v.Clone()
		}
	}
	c.Databases = slices.Clone(p.Databases)
	return &c
}

// GetID returns the Page's ID.
func (p *Page) GetID() ksid.ID {
	return p.ID
}

// Validate checks that the Page is valid.
func (p *Page) Validate() error {
	if p.ID.IsZero() {
		return errIDRequired
	}
	for _, prop := range p.Properties {
		if err := prop.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ContainsDatabase reports whether the database ID is in the page's
// containment list.
func (p *Page) ContainsDatabase(id ksid.ID) bool {
	return slices.Contains(p.Databases, id)
}

// Database represents a typed collection of Pages sharing a property schema.
// It may be nested under a Page.
type Database struct {
	ID           ksid.ID             `json:"id" jsonschema:"description=Unique database identifier"`
	Name         string              `json:"name" jsonschema:"description=Database name"`
	Properties   map[string]Property `json:"properties,omitempty" jsonschema:"description=Property schema keyed by property ID (definitions only, no values)"`
	Pages        []ksid.ID           `json:"pages,omitempty" jsonschema:"description=Child page IDs"`
	ParentPageID ksid.ID             `json:"parent_page_id,omitempty" jsonschema:"description=Parent page ID (zero for a root database)"`
	Color        string              `json:"color,omitempty" jsonschema:"description=Display color"`
	Created      time.Time           `json:"created_at" jsonschema:"description=Database creation timestamp"`
	Modified     time.Time           `json:"updated_at" jsonschema:"description=Last modification timestamp"`
}

// Clone returns a deep copy of the Database.
func (d *Database) Clone() *Database {
	c := *d
	if d.Properties != nil {
		c.Properties = make(map[string]Property, len(d.Properties))
		for k, v := range d.Properties {
			c.Properties[k] = *v.Clone()
		}
	}
	c.Pages = slices.Clone(d.Pages)
	return &c
}

// GetID returns the Database's ID.
func (d *Database) GetID() ksid.ID {
	return d.ID
}

// Validate checks that the Database is valid.
func (d *Database) Validate() error {
	if d.ID.IsZero() {
		return errIDRequired
	}
	for _, prop := range d.Properties {
		if err := prop.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ContainsPage reports whether the page ID is in the database's containment
// list.
func (d *Database) ContainsPage(id ksid.ID) bool {
	return slices.Contains(d.Pages, id)
}

// BlockType identifies what a Block points at.
type BlockType string

const (
	// BlockTypePage marks a block pointing at a Page.
	BlockTypePage BlockType = "page"
	// BlockTypeDatabase marks a block pointing at a Database.
	BlockTypeDatabase BlockType = "database"
)

// Block is a denormalized pointer record. It exists purely as a secondary
// index; the Page/Database containment lists are authoritative.
type Block struct {
	ID         ksid.ID   `json:"id" jsonschema:"description=Unique block identifier"`
	Type       BlockType `json:"type" jsonschema:"description=Block type (page or database)"`
	PageID     ksid.ID   `json:"page_id,omitempty" jsonschema:"description=Referenced page ID when type is page"`
	DatabaseID ksid.ID   `json:"database_id,omitempty" jsonschema:"description=Referenced database ID when type is database"`
	ParentID   ksid.ID   `json:"parent_id,omitempty" jsonschema:"description=Containing entity ID"`
	Children   []ksid.ID `json:"children,omitempty" jsonschema:"description=Child block IDs"`
}

// Clone returns a deep copy of the Block.
func (b *Block) Clone() *Block {
	c := *b
	c.Children = slices.Clone(b.Children)
	return &c
}

// GetID returns the Block's ID.
func (b *Block) GetID() ksid.ID {
	return b.ID
}

// Validate checks that the Block is valid.
func (b *Block) Validate() error {
	if b.ID.IsZero() {
		return errIDRequired
	}
	switch b.Type {
	case BlockTypePage:
		if b.PageID.IsZero() {
			return errors.New("page block requires page_id")
		}
	case BlockTypeDatabase:
		if b.DatabaseID.IsZero() {
			return errors.New("database block requires database_id")
		}
	default:
		return errors.New("unknown block type")
	}
	return nil
}

// Target returns the entity ID the block points at.
func (b *Block) Target() ksid.ID {
	if b.Type == BlockTypePage {
		return b.PageID
	}
	return b.DatabaseID
}

// CompletionLog records whether a recurring page's occurrence on a given
// calendar date was completed. At most one log exists per (page, date).
type CompletionLog struct {
	ID        ksid.ID   `json:"id" jsonschema:"description=Unique log identifier"`
	PageID    ksid.ID   `json:"page_id" jsonschema:"description=Page the completion belongs to"`
	Date      string    `json:"date" jsonschema:"description=Calendar date (YYYY-MM-DD)"`
	Completed bool      `json:"completed" jsonschema:"description=Whether the occurrence was completed"`
	Timestamp time.Time `json:"timestamp" jsonschema:"description=When the mark was last changed"`
}

// Clone returns a copy of the CompletionLog.
func (l *CompletionLog) Clone() *CompletionLog {
	c := *l
	return &c
}

// GetID returns the CompletionLog's ID.
func (l *CompletionLog) GetID() ksid.ID {
	return l.ID
}

// Validate checks that the CompletionLog is valid.
func (l *CompletionLog) Validate() error {
	if l.ID.IsZero() {
		return errIDRequired
	}
	if l.PageID.IsZero() {
		return errors.New("page_id is required")
	}
	if l.Date == "" {
		return errors.New("date is required")
	}
	return nil
}

// NodeKind distinguishes pages from databases in kind-parameterized
// operations like delete and path lookup.
type NodeKind string

const (
	// KindPage identifies Page entities.
	KindPage NodeKind = "page"
	// KindDatabase identifies Database entities.
	KindDatabase NodeKind = "database"
)

// PathEntry is one step of a root-to-node hierarchy path.
type PathEntry struct {
	ID    ksid.ID  `json:"id"`
	Title string   `json:"title"`
	Type  NodeKind `json:"type"`
}

// CalendarItem is one concrete occurrence of a page's date property, the sole
// artifact the calendar view renders.
type CalendarItem struct {
	PageID      ksid.ID `json:"page_id"`
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time,omitempty"`
	EndTime     string  `json:"end_time,omitempty"`
	IsRepeating bool    `json:"is_repeating"`
	IsAllDay    bool    `json:"is_all_day"`
}
