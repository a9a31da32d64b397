package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/maruel/ksid"
)

// ErrNotFound is returned when a row with the requested ID does not exist.
var ErrNotFound = errors.New("row not found")

// Row is implemented by types that can be stored in a Table.
type Row[T any] interface {
	// GetID returns the row's unique identifier.
	GetID() ksid.ID
	// Clone returns a deep copy of the row.
	Clone() T
	// Validate checks that the row is well-formed before persisting.
	Validate() error
}

// Table handles storage and in-memory caching for a single table in JSONL format.
type Table[T Row[T]] struct {
	path string
	mu   sync.RWMutex

	rows []T
}

// NewTable creates a new Table and loads all data from the file.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	table := &Table[T]{path: path}
	if err := table.load(); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	first := true
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			if isSchemaHeader(line) {
				continue
			}
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	// Rows can be out of order after manual edits or clock drift.
	if !sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].GetID().String() < rows[j].GetID().String() }) {
		sort.Slice(rows, func(i, j int) bool { return rows[i].GetID().String() < rows[j].GetID().String() })
	}

	t.rows = rows
	return nil
}

// isSchemaHeader reports whether a line is a schema header rather than a row.
func isSchemaHeader(line []byte) bool {
	var h schemaHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return false
	}
	return h.Version != ""
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a clone of the row with the given ID, or the zero value and
// false if not found.
func (t *Table[T]) Get(id ksid.ID) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i, ok := t.find(id); ok {
		return t.rows[i].Clone(), true
	}
	var zero T
	return zero, false
}

// All returns an iterator over clones of all rows in ID order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Append adds a new row to the table and persists it.
func (t *Table[T]) Append(row T) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.find(row.GetID()); ok {
		return fmt.Errorf("duplicate row ID %s", row.GetID())
	}

	// Appending out of ID order would break the binary search; fall back to a
	// full rewrite in that rare case (backdated IDs during migration).
	if n := len(t.rows); n > 0 && row.GetID().String() < t.rows[n-1].GetID().String() {
		prev := t.rows
		t.rows = append(t.rows, row.Clone())
		sort.Slice(t.rows, func(i, j int) bool { return t.rows[i].GetID().String() < t.rows[j].GetID().String() })
		if err := t.flush(); err != nil {
			t.rows = prev
			return err
		}
		return nil
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if st, err := f.Stat(); err == nil && st.Size() == 0 {
		header, err := headerForType[T]()
		if err != nil {
			return err
		}
		if _, err := f.Write(append(header, '\n')); err != nil {
			return fmt.Errorf("failed to write schema header: %w", err)
		}
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	t.rows = append(t.rows, row.Clone())
	return nil
}

// Update replaces the row with the same ID and persists the table.
func (t *Table[T]) Update(row T) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.find(row.GetID())
	if !ok {
		return fmt.Errorf("update %s: %w", row.GetID(), ErrNotFound)
	}
	prev := t.rows[i]
	t.rows[i] = row.Clone()
	if err := t.flush(); err != nil {
		t.rows[i] = prev
		return err
	}
	return nil
}

// Delete removes the row with the given ID and persists the table.
// Deleting a nonexistent row is not an error.
func (t *Table[T]) Delete(id ksid.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.find(id)
	if !ok {
		return nil
	}
	prev := t.rows
	t.rows = append(t.rows[:i:i], t.rows[i+1:]...)
	if err := t.flush(); err != nil {
		t.rows = prev
		return err
	}
	return nil
}

// Replace replaces all rows with the provided slice and persists it.
// Rows are sorted by ID before being written.
func (t *Table[T]) Replace(rows []T) error {
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row %s: %w", row.GetID(), err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cloned := make([]T, 0, len(rows))
	for _, row := range rows {
		cloned = append(cloned, row.Clone())
	}
	sort.Slice(cloned, func(i, j int) bool { return cloned[i].GetID().String() < cloned[j].GetID().String() })

	prev := t.rows
	t.rows = cloned
	if err := t.flush(); err != nil {
		t.rows = prev
		return err
	}
	return nil
}

// find returns the index of the row with the given ID. Rows are kept in ID
// order so a binary search suffices. Caller must hold at least a read lock.
func (t *Table[T]) find(id ksid.ID) (int, bool) {
	i := sort.Search(len(t.rows), func(i int) bool { return t.rows[i].GetID().String() >= id.String() })
	if i < len(t.rows) && t.rows[i].GetID() == id {
		return i, true
	}
	return 0, false
}

// flush rewrites the whole file from the in-memory rows. Caller must hold the
// write lock.
func (t *Table[T]) flush() error {
	var buf bytes.Buffer
	header, err := headerForType[T]()
	if err != nil {
		return err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, row := range t.rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	// Write to a temp file then rename so readers never see a partial file.
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
