package jsonldb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/ksid"
)

// testRow is a simple row type for testing.
type testRow struct {
	ID   ksid.ID `json:"id" jsonschema:"description=Row identifier"`
	Name string  `json:"name" jsonschema:"description=Row name"`
	Bad  bool    `json:"-"`
}

func (r *testRow) Clone() *testRow {
	c := *r
	return &c
}

func (r *testRow) GetID() ksid.ID {
	return r.ID
}

func (r *testRow) Validate() error {
	if r.Bad {
		return errors.New("validation failed")
	}
	return nil
}

func newTestTable(t *testing.T) (*Table[*testRow], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	tbl, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatal(err)
	}
	return tbl, path
}

func TestTableAppendGet(t *testing.T) {
	tbl, _ := newTestTable(t)
	row := &testRow{ID: ksid.NewID(), Name: "first"}
	if err := tbl.Append(row); err != nil {
		t.Fatal(err)
	}
	got, ok := tbl.Get(row.ID)
	if !ok || got.Name != "first" {
		t.Fatalf("Get = %v %v", got, ok)
	}
	// Get returns a clone, not the stored row.
	got.Name = "mutated"
	if again, _ := tbl.Get(row.ID); again.Name != "first" {
		t.Fatal("Get leaked internal state")
	}
	if err := tbl.Append(&testRow{ID: row.ID, Name: "dup"}); err == nil {
		t.Fatal("expected duplicate ID error")
	}
	if err := tbl.Append(&testRow{ID: ksid.NewID(), Bad: true}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestTableSchemaHeader(t *testing.T) {
	tbl, path := newTestTable(t)
	if err := tbl.Append(&testRow{ID: ksid.NewID(), Name: "x"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if !strings.Contains(lines[0], `"columns"`) {
		t.Fatalf("first line is not a schema header: %s", lines[0])
	}
}

func TestTableUpdateDelete(t *testing.T) {
	tbl, _ := newTestTable(t)
	row := &testRow{ID: ksid.NewID(), Name: "a"}
	if err := tbl.Append(row); err != nil {
		t.Fatal(err)
	}
	row.Name = "b"
	if err := tbl.Update(row); err != nil {
		t.Fatal(err)
	}
	if got, _ := tbl.Get(row.ID); got.Name != "b" {
		t.Fatalf("update not applied: %v", got)
	}
	if err := tbl.Update(&testRow{ID: ksid.NewID(), Name: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing row: %v", err)
	}
	if err := tbl.Delete(row.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := tbl.Get(row.ID); ok {
		t.Fatal("row survived delete")
	}
	// Deleting a nonexistent row is a no-op.
	if err := tbl.Delete(row.ID); err != nil {
		t.Fatal(err)
	}
}

func TestTableReloadSortsRows(t *testing.T) {
	tbl, path := newTestTable(t)
	ids := make([]ksid.ID, 5)
	for i := range ids {
		ids[i] = ksid.NewID()
		if err := tbl.Append(&testRow{ID: ids[i], Name: "row"}); err != nil {
			t.Fatal(err)
		}
	}

	reopened, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != len(ids) {
		t.Fatalf("Len = %d, want %d", reopened.Len(), len(ids))
	}
	var prev string
	for r := range reopened.All() {
		if s := r.ID.String(); s < prev {
			t.Fatal("rows not sorted by ID after reload")
		} else {
			prev = s
		}
	}
	for _, id := range ids {
		if _, ok := reopened.Get(id); !ok {
			t.Fatalf("row %s lost on reload", id)
		}
	}
}

func TestTableReplace(t *testing.T) {
	tbl, _ := newTestTable(t)
	if err := tbl.Append(&testRow{ID: ksid.NewID(), Name: "old"}); err != nil {
		t.Fatal(err)
	}
	fresh := []*testRow{
		{ID: ksid.NewID(), Name: "n1"},
		{ID: ksid.NewID(), Name: "n2"},
	}
	if err := tbl.Replace(fresh); err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	for _, r := range fresh {
		if _, ok := tbl.Get(r.ID); !ok {
			t.Fatalf("replaced row %s missing", r.ID)
		}
	}
}

func TestColumns(t *testing.T) {
	cols, err := Columns[testRow]()
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]Column{}
	for _, c := range cols {
		byName[c.Name] = c
	}
	if _, ok := byName["id"]; !ok {
		t.Fatalf("missing id column: %+v", cols)
	}
	if c, ok := byName["name"]; !ok || c.Type != ColumnTypeText {
		t.Fatalf("name column wrong: %+v", c)
	}
}
