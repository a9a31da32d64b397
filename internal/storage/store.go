package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/maruel/ksid"
	"github.com/maruel/notedb/internal/jsonldb"
	"github.com/maruel/notedb/internal/models"
)

// Store is the JSONL-backed Repository. Each entity type lives in its own
// table file under <root>/db/. A store-wide lock serializes transactions so
// multi-table writes are observed atomically.
type Store struct {
	mu sync.RWMutex

	pages     *jsonldb.Table[*models.Page]
	databases *jsonldb.Table[*models.Database]
	blocks    *jsonldb.Table[*models.Block]
	logs      *jsonldb.Table[*models.CompletionLog]
}

// NewStore opens (or creates) the table files under root/db.
func NewStore(root string) (*Store, error) {
	dir := filepath.Join(root, "db")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	pages, err := jsonldb.NewTable[*models.Page](filepath.Join(dir, "pages.jsonl"))
	if err != nil {
		return nil, err
	}
	databases, err := jsonldb.NewTable[*models.Database](filepath.Join(dir, "databases.jsonl"))
	if err != nil {
		return nil, err
	}
	blocks, err := jsonldb.NewTable[*models.Block](filepath.Join(dir, "blocks.jsonl"))
	if err != nil {
		return nil, err
	}
	logs, err := jsonldb.NewTable[*models.CompletionLog](filepath.Join(dir, "completion_logs.jsonl"))
	if err != nil {
		return nil, err
	}
	return &Store{pages: pages, databases: databases, blocks: blocks, logs: logs}, nil
}

// Page returns the page with the given ID.
func (s *Store) Page(id ksid.ID) (*models.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pages.Get(id)
}

// Pages returns all pages in ID order.
func (s *Store) Pages() []*models.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Page, 0, s.pages.Len())
	for p := range s.pages.All() {
		out = append(out, p)
	}
	return out
}

// Database returns the database with the given ID.
func (s *Store) Database(id ksid.ID) (*models.Database, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.databases.Get(id)
}

// Databases returns all databases in ID order.
func (s *Store) Databases() []*models.Database {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Database, 0, s.databases.Len())
	for d := range s.databases.All() {
		out = append(out, d)
	}
	return out
}

// Block returns the block with the given ID.
func (s *Store) Block(id ksid.ID) (*models.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks.Get(id)
}

// Blocks returns all blocks in ID order.
func (s *Store) Blocks() []*models.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Block, 0, s.blocks.Len())
	for b := range s.blocks.All() {
		out = append(out, b)
	}
	return out
}

// BlockFor returns the block pointing at the given page or database.
func (s *Store) BlockFor(target ksid.ID) (*models.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for b := range s.blocks.All() {
		if b.Target() == target {
			return b, true
		}
	}
	return nil, false
}

// CompletionLog returns the log for a (page, date) pair.
func (s *Store) CompletionLog(pageID ksid.ID, date string) (*models.CompletionLog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for l := range s.logs.All() {
		if l.PageID == pageID && l.Date == date {
			return l, true
		}
	}
	return nil, false
}

// CompletionLogs returns all logs for a page in ID order.
func (s *Store) CompletionLogs(pageID ksid.ID) []*models.CompletionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CompletionLog
	for l := range s.logs.All() {
		if l.PageID == pageID {
			out = append(out, l)
		}
	}
	return out
}

// Begin starts a transaction against the store.
func (s *Store) Begin() Tx {
	return &storeTx{store: s}
}

// txOp is one staged write.
type txOp struct {
	table  string
	delete bool
	id     ksid.ID
	row    any
}

const (
	tablePages     = "pages"
	tableDatabases = "databases"
	tableBlocks    = "blocks"
	tableLogs      = "completion_logs"
)

type storeTx struct {
	store *Store
	ops   []txOp
	done  bool
}

func (tx *storeTx) PutPage(p *models.Page) {
	tx.ops = append(tx.ops, txOp{table: tablePages, id: p.ID, row: p.Clone()})
}

func (tx *storeTx) DeletePage(id ksid.ID) {
	tx.ops = append(tx.ops, txOp{table: tablePages, delete: true, id: id})
}

func (tx *storeTx) PutDatabase(d *models.Database) {
	tx.ops = append(tx.ops, txOp{table: tableDatabases, id: d.ID, row: d.Clone()})
}

func (tx *storeTx) DeleteDatabase(id ksid.ID) {
	tx.ops = append(tx.ops, txOp{table: tableDatabases, delete: true, id: id})
}

func (tx *storeTx) PutBlock(b *models.Block) {
	tx.ops = append(tx.ops, txOp{table: tableBlocks, id: b.ID, row: b.Clone()})
}

func (tx *storeTx) DeleteBlock(id ksid.ID) {
	tx.ops = append(tx.ops, txOp{table: tableBlocks, delete: true, id: id})
}

func (tx *storeTx) PutCompletionLog(l *models.CompletionLog) {
	tx.ops = append(tx.ops, txOp{table: tableLogs, id: l.ID, row: l.Clone()})
}

func (tx *storeTx) DeleteCompletionLog(id ksid.ID) {
	tx.ops = append(tx.ops, txOp{table: tableLogs, delete: true, id: id})
}

// Commit applies the staged writes under the store-wide lock. On failure the
// affected tables are restored from snapshots taken before the first write.
func (tx *storeTx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already committed")
	}
	tx.done = true
	if len(tx.ops) == 0 {
		return nil
	}

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := map[string]bool{}
	for _, op := range tx.ops {
		touched[op.table] = true
	}
	var (
		pagesSnap  []*models.Page
		dbsSnap    []*models.Database
		blocksSnap []*models.Block
		logsSnap   []*models.CompletionLog
	)
	if touched[tablePages] {
		pagesSnap = collect(s.pages)
	}
	if touched[tableDatabases] {
		dbsSnap = collect(s.databases)
	}
	if touched[tableBlocks] {
		blocksSnap = collect(s.blocks)
	}
	if touched[tableLogs] {
		logsSnap = collect(s.logs)
	}

	rollback := func() {
		if touched[tablePages] {
			_ = s.pages.Replace(pagesSnap)
		}
		if touched[tableDatabases] {
			_ = s.databases.Replace(dbsSnap)
		}
		if touched[tableBlocks] {
			_ = s.blocks.Replace(blocksSnap)
		}
		if touched[tableLogs] {
			_ = s.logs.Replace(logsSnap)
		}
	}

	for _, op := range tx.ops {
		var err error
		switch op.table {
		case tablePages:
			err = applyOp(s.pages, op)
		case tableDatabases:
			err = applyOp(s.databases, op)
		case tableBlocks:
			err = applyOp(s.blocks, op)
		case tableLogs:
			err = applyOp(s.logs, op)
		}
		if err != nil {
			rollback()
			return fmt.Errorf("transaction failed on %s: %w", op.table, err)
		}
	}
	return nil
}

func collect[T jsonldb.Row[T]](t *jsonldb.Table[T]) []T {
	out := make([]T, 0, t.Len())
	for r := range t.All() {
		out = append(out, r)
	}
	return out
}

// applyOp upserts or deletes a single row.
func applyOp[T jsonldb.Row[T]](t *jsonldb.Table[T], op txOp) error {
	if op.delete {
		return t.Delete(op.id)
	}
	row := op.row.(T)
	if _, ok := t.Get(op.id); ok {
		return t.Update(row)
	}
	return t.Append(row)
}
