// Package storage persists the workspace content model and implements the
// operations over it: hierarchy maintenance with cascading deletion,
// completion tracking and calendar expansion.
package storage

import (
	"github.com/maruel/ksid"
	"github.com/maruel/notedb/internal/models"
)

// Repository provides snapshot reads of the content model and transactional
// writes. All read methods return deep copies; mutating a returned value
// never affects the store.
type Repository interface {
	// Page returns the page with the given ID.
	Page(id ksid.ID) (*models.Page, bool)
	// Pages returns all pages.
	Pages() []*models.Page
	// Database returns the database with the given ID.
	Database(id ksid.ID) (*models.Database, bool)
	// Databases returns all databases.
	Databases() []*models.Database
	// Block returns the block with the given ID.
	Block(id ksid.ID) (*models.Block, bool)
	// Blocks returns all blocks.
	Blocks() []*models.Block
	// BlockFor returns the block pointing at the given page or database.
	BlockFor(target ksid.ID) (*models.Block, bool)
	// CompletionLog returns the log for a (page, date) pair.
	CompletionLog(pageID ksid.ID, date string) (*models.CompletionLog, bool)
	// CompletionLogs returns all completion logs for a page.
	CompletionLogs(pageID ksid.ID) []*models.CompletionLog

	// Begin starts a transaction. Writes staged on the transaction become
	// visible atomically on Commit; concurrent readers observe either none
	// or all of them.
	Begin() Tx
}

// Tx stages a batch of writes to be applied atomically. A Tx is single-use
// and not safe for concurrent use; stage everything, then Commit once.
type Tx interface {
	PutPage(p *models.Page)
	DeletePage(id ksid.ID)
	PutDatabase(d *models.Database)
	DeleteDatabase(id ksid.ID)
	PutBlock(b *models.Block)
	DeleteBlock(id ksid.ID)
	PutCompletionLog(l *models.CompletionLog)
	DeleteCompletionLog(id ksid.ID)

	// Commit applies all staged writes. If any write fails the store is
	// rolled back to its pre-transaction state before returning the error.
	Commit() error
}
