package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/maruel/ksid"
	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/models"
)

// Committer records a snapshot of the data directory after a mutation. A nil
// Committer disables versioning.
type Committer interface {
	CommitAll(ctx context.Context, message string) error
}

// HierarchyService maintains the Page/Database containment tree: creation,
// updates, path lookup and cascading deletion.
type HierarchyService struct {
	repo Repository
	git  Committer
}

// NewHierarchyService creates a HierarchyService. git may be nil.
func NewHierarchyService(repo Repository, git Committer) *HierarchyService {
	return &HierarchyService{repo: repo, git: git}
}

// CreatePage creates a page, optionally attached under a parent database.
// The parent's containment list, the page's back-reference and the page's
// block record are written in one transaction.
func (s *HierarchyService) CreatePage(ctx context.Context, title string, properties map[string]models.Property, parentDatabaseID ksid.ID) (*models.Page, error) {
	now := time.Now().UTC()
	page := &models.Page{
		ID:         ksid.NewID(),
		Title:      title,
		Properties: properties,
		Created:    now,
		Modified:   now,
	}

	tx := s.repo.Begin()
	if !parentDatabaseID.IsZero() {
		parent, ok := s.repo.Database(parentDatabaseID)
		if !ok {
			return nil, apierrors.DatabaseNotFound(parentDatabaseID.String())
		}
		parent.Pages = append(parent.Pages, page.ID)
		parent.Modified = now
		page.ParentDatabaseID = parentDatabaseID
		tx.PutDatabase(parent)
	}
	tx.PutPage(page)
	tx.PutBlock(&models.Block{
		ID:       ksid.NewID(),
		Type:     models.BlockTypePage,
		PageID:   page.ID,
		ParentID: parentDatabaseID,
	})
	if err := tx.Commit(); err != nil {
		return nil, apierrors.Storage("create page", err)
	}
	s.commit(ctx, "Create page "+page.ID.String())
	return page, nil
}

// CreateDatabase creates a database, optionally attached under a parent page.
func (s *HierarchyService) CreateDatabase(ctx context.Context, name string, properties map[string]models.Property, color string, parentPageID ksid.ID) (*models.Database, error) {
	now := time.Now().UTC()
	db := &models.Database{
		ID:         ksid.NewID(),
		Name:       name,
		Properties: properties,
		Color:      color,
		Created:    now,
		Modified:   now,
	}

	tx := s.repo.Begin()
	if !parentPageID.IsZero() {
		parent, ok := s.repo.Page(parentPageID)
		if !ok {
			return nil, apierrors.PageNotFound(parentPageID.String())
		}
		parent.Databases = append(parent.Databases, db.ID)
		parent.Modified = now
		db.ParentPageID = parentPageID
		tx.PutPage(parent)
	}
	tx.PutDatabase(db)
	tx.PutBlock(&models.Block{
		ID:         ksid.NewID(),
		Type:       models.BlockTypeDatabase,
		DatabaseID: db.ID,
		ParentID:   parentPageID,
	})
	if err := tx.Commit(); err != nil {
		return nil, apierrors.Storage("create database", err)
	}
	s.commit(ctx, "Create database "+db.ID.String())
	return db, nil
}

// GetPage returns the page with the given ID.
func (s *HierarchyService) GetPage(ctx context.Context, id ksid.ID) (*models.Page, error) {
	page, ok := s.repo.Page(id)
	if !ok {
		return nil, apierrors.PageNotFound(id.String())
	}
	return page, nil
}

// GetDatabase returns the database with the given ID.
func (s *HierarchyService) GetDatabase(ctx context.Context, id ksid.ID) (*models.Database, error) {
	db, ok := s.repo.Database(id)
	if !ok {
		return nil, apierrors.DatabaseNotFound(id.String())
	}
	return db, nil
}

// ListPages returns all pages.
func (s *HierarchyService) ListPages(ctx context.Context) []*models.Page {
	return s.repo.Pages()
}

// ListDatabases returns all databases.
func (s *HierarchyService) ListDatabases(ctx context.Context) []*models.Database {
	return s.repo.Databases()
}

// UpdatePage updates the page's title and/or property values. A nil title
// or properties argument leaves the corresponding field untouched.
func (s *HierarchyService) UpdatePage(ctx context.Context, id ksid.ID, title *string, properties map[string]models.Property) (*models.Page, error) {
	page, ok := s.repo.Page(id)
	if !ok {
		return nil, apierrors.PageNotFound(id.String())
	}
	if title != nil {
		page.Title = *title
	}
	if properties != nil {
		if page.Properties == nil {
			page.Properties = make(map[string]models.Property, len(properties))
		}
		for k, v := range properties {
			page.Properties[k] = *v.Clone()
		}
	}
	page.Modified = time.Now().UTC()

	tx := s.repo.Begin()
	tx.PutPage(page)
	if err := tx.Commit(); err != nil {
		return nil, apierrors.Storage("update page", err)
	}
	s.commit(ctx, "Update page "+id.String())
	return page, nil
}

// UpdateDatabase updates the database's name, color and/or property schema.
func (s *HierarchyService) UpdateDatabase(ctx context.Context, id ksid.ID, name, color *string, properties map[string]models.Property) (*models.Database, error) {
	db, ok := s.repo.Database(id)
	if !ok {
		return nil, apierrors.DatabaseNotFound(id.String())
	}
	if name != nil {
		db.Name = *name
	}
	if color != nil {
		db.Color = *color
	}
	if properties != nil {
		if db.Properties == nil {
			db.Properties = make(map[string]models.Property, len(properties))
		}
		for k, v := range properties {
			db.Properties[k] = *v.Clone()
		}
	}
	db.Modified = time.Now().UTC()

	tx := s.repo.Begin()
	tx.PutDatabase(db)
	if err := tx.Commit(); err != nil {
		return nil, apierrors.Storage("update database", err)
	}
	s.commit(ctx, "Update database "+id.String())
	return db, nil
}

// DeletePage deletes a page and its entire subtree: every database it
// contains, every page those databases contain, and so on, together with
// the subtree's block records and completion logs. The parent database's
// containment list loses the reference in the same transaction.
func (s *HierarchyService) DeletePage(ctx context.Context, id ksid.ID) error {
	page, ok := s.repo.Page(id)
	if !ok {
		return apierrors.PageNotFound(id.String())
	}

	tx := s.repo.Begin()
	if !page.ParentDatabaseID.IsZero() {
		if parent, ok := s.repo.Database(page.ParentDatabaseID); ok && parent.ContainsPage(id) {
			parent.Pages = removeID(parent.Pages, id)
			parent.Modified = time.Now().UTC()
			tx.PutDatabase(parent)
		}
	}
	s.deletePageSubtree(tx, id, map[ksid.ID]bool{})
	if err := tx.Commit(); err != nil {
		return apierrors.Storage("delete page", err)
	}
	s.commit(ctx, "Delete page "+id.String())
	return nil
}

// DeleteDatabase deletes a database and its entire subtree, mirroring
// DeletePage.
func (s *HierarchyService) DeleteDatabase(ctx context.Context, id ksid.ID) error {
	db, ok := s.repo.Database(id)
	if !ok {
		return apierrors.DatabaseNotFound(id.String())
	}

	tx := s.repo.Begin()
	if !db.ParentPageID.IsZero() {
		if parent, ok := s.repo.Page(db.ParentPageID); ok && parent.ContainsDatabase(id) {
			parent.Databases = removeID(parent.Databases, id)
			parent.Modified = time.Now().UTC()
			tx.PutPage(parent)
		}
	}
	s.deleteDatabaseSubtree(tx, id, map[ksid.ID]bool{})
	if err := tx.Commit(); err != nil {
		return apierrors.Storage("delete database", err)
	}
	s.commit(ctx, "Delete database "+id.String())
	return nil
}

// deletePageSubtree stages deletion of a page, its child databases
// (recursively), its block record and its completion logs. Already-visited
// or missing nodes are skipped, which makes deletion idempotent and immune
// to reference cycles in corrupted data.
func (s *HierarchyService) deletePageSubtree(tx Tx, id ksid.ID, visited map[ksid.ID]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	page, ok := s.repo.Page(id)
	if !ok {
		return
	}
	for _, dbID := range page.Databases {
		s.deleteDatabaseSubtree(tx, dbID, visited)
	}
	for _, log := range s.repo.CompletionLogs(id) {
		tx.DeleteCompletionLog(log.ID)
	}
	if b, ok := s.repo.BlockFor(id); ok {
		tx.DeleteBlock(b.ID)
	}
	tx.DeletePage(id)
}

func (s *HierarchyService) deleteDatabaseSubtree(tx Tx, id ksid.ID, visited map[ksid.ID]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	db, ok := s.repo.Database(id)
	if !ok {
		return
	}
	for _, pageID := range db.Pages {
		s.deletePageSubtree(tx, pageID, visited)
	}
	if b, ok := s.repo.BlockFor(id); ok {
		tx.DeleteBlock(b.ID)
	}
	tx.DeleteDatabase(id)
}

// PathToRoot returns the chain of ancestors from the root down to (and
// including) the given node. Kind disambiguates page vs database IDs.
func (s *HierarchyService) PathToRoot(ctx context.Context, id ksid.ID, kind models.NodeKind) ([]models.PathEntry, error) {
	var path []models.PathEntry
	var zero ksid.ID
	curID, curKind := id, kind
	seen := map[ksid.ID]bool{}
	for !curID.IsZero() && !seen[curID] {
		seen[curID] = true
		switch curKind {
		case models.KindPage:
			page, ok := s.repo.Page(curID)
			if !ok {
				if len(path) == 0 {
					return nil, apierrors.PageNotFound(curID.String())
				}
				curID = zero
				continue
			}
			path = append(path, models.PathEntry{ID: page.ID, Title: page.Title, Type: models.KindPage})
			curID, curKind = page.ParentDatabaseID, models.KindDatabase
		case models.KindDatabase:
			db, ok := s.repo.Database(curID)
			if !ok {
				if len(path) == 0 {
					return nil, apierrors.DatabaseNotFound(curID.String())
				}
				curID = zero
				continue
			}
			path = append(path, models.PathEntry{ID: db.ID, Title: db.Name, Type: models.KindDatabase})
			curID, curKind = db.ParentPageID, models.KindPage
		default:
			return nil, apierrors.BadRequest("unknown node kind")
		}
	}
	// Walked leaf to root; the caller wants root first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// commit records a versioning snapshot. Failures are logged, never returned:
// the primary write already succeeded.
func (s *HierarchyService) commit(ctx context.Context, message string) {
	if s.git == nil {
		return
	}
	if err := s.git.CommitAll(ctx, message); err != nil {
		slog.Warn("git snapshot failed", "message", message, "err", err)
	}
}

func removeID(ids []ksid.ID, id ksid.ID) []ksid.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
