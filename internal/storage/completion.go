package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/maruel/ksid"
	apierrors "github.com/maruel/notedb/internal/errors"
	"github.com/maruel/notedb/internal/models"
)

// CompletionService tracks per-occurrence completion of recurring pages.
// At most one log exists per (page, date) pair; marking the same pair again
// overwrites the previous state.
type CompletionService struct {
	repo Repository
	git  Committer
}

// NewCompletionService creates a CompletionService. git may be nil.
func NewCompletionService(repo Repository, git Committer) *CompletionService {
	return &CompletionService{repo: repo, git: git}
}

// MarkCompleted upserts the completion state of a page's occurrence on the
// given date.
func (s *CompletionService) MarkCompleted(ctx context.Context, pageID ksid.ID, date string, completed bool) (*models.CompletionLog, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apierrors.InvalidFormat("date", "YYYY-MM-DD")
	}
	if _, ok := s.repo.Page(pageID); !ok {
		return nil, apierrors.PageNotFound(pageID.String())
	}

	log, ok := s.repo.CompletionLog(pageID, date)
	if !ok {
		log = &models.CompletionLog{ID: ksid.NewID(), PageID: pageID, Date: date}
	}
	log.Completed = completed
	log.Timestamp = time.Now().UTC()

	tx := s.repo.Begin()
	tx.PutCompletionLog(log)
	if err := tx.Commit(); err != nil {
		return nil, apierrors.Storage("mark completed", err)
	}
	if s.git != nil {
		if err := s.git.CommitAll(ctx, "Mark completion for page "+pageID.String()); err != nil {
			slog.Warn("git snapshot failed", "page", pageID, "err", err)
		}
	}
	return log, nil
}

// Logs returns all completion logs for a page.
func (s *CompletionService) Logs(ctx context.Context, pageID ksid.ID) ([]*models.CompletionLog, error) {
	if _, ok := s.repo.Page(pageID); !ok {
		return nil, apierrors.PageNotFound(pageID.String())
	}
	return s.repo.CompletionLogs(pageID), nil
}

// IsCompleted reports the completion state of a (page, date) pair. An absent
// log means not completed.
func (s *CompletionService) IsCompleted(pageID ksid.ID, date string) bool {
	log, ok := s.repo.CompletionLog(pageID, date)
	return ok && log.Completed
}
