// Package history is the read path over job records: cursor-paginated
// listing for the UI and CLI, plus bulk clear. It never transitions state.
package history

import (
	"context"

	"pwaforge/internal/config"
	"pwaforge/internal/entity"
	"pwaforge/internal/job"
)

// Service wraps the job collection with listing defaults from config.
type Service struct {
	jobs     *entity.Collection[job.State]
	pageSize int
}

// NewService builds the history facade over an existing job collection.
func NewService(cfg *config.Config, jobs *entity.Collection[job.State]) *Service {
	pageSize := 10
	if cfg != nil && cfg.Pipeline.HistoryPageSize > 0 {
		pageSize = cfg.Pipeline.HistoryPageSize
	}
	return &Service{jobs: jobs, pageSize: pageSize}
}

// History returns one page of job records in creation order. A zero or
// negative limit falls back to the configured page size.
func (s *Service) History(ctx context.Context, cursor *string, limit int) (entity.Page[job.State], error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	return s.jobs.List(ctx, cursor, limit)
}

// ClearHistory deletes every job record and returns the count removed.
func (s *Service) ClearHistory(ctx context.Context) (int64, error) {
	return s.jobs.ClearAll(ctx)
}
