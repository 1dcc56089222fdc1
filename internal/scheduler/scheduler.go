// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"blogd/internal/store"
)

// Scheduler runs the nightly maintenance jobs: trimming old audit events
// and compacting the SQLite write-ahead log.
type Scheduler struct {
	db            *sql.DB
	cron          *cron.Cron
	logger        *slog.Logger
	retentionDays int
}

// New creates a scheduler. retentionDays controls how long audit events are
// kept.
func New(db *sql.DB, logger *slog.Logger, retentionDays int) *Scheduler {
	return &Scheduler{
		db:            db,
		cron:          cron.New(),
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// Start registers the maintenance jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	// Trim old events nightly at 03:00.
	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.TrimEvents(context.Background()); err != nil {
			s.logger.Error("failed to trim old events", "error", err)
		}
	}); err != nil {
		return err
	}

	// Checkpoint the WAL hourly so it does not grow unbounded.
	if _, err := s.cron.AddFunc("30 * * * *", func() {
		if err := s.CheckpointWAL(context.Background()); err != nil {
			s.logger.Error("failed to checkpoint WAL", "error", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// TrimEvents deletes audit events older than the retention window.
func (s *Scheduler) TrimEvents(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)

	deleted, err := store.New(s.db).DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		s.logger.Info("trimmed old events", "deleted", deleted, "cutoff", cutoff)
	}
	return nil
}

// CheckpointWAL merges the write-ahead log back into the main database file.
func (s *Scheduler) CheckpointWAL(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}
