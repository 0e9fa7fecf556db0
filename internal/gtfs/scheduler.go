package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"vilniusbus/internal/storage"
)

// StopStore is the part of storage the scheduler writes to.
type StopStore interface {
	HasStops(ctx context.Context) bool
	ReplaceStops(ctx context.Context, stops []storage.StopRow) error
	GetMetadata(ctx context.Context, key string) (string, error)
	SetMetadata(ctx context.Context, key, value string) error
}

// Scheduler keeps the stop reference table in sync with the GTFS archive.
type Scheduler struct {
	downloader *Downloader
	store      StopStore
	loc        *time.Location
	logger     *slog.Logger

	mu            sync.Mutex
	lastCheckDate string // YYYY-MM-DD of last check, prevents multiple checks per day
}

// NewScheduler creates a Scheduler. Days are counted in loc.
func NewScheduler(downloader *Downloader, store StopStore, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		downloader: downloader,
		store:      store,
		loc:        loc,
		logger:     logger,
	}
}

// EnsureData imports stops if the reference table is empty.
func (s *Scheduler) EnsureData(ctx context.Context) error {
	if s.store.HasStops(ctx) {
		s.logger.Info("stop reference data already present")
		return nil
	}
	s.logger.Info("no stop reference data, performing initial import")
	return s.Update(ctx)
}

// CheckAndUpdate re-imports stops if the archive changed. Only checks once
// per calendar day.
func (s *Scheduler) CheckAndUpdate(ctx context.Context) error {
	s.mu.Lock()
	today := time.Now().In(s.loc).Format("2006-01-02")
	if s.lastCheckDate == today {
		s.mu.Unlock()
		return nil
	}
	s.lastCheckDate = today
	s.mu.Unlock()

	var prev Validators
	prev.LastModified, _ = s.store.GetMetadata(ctx, "last_modified")
	prev.ETag, _ = s.store.GetMetadata(ctx, "etag")

	changed, err := s.downloader.Changed(ctx, prev)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.Update(ctx)
}

// StartBackground checks for a new archive every day at 03:00 until ctx is
// cancelled.
func (s *Scheduler) StartBackground(ctx context.Context) {
	for {
		next := next3AM(time.Now(), s.loc)
		s.logger.Info("next stop import check scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			if err := s.CheckAndUpdate(ctx); err != nil {
				s.logger.Error("background stop import failed", "error", err)
			}
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("stop import scheduler stopped")
			return
		}
	}
}

// Update downloads the archive and replaces the stop reference table.
func (s *Scheduler) Update(ctx context.Context) error {
	start := time.Now()

	zipPath, validators, err := s.downloader.Download(ctx)
	if err != nil {
		return err
	}
	defer os.Remove(zipPath)

	stops, err := ParseStops(zipPath)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceStops(ctx, stops); err != nil {
		return fmt.Errorf("import stops: %w", err)
	}

	meta := map[string]string{
		"imported_at":   time.Now().UTC().Format(time.RFC3339),
		"last_modified": validators.LastModified,
		"etag":          validators.ETag,
	}
	for k, v := range meta {
		if v == "" {
			continue
		}
		if err := s.store.SetMetadata(ctx, k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}

	s.logger.Info("stop import complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"stops", len(stops),
	)
	return nil
}

// next3AM returns the next 03:00 in loc strictly after now.
func next3AM(now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
