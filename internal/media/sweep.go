package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically removes spool files abandoned by a crashed process.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper schedules a sweep of dir on the given cron spec.
func NewSweeper(log *slog.Logger, dir, schedule string, maxAge time.Duration) (*Sweeper, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("sweep max age must be positive")
	}
	s := &Sweeper{
		dir:    dir,
		maxAge: maxAge,
		logger: log.With(slog.String("service", "spool_sweeper")),
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(time.Now()); err != nil {
			s.logger.Warn("sweep failed", slog.Any("error", err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep or ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep removes spool files last modified before now-maxAge and returns how many were removed.
func (s *Sweeper) Sweep(now time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, SpoolPattern))
	if err != nil {
		return 0, err
	}
	removed := 0
	cutoff := now.Add(-s.maxAge)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove stale spool failed", slog.String("path", path), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("stale spool files removed", slog.Int("count", removed))
	}
	return removed, nil
}
