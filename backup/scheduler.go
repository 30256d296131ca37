/*
scheduler.go - Periodic document backups

PURPOSE:
  Copies the JSON document into a backup directory on a fixed interval and
  keeps only the newest N copies. The live document is rewritten on every
  mutation, so these copies are the only way back to an earlier state.

DESIGN:
  - Runs one goroutine until its context is cancelled
  - Takes a backup immediately on start, then once per Interval
  - A failed backup is logged and retried on the next tick

CONFIGURATION:
  - Interval: How often to back up (0 disables the scheduler)
  - Keep:     How many backups to retain (0 keeps all)

USAGE:
  sched := backup.NewScheduler(store, "./backups", log)
  sched.Interval = time.Hour
  go sched.Run(ctx)

SEE ALSO:
  - store/jsondoc/backup.go: Backup and PruneBackups
*/
package backup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Target is what the scheduler backs up.
type Target interface {
	Backup(ctx context.Context, dir string) (string, error)
	PruneBackups(dir string, keep int) (int, error)
}

// Scheduler backs up a Target on a fixed interval.
type Scheduler struct {
	Target   Target
	Dir      string
	Interval time.Duration
	Keep     int

	log *zap.Logger

	mu      sync.Mutex
	lastRun time.Time
}

// NewScheduler creates a scheduler with a one hour interval keeping 24 copies.
func NewScheduler(target Target, dir string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Target:   target,
		Dir:      dir,
		Interval: time.Hour,
		Keep:     24,
		log:      log,
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if s.Interval <= 0 {
		s.log.Info("backup scheduler disabled")
		return
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	s.log.Info("backup scheduler started",
		zap.Duration("interval", s.Interval),
		zap.String("dir", s.Dir),
		zap.Int("keep", s.Keep),
	)

	// Run immediately on start
	s.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-ctx.Done():
			s.log.Info("backup scheduler stopped")
			return
		}
	}
}

// RunNow takes one backup and prunes old ones. It reports whether the
// backup was written.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Target.Backup(ctx, s.Dir); err != nil {
		s.log.Error("backup failed", zap.String("dir", s.Dir), zap.Error(err))
		return false
	}
	s.lastRun = time.Now()

	if _, err := s.Target.PruneBackups(s.Dir, s.Keep); err != nil {
		s.log.Warn("backup pruning failed", zap.String("dir", s.Dir), zap.Error(err))
	}
	return true
}

// LastRun returns when the last successful backup finished.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
