// Package fs provides the stale-download sweeper.
//
// Result delivery removes its own temp file, but a crash mid-session can
// leave media behind; the sweeper is the safety net against disk
// exhaustion.
package fs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/driftbyte/fetchtube/internal/storage"
)

// Sweeper periodically removes stale files from the downloads directory
// and old objects from the archive.
type Sweeper struct {
	downloadDir string
	localMaxAge time.Duration
	interval    time.Duration

	archive       storage.Archive
	archiveMaxAge time.Duration

	stopCh chan struct{}
}

// Config holds sweeper settings.
type Config struct {
	DownloadDir   string
	LocalMaxAge   time.Duration
	Interval      time.Duration
	Archive       storage.Archive
	ArchiveMaxAge time.Duration
}

// NewSweeper creates a Sweeper.
func NewSweeper(cfg *Config) *Sweeper {
	return &Sweeper{
		downloadDir:   cfg.DownloadDir,
		localMaxAge:   cfg.LocalMaxAge,
		interval:      cfg.Interval,
		archive:       cfg.Archive,
		archiveMaxAge: cfg.ArchiveMaxAge,
		stopCh:        make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	if s.downloadDir == "" || s.interval <= 0 {
		return
	}

	go func() {
		slog.Info("Starting downloads sweeper",
			"dir", s.downloadDir,
			"max_age", s.localMaxAge,
			"interval", s.interval,
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// SweepNow performs an immediate sweep.
func (s *Sweeper) SweepNow(ctx context.Context) {
	s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	s.sweepLocal()
	s.sweepArchive(ctx)
}

// sweepLocal removes files in the downloads directory older than
// localMaxAge.
func (s *Sweeper) sweepLocal() {
	threshold := time.Now().Add(-s.localMaxAge)
	deleted := 0

	err := filepath.Walk(s.downloadDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(path); err != nil {
				slog.Warn("Failed to delete stale file",
					"path", path,
					"error", err,
				)
			} else {
				deleted++
			}
		}
		return nil
	})

	if err != nil && !os.IsNotExist(err) {
		slog.Error("Downloads sweep error",
			"dir", s.downloadDir,
			"error", err,
		)
	}

	if deleted > 0 {
		slog.Info("Downloads sweep completed",
			"deleted", deleted,
			"max_age", s.localMaxAge,
		)
	}
}

// sweepArchive removes old archived objects.
func (s *Sweeper) sweepArchive(ctx context.Context) {
	if s.archive == nil || s.archiveMaxAge <= 0 {
		return
	}

	deleted, err := s.archive.DeleteOlderThan(ctx, s.archiveMaxAge)
	if err != nil {
		slog.Error("Archive sweep error", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Archive sweep completed",
			"deleted", deleted,
			"max_age", s.archiveMaxAge,
		)
	}
}
