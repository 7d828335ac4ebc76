package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/addrslips-core/internal/infrastructure/archive"
	"github.com/nerrad567/addrslips-core/internal/infrastructure/metrics"
)

// Save writes a durable snapshot to the archive and keeps the store open.
func (s *Store) Save(ctx context.Context) error {
	return s.Snapshot(ctx, true)
}

// Snapshot writes the working directory to the archive file.
//
// It waits for every outstanding Conn, checkpoints the WAL into project.db,
// closes the pool and packs the directory. With reopen the pool is opened
// again before the gate is released; without it the store stays closed for
// good. If reopening fails the store is closed and the error returned.
//
// A pack failure leaves the previous archive untouched.
func (s *Store) Snapshot(ctx context.Context, reopen bool) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.ObserveGateWait(metrics.ModeExclusive, time.Since(start))

	if s.db == nil {
		return ErrClosed
	}

	began := time.Now()
	size, err := s.snapshotLocked(ctx, reopen)
	s.metrics.RecordSnapshot(time.Since(began), size, err)
	if err != nil {
		s.logger.Error("snapshot failed", "path", s.path, "reopen", reopen, "error", err)
		return err
	}

	s.logger.Debug("snapshot written", "path", s.path, "bytes", size,
		"duration", time.Since(began), "reopen", reopen)
	return nil
}

// snapshotLocked requires the gate's write lock and an open database.
//
// Without reopen the database is closed on every path, so the store ends up
// closed even when nothing was written. packFailed is set whenever the
// archive was not replaced.
func (s *Store) snapshotLocked(ctx context.Context, reopen bool) (int64, error) {
	if err := s.db.Checkpoint(ctx); err != nil {
		s.packFailed = true
		if !reopen {
			s.closeDB()
		}
		return 0, Classify(fmt.Errorf("snapshot %s: %w", s.path, err))
	}

	s.closeDB()

	size, packErr := archive.Pack(ctx, s.workDir, s.path, s.opts.CompressionLevel)
	s.packFailed = packErr != nil
	if packErr != nil {
		packErr = fmt.Errorf("snapshot %s: %w", s.path, packErr)
	}

	if !reopen {
		return size, packErr
	}

	// Reopening ignores ctx so a cancelled save cannot strand the project.
	db, err := s.openDB()
	if err != nil {
		return size, errors.Join(packErr, &StoreError{Err: fmt.Errorf("reopening %s: %w", s.path, err)})
	}
	s.db = db
	return size, packErr
}
