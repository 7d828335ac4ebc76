package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/nerrad567/addrslips-core/internal/infrastructure/metrics"
)

// Conn is a shared acquisition of the store: one pooled connection plus the
// gate's read lock, both held until Release.
//
// While any Conn is outstanding a snapshot waits. A goroutine must release
// its Conn before acquiring another one; a pending snapshot blocks new
// acquisitions, so nesting would deadlock.
type Conn struct {
	*sql.Conn

	once    sync.Once
	release func()
}

// Release returns the connection to the pool and drops the read lock.
// Calling it more than once is harmless.
func (c *Conn) Release() {
	c.once.Do(c.release)
}

// Close is Release. It shadows sql.Conn.Close so the gate is always unlocked.
func (c *Conn) Close() error {
	c.Release()
	return nil
}

// Acquire takes a shared slot on the gate and a pooled connection.
// It fails with ErrClosed once the store is closed.
//
// Example:
//
//	conn, err := s.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer conn.Release()
func (s *Store) Acquire(ctx context.Context) (*Conn, error) {
	start := time.Now()
	s.mu.RLock()
	s.metrics.ObserveGateWait(metrics.ModeShared, time.Since(start))

	if s.db == nil {
		s.mu.RUnlock()
		return nil, ErrClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		s.mu.RUnlock()
		return nil, Classify(err)
	}
	s.metrics.ConnectionAcquired()

	return &Conn{
		Conn: conn,
		release: func() {
			if err := conn.Close(); err != nil {
				s.logger.Warn("returning connection to pool", "error", err)
			}
			s.metrics.ConnectionReleased()
			s.mu.RUnlock()
		},
	}, nil
}

// WithConn runs fn with an acquired connection and releases it afterwards.
// Errors returned by fn are classified.
func (s *Store) WithConn(ctx context.Context, fn func(*Conn) error) error {
	conn, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return Classify(fn(conn))
}

// WithTx runs fn inside a transaction on an acquired connection. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return s.WithConn(ctx, func(c *Conn) error {
		tx, err := c.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Stats returns pool statistics, or the zero value when closed.
func (s *Store) Stats() sql.DBStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}
