package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nerrad567/addrslips-core/internal/infrastructure/archive"
	"github.com/nerrad567/addrslips-core/internal/infrastructure/database"
	"github.com/nerrad567/addrslips-core/internal/infrastructure/metrics"
	"github.com/nerrad567/addrslips-core/migrations"
)

// Archive layout.
const (
	// DBFileName is the embedded database inside the working directory.
	DBFileName = "project.db"

	// ImageDirName holds the area images inside the working directory.
	ImageDirName = "images"

	workDirPattern  = "addrslips-project-*"
	defaultBusyWait = 5
	imageDirMode    = 0o750
)

// Logger is the logging surface the store needs. *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options tunes a Store. The zero value is usable.
type Options struct {
	// PoolSize bounds pooled connections. Zero means database.DefaultMaxOpenConns.
	PoolSize int

	// BusyTimeout is the SQLite lock wait in seconds. Zero means 5.
	BusyTimeout int

	// CompressionLevel is the zstd level for snapshots. Zero means archive.DefaultLevel.
	CompressionLevel int

	// TempDir is the parent of the working directory. Empty means os.TempDir().
	TempDir string

	// ImageCacheTTL keeps decoded images in memory. Zero disables the cache.
	ImageCacheTTL time.Duration

	Logger  Logger
	Metrics *metrics.StoreMetrics
}

// Store is one open project archive: a working directory holding the live
// database and images, plus the connection gate that serialises snapshots
// against queries.
//
// A Store is safe for concurrent use. Each Store owns its own working
// directory and gate, so several projects can be open in one process.
type Store struct {
	path    string
	workDir string
	opts    Options
	logger  Logger
	metrics *metrics.StoreMetrics
	images  *cache.Cache

	// mu is the connection gate. Readers hold it for the lifetime of a
	// Conn; snapshots hold it exclusively.
	mu sync.RWMutex

	// db is nil once the store is unusable.
	db *database.DB

	// closed is set by Close and Discard.
	closed bool

	// packFailed records that the last snapshot did not reach the archive,
	// so the working directory is the only copy of recent edits.
	packFailed bool
}

// Open materialises the archive at path into a fresh working directory and
// opens its database.
//
// A missing archive is created empty when its parent directory exists. On
// any failure the working directory is removed again.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &SetupError{Op: "resolve project path", Path: path, Err: err}
	}

	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = defaultBusyWait
	}
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = archive.DefaultLevel
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	if err := ensureArchive(abs, opts.CompressionLevel); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(opts.TempDir, workDirPattern)
	if err != nil {
		return nil, &SetupError{Op: "create working directory", Path: opts.TempDir, Err: err}
	}

	s := &Store{
		path:    abs,
		workDir: workDir,
		opts:    opts,
		logger:  logger,
		metrics: opts.Metrics,
	}
	if opts.ImageCacheTTL > 0 {
		// No janitor goroutine: expired entries are dropped on access.
		s.images = cache.New(opts.ImageCacheTTL, 0)
	}

	if err := s.materialise(ctx); err != nil {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			logger.Warn("removing working directory after failed open", "dir", workDir, "error", rmErr)
		}
		return nil, err
	}

	logger.Info("project opened", "path", abs, "working_dir", workDir)
	return s, nil
}

// ensureArchive makes sure a regular file exists at path.
func ensureArchive(path string, level int) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		return nil
	case err == nil:
		return &SetupError{Op: "open project", Path: path, Err: errors.New("not a regular file")}
	case !errors.Is(err, fs.ErrNotExist):
		return &SetupError{Op: "open project", Path: path, Err: err}
	}

	parent := filepath.Dir(path)
	if st, err := os.Stat(parent); err != nil || !st.IsDir() {
		return &SetupError{Op: "create project", Path: parent, Err: ErrParentMissing}
	}
	if err := archive.CreateEmpty(path, level); err != nil {
		return &SetupError{Op: "create project", Path: path, Err: err}
	}
	return nil
}

func (s *Store) materialise(ctx context.Context) error {
	if err := archive.Unpack(ctx, s.path, s.workDir); err != nil {
		if errors.Is(err, archive.ErrCorrupt) {
			err = fmt.Errorf("%w: %w", ErrArchiveCorrupt, err)
		}
		return &SetupError{Op: "unpack project", Path: s.path, Err: err}
	}

	dbPath := filepath.Join(s.workDir, DBFileName)
	imgDir := filepath.Join(s.workDir, ImageDirName)
	hasDB := isRegular(dbPath)
	hasImages := isDir(imgDir)

	switch {
	case hasDB && hasImages:
	case !hasDB && !hasImages:
		if err := os.Mkdir(imgDir, imageDirMode); err != nil {
			return &SetupError{Op: "create image directory", Path: imgDir, Err: err}
		}
	default:
		return &SetupError{
			Op:   "validate project layout",
			Path: s.path,
			Err: fmt.Errorf("%w: %s present=%t, %s present=%t",
				ErrCorruptProject, DBFileName, hasDB, ImageDirName, hasImages),
		}
	}

	db, err := s.openDB()
	if err != nil {
		return &SetupError{Op: "open database", Path: dbPath, Err: err}
	}
	if err := db.Migrate(ctx, migrations.Source()); err != nil {
		db.Close() //nolint:errcheck // Already failing
		return &SetupError{Op: "migrate database", Path: dbPath, Err: err}
	}
	if err := db.HealthCheck(ctx); err != nil {
		db.Close() //nolint:errcheck // Already failing
		return &SetupError{Op: "check database", Path: dbPath, Err: err}
	}
	s.db = db
	return nil
}

func (s *Store) openDB() (*database.DB, error) {
	return database.Open(database.Config{
		Path:         filepath.Join(s.workDir, DBFileName),
		WALMode:      true,
		BusyTimeout:  s.opts.BusyTimeout,
		MaxOpenConns: s.opts.PoolSize,
	})
}

// Path returns the absolute path of the archive file.
func (s *Store) Path() string { return s.path }

// WorkingDir returns the directory holding the unpacked project.
func (s *Store) WorkingDir() string { return s.workDir }

// Closed reports whether the store no longer accepts operations.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db == nil
}

// Logger returns the logger the store was opened with.
func (s *Store) Logger() Logger { return s.logger }

// Close takes a final snapshot without reopening and removes the working
// directory. It is idempotent.
//
// Failures are logged rather than returned. When the final snapshot cannot
// be written, including when ctx is already cancelled, the working directory
// is left in place so its contents can be recovered; call Save first when
// the outcome matters. The store is closed either way.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.db != nil {
		began := time.Now()
		size, err := s.snapshotLocked(ctx, false)
		s.metrics.RecordSnapshot(time.Since(began), size, err)
		if err != nil {
			s.logger.Error("final snapshot failed",
				"path", s.path, "working_dir", s.workDir, "error", err)
		}
		s.closeDB()
	}

	if s.packFailed {
		s.logger.Warn("keeping working directory with unsaved changes", "working_dir", s.workDir)
		return
	}
	s.removeWorkDir()
	s.logger.Info("project closed", "path", s.path)
}

// Discard closes the store without writing the archive, abandoning every
// change since the last snapshot.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	s.closeDB()
	s.removeWorkDir()
	s.logger.Info("project discarded", "path", s.path)
}

// closeDB closes the pool if it is open. The caller holds the write lock.
func (s *Store) closeDB() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", "error", err)
	}
	s.db = nil
}

func (s *Store) removeWorkDir() {
	if err := os.RemoveAll(s.workDir); err != nil {
		s.logger.Warn("removing working directory", "dir", s.workDir, "error", err)
	}
	if s.images != nil {
		s.images.Flush()
	}
}

func isRegular(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
