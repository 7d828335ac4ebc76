// Package store keeps one project archive open as a live SQLite database
// plus an image directory, and writes it back as a single file on demand.
//
// A project archive is a zstd-compressed tar holding project.db and
// images/. Open unpacks it into a private working directory; Save packs
// the working directory back over the archive.
//
// # Connection Gate
//
// Queries take a shared slot (Acquire, WithConn, WithTx) that holds a read
// lock and one pooled connection until released. Snapshot takes the lock
// exclusively, so it starts only when no query is in flight, and no query
// starts until the archive is written and the pool reopened:
//
//	checkpoint WAL -> close pool -> pack archive -> reopen pool
//
// # Images
//
// StoreImage copies a raster into images/ under a random UUID name with
// the source extension. LoadImage decodes it (optionally cached);
// DeleteImage removes it.
//
// # Errors
//
// Setup problems are *SetupError wrapping ErrParentMissing,
// ErrArchiveCorrupt or ErrCorruptProject. Classify turns driver errors into
// *ConstraintError (match with ErrForeignKey, ErrUnique, ...) or
// *StoreError. Every operation on a closed store returns ErrClosed.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. A goroutine must not
// hold two Conns at once.
package store
