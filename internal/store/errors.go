package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors for archive setup and store state.
var (
	// ErrClosed is returned by every operation once the store has been
	// closed or a snapshot was taken without reopening.
	ErrClosed = errors.New("project store is closed")

	// ErrParentMissing means the archive does not exist and cannot be
	// created because its directory is missing.
	ErrParentMissing = errors.New("parent directory does not exist")

	// ErrArchiveCorrupt means the archive is not a decodable zstd tar stream.
	ErrArchiveCorrupt = errors.New("project archive cannot be decoded")

	// ErrCorruptProject means exactly one of project.db and images/ was
	// present in the unpacked archive.
	ErrCorruptProject = errors.New("corrupt project layout")

	// ErrImageName rejects image file names that are not plain base names.
	ErrImageName = errors.New("invalid image file name")
)

// Constraint sentinels, matched by ConstraintError through errors.Is.
var (
	ErrForeignKey = errors.New("foreign key constraint violated")
	ErrUnique     = errors.New("uniqueness constraint violated")
	ErrCheck      = errors.New("check constraint violated")
	ErrNotNull    = errors.New("not null constraint violated")
	ErrConstraint = errors.New("constraint violated")
)

// SetupError describes a failure while turning an archive into a live store.
type SetupError struct {
	Op   string
	Path string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// StoreError wraps a connection or query failure from the embedded store.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return "store: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConstraintKind identifies which integrity rule a write broke.
type ConstraintKind int

// Constraint kinds.
const (
	ConstraintOther ConstraintKind = iota
	ConstraintForeignKey
	ConstraintUnique
	ConstraintCheck
	ConstraintNotNull
)

func (k ConstraintKind) sentinel() error {
	switch k {
	case ConstraintForeignKey:
		return ErrForeignKey
	case ConstraintUnique:
		return ErrUnique
	case ConstraintCheck:
		return ErrCheck
	case ConstraintNotNull:
		return ErrNotNull
	default:
		return ErrConstraint
	}
}

// String returns the kind's short name.
func (k ConstraintKind) String() string {
	switch k {
	case ConstraintForeignKey:
		return "foreign_key"
	case ConstraintUnique:
		return "unique"
	case ConstraintCheck:
		return "check"
	case ConstraintNotNull:
		return "not_null"
	default:
		return "other"
	}
}

// ConstraintError reports a rejected write by constraint kind. The driver
// message stays available through Unwrap.
type ConstraintError struct {
	Kind ConstraintKind
	Err  error
}

func (e *ConstraintError) Error() string {
	return e.Kind.sentinel().Error()
}

// Is matches the kind's sentinel and ErrConstraint.
func (e *ConstraintError) Is(target error) bool {
	return target == e.Kind.sentinel() || target == ErrConstraint
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Classify maps a raw database error onto the store error taxonomy:
// constraint failures become *ConstraintError and other driver or
// connection failures become *StoreError. Everything else, including
// already classified errors, ErrClosed, sql.ErrNoRows and caller sentinels,
// passes through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var ce *ConstraintError
	var se *StoreError
	if errors.As(err, &ce) || errors.As(err, &se) {
		return err
	}

	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		if sqErr.Code == sqlite3.ErrConstraint {
			return &ConstraintError{Kind: constraintKind(sqErr), Err: err}
		}
		return &StoreError{Err: err}
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) || errors.Is(err, driver.ErrBadConn) {
		return &StoreError{Err: err}
	}
	return err
}

func constraintKind(e sqlite3.Error) ConstraintKind {
	switch e.ExtendedCode {
	case sqlite3.ErrConstraintForeignKey:
		return ConstraintForeignKey
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return ConstraintUnique
	case sqlite3.ErrConstraintCheck:
		return ConstraintCheck
	case sqlite3.ErrConstraintNotNull:
		return ConstraintNotNull
	case sqlite3.ErrConstraintTrigger:
		// Schema triggers raise foreign-key style messages for
		// same-area checks that a composite key cannot express.
		if strings.Contains(e.Error(), "FOREIGN KEY") {
			return ConstraintForeignKey
		}
	}
	return ConstraintOther
}
