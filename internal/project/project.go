package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/addrslips-core/internal/store"
)

// Metadata keys in project_metadata.
const (
	metaName        = "name"
	metaCreatedAt   = "created_at"
	metaTargetCount = "target_address_count"
)

// Project is an open project archive. It owns a store.Store and exposes
// project settings and areas.
//
// A Project is safe for concurrent use. Several Projects may be open at
// once; each has its own store and working directory.
type Project struct {
	store  *store.Store
	logger store.Logger
}

// Open opens or creates the project archive at path. A new project gets
// metadata seeded from the file name, the current time and a target
// address count of zero; existing metadata is left untouched.
func Open(ctx context.Context, path string, opts store.Options) (*Project, error) {
	s, err := store.Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	p := &Project{store: s, logger: s.Logger()}
	if err := p.seedMetadata(ctx); err != nil {
		s.Discard()
		return nil, err
	}
	return p, nil
}

func (p *Project) seedMetadata(ctx context.Context) error {
	name := strings.TrimSuffix(filepath.Base(p.store.Path()), filepath.Ext(p.store.Path()))
	created := time.Now().UTC().Format(time.RFC3339)

	const query = `
		INSERT OR IGNORE INTO project_metadata (key, value)
		VALUES (?, ?), (?, ?), (?, ?)
	`
	return p.store.WithConn(ctx, func(c *store.Conn) error {
		if _, err := c.ExecContext(ctx, query,
			metaName, name,
			metaCreatedAt, created,
			metaTargetCount, "0",
		); err != nil {
			return fmt.Errorf("seeding project metadata: %w", err)
		}
		return nil
	})
}

// Store returns the underlying store, for callers that need raw access.
func (p *Project) Store() *store.Store { return p.store }

// Path returns the absolute archive path.
func (p *Project) Path() string { return p.store.Path() }

// Save writes the working state back to the archive. The project stays open.
func (p *Project) Save(ctx context.Context) error {
	return p.store.Save(ctx)
}

// Close saves and releases the project. Failures are logged; Close is
// idempotent.
func (p *Project) Close(ctx context.Context) {
	p.store.Close(ctx)
}

// Discard releases the project without saving.
func (p *Project) Discard() {
	p.store.Discard()
}

// Settings returns all project metadata.
func (p *Project) Settings(ctx context.Context) (Settings, error) {
	const query = `SELECT key, value FROM project_metadata`

	values := make(map[string]string, 3)
	err := p.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("querying project metadata: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				return fmt.Errorf("scanning project metadata: %w", err)
			}
			values[k] = v
		}
		return rows.Err()
	})
	if err != nil {
		return Settings{}, err
	}

	var st Settings
	var ok bool
	if st.Name, ok = values[metaName]; !ok {
		return Settings{}, fmt.Errorf("%w: %s", ErrMetadataMissing, metaName)
	}
	if st.CreatedAt, err = parseCreatedAt(values); err != nil {
		return Settings{}, err
	}
	if st.TargetAddressCount, err = parseTargetCount(values); err != nil {
		return Settings{}, err
	}
	return st, nil
}

func parseCreatedAt(values map[string]string) (time.Time, error) {
	raw, ok := values[metaCreatedAt]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMetadataMissing, metaCreatedAt)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s %q: %w", metaCreatedAt, raw, err)
	}
	return t, nil
}

func parseTargetCount(values map[string]string) (uint64, error) {
	raw, ok := values[metaTargetCount]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMetadataMissing, metaTargetCount)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", metaTargetCount, raw, err)
	}
	return n, nil
}

func (p *Project) metadata(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM project_metadata WHERE key = ?`

	var value string
	err := p.store.WithConn(ctx, func(c *store.Conn) error {
		return c.QueryRowContext(ctx, query, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrMetadataMissing, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Name returns the project name.
func (p *Project) Name(ctx context.Context) (string, error) {
	return p.metadata(ctx, metaName)
}

// CreatedAt returns when the project was first created.
func (p *Project) CreatedAt(ctx context.Context) (time.Time, error) {
	v, err := p.metadata(ctx, metaCreatedAt)
	if err != nil {
		return time.Time{}, err
	}
	return parseCreatedAt(map[string]string{metaCreatedAt: v})
}

// TargetAddressCount returns how many addresses the campaign aims to cover.
func (p *Project) TargetAddressCount(ctx context.Context) (uint64, error) {
	v, err := p.metadata(ctx, metaTargetCount)
	if err != nil {
		return 0, err
	}
	return parseTargetCount(map[string]string{metaTargetCount: v})
}

// UpdateSettings writes the non-nil fields of u in one transaction.
func (p *Project) UpdateSettings(ctx context.Context, u SettingsUpdate) error {
	values := make([][2]string, 0, 3)
	if u.Name != nil {
		if err := ValidateName(*u.Name); err != nil {
			return err
		}
		values = append(values, [2]string{metaName, strings.TrimSpace(*u.Name)})
	}
	if u.CreatedAt != nil {
		values = append(values, [2]string{metaCreatedAt, u.CreatedAt.UTC().Format(time.RFC3339)})
	}
	if u.TargetAddressCount != nil {
		values = append(values, [2]string{metaTargetCount, strconv.FormatUint(*u.TargetAddressCount, 10)})
	}
	if len(values) == 0 {
		return nil
	}

	const query = `
		INSERT INTO project_metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`
	err := p.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, kv := range values {
			if _, err := tx.ExecContext(ctx, query, kv[0], kv[1]); err != nil {
				return fmt.Errorf("writing %s: %w", kv[0], err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating project settings: %w", err)
	}
	p.logger.Debug("project settings updated", "keys", len(values))
	return nil
}
