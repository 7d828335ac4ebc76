package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/addrslips-core/internal/store"
)

// Streets lists the area's streets ordered by ID.
func (a *AreaDB) Streets(ctx context.Context) ([]Street, error) {
	const query = `SELECT ` + streetColumns + ` FROM street WHERE area_id = ? ORDER BY id`

	var streets []Street
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, a.id)
		streets, err = queryList(rows, err, scanStreet)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing streets of area %d: %w", a.id, err)
	}
	return streets, nil
}

// Street returns the street with id, or nil if the area has no such street.
func (a *AreaDB) Street(ctx context.Context, id int64) (*Street, error) {
	const query = `SELECT ` + streetColumns + ` FROM street WHERE id = ? AND area_id = ?`

	var st Street
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		st, err = scanStreet(c.QueryRowContext(ctx, query, id, a.id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting street %d: %w", id, err)
	}
	return &st, nil
}

// AddStreet creates a street in the area.
func (a *AreaDB) AddStreet(ctx context.Context, s NewStreet) (Street, error) {
	const query = `
		INSERT INTO street (area_id, name, verified)
		VALUES (?, ?, ?)
		RETURNING ` + streetColumns

	var st Street
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		st, err = scanStreet(c.QueryRowContext(ctx, query, a.id, nullable(s.Name), boolArg(&s.Verified)))
		return err
	})
	if err != nil {
		return Street{}, fmt.Errorf("inserting street in area %d: %w", a.id, err)
	}
	return st, nil
}

// UpdateStreet changes the fields set in u and returns the resulting row.
func (a *AreaDB) UpdateStreet(ctx context.Context, id int64, u StreetUpdate) (Street, error) {
	const query = `
		UPDATE street SET
			name     = CASE WHEN ? THEN ? ELSE name END,
			verified = COALESCE(?, verified)
		WHERE id = ? AND area_id = ?
		RETURNING ` + streetColumns

	applyName, name := u.Name.sqlArgs()

	var st Street
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		st, err = scanStreet(c.QueryRowContext(ctx, query,
			applyName, name, boolArg(u.Verified), id, a.id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Street{}, fmt.Errorf("street %d: %w", id, ErrStreetNotFound)
	}
	if err != nil {
		return Street{}, fmt.Errorf("updating street %d: %w", id, err)
	}
	return st, nil
}

// DeleteStreet removes a street and its polyline. Addresses on the street
// are kept and lose their street reference.
func (a *AreaDB) DeleteStreet(ctx context.Context, id int64) error {
	const query = `DELETE FROM street WHERE id = ? AND area_id = ?`

	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		return execOne(ctx, c, ErrStreetNotFound, query, id, a.id)
	})
	if err != nil {
		return fmt.Errorf("deleting street %d: %w", id, err)
	}
	return nil
}

// SetStreetPolyline replaces the street's polyline with points.
func (a *AreaDB) SetStreetPolyline(ctx context.Context, streetID int64, points []Point) (StreetPolyline, error) {
	if err := ValidatePolyline(points); err != nil {
		return StreetPolyline{}, err
	}

	err := a.store.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := a.exists(ctx, tx, "street", streetID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStreetNotFound
		}
		return replaceVertices(ctx, tx, "street_polyline_vertices", "street_id", streetID, points)
	})
	if err != nil {
		return StreetPolyline{}, fmt.Errorf("setting polyline of street %d: %w", streetID, err)
	}

	return StreetPolyline{StreetID: streetID, Points: append([]Point(nil), points...)}, nil
}

// StreetPolyline returns the street's polyline, or nil if none is set or
// the area has no such street.
func (a *AreaDB) StreetPolyline(ctx context.Context, streetID int64) (*StreetPolyline, error) {
	const query = `
		SELECT v.x, v.y
		FROM street_polyline_vertices v
		JOIN street s ON s.id = v.street_id
		WHERE v.street_id = ? AND s.area_id = ?
		ORDER BY v.position
	`

	var points []Point
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, streetID, a.id)
		points, err = queryPoints(rows, err)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading polyline of street %d: %w", streetID, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	return &StreetPolyline{StreetID: streetID, Points: points}, nil
}

// RemoveStreetPolyline deletes the street's polyline. Removing a polyline
// that was never set is not an error.
func (a *AreaDB) RemoveStreetPolyline(ctx context.Context, streetID int64) error {
	err := a.store.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := a.exists(ctx, tx, "street", streetID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStreetNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM street_polyline_vertices WHERE street_id = ?`, streetID)
		return err
	})
	if err != nil {
		return fmt.Errorf("removing polyline of street %d: %w", streetID, err)
	}
	return nil
}
