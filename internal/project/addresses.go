package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/addrslips-core/internal/store"
)

// Addresses lists the area's addresses ordered by ID.
func (a *AreaDB) Addresses(ctx context.Context) ([]Address, error) {
	const query = `SELECT ` + addressColumns + ` FROM address WHERE area_id = ? ORDER BY id`

	var addrs []Address
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, a.id)
		addrs, err = queryList(rows, err, scanAddress)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing addresses of area %d: %w", a.id, err)
	}
	return addrs, nil
}

// Address returns the address with id, or nil if the area has no such address.
func (a *AreaDB) Address(ctx context.Context, id int64) (*Address, error) {
	const query = `SELECT ` + addressColumns + ` FROM address WHERE id = ? AND area_id = ?`

	var addr Address
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		addr, err = scanAddress(c.QueryRowContext(ctx, query, id, a.id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	return &addr, nil
}

// AddressesByStreet lists the addresses on one street ordered by ID.
func (a *AreaDB) AddressesByStreet(ctx context.Context, streetID int64) ([]Address, error) {
	const query = `
		SELECT ` + addressColumns + `
		FROM address
		WHERE street_id = ? AND area_id = ?
		ORDER BY id
	`

	var addrs []Address
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, streetID, a.id)
		addrs, err = queryList(rows, err, scanAddress)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing addresses of street %d: %w", streetID, err)
	}
	return addrs, nil
}

// AddAddress creates an address. A StreetID outside the area fails with a
// foreign key violation.
func (a *AreaDB) AddAddress(ctx context.Context, n NewAddress) (Address, error) {
	if err := validateNewAddress(n); err != nil {
		return Address{}, err
	}

	const query = `
		INSERT INTO address (
			area_id, house_number, x, y, confidence, verified,
			estimated_flats, circle_radius, street_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + addressColumns

	var addr Address
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		addr, err = scanAddress(c.QueryRowContext(ctx, query,
			a.id,
			strings.TrimSpace(n.HouseNumber),
			int64(n.Position.X), int64(n.Position.Y),
			n.Confidence,
			boolArg(&n.Verified),
			nullable(n.EstimatedFlats),
			nullable(n.CircleRadius),
			nullable(n.StreetID),
		))
		return err
	})
	if err != nil {
		return Address{}, fmt.Errorf("inserting address %q in area %d: %w", n.HouseNumber, a.id, err)
	}
	return addr, nil
}

// UpdateAddress changes the fields set in u and returns the resulting row.
func (a *AreaDB) UpdateAddress(ctx context.Context, id int64, u AddressUpdate) (Address, error) {
	if err := validateAddressUpdate(u); err != nil {
		return Address{}, err
	}

	const query = `
		UPDATE address SET
			house_number    = COALESCE(?, house_number),
			x               = COALESCE(?, x),
			y               = COALESCE(?, y),
			confidence      = COALESCE(?, confidence),
			verified        = COALESCE(?, verified),
			estimated_flats = CASE WHEN ? THEN ? ELSE estimated_flats END,
			circle_radius   = CASE WHEN ? THEN ? ELSE circle_radius END,
			street_id       = CASE WHEN ? THEN ? ELSE street_id END
		WHERE id = ? AND area_id = ?
		RETURNING ` + addressColumns

	var houseNumber any
	if u.HouseNumber != nil {
		houseNumber = strings.TrimSpace(*u.HouseNumber)
	}
	x, y := pointArgs(u.Position)
	applyFlats, flats := u.EstimatedFlats.sqlArgs()
	applyRadius, radius := u.CircleRadius.sqlArgs()
	applyStreet, street := u.StreetID.sqlArgs()

	var addr Address
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		addr, err = scanAddress(c.QueryRowContext(ctx, query,
			houseNumber, x, y, nullable(u.Confidence), boolArg(u.Verified),
			applyFlats, flats,
			applyRadius, radius,
			applyStreet, street,
			id, a.id,
		))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Address{}, fmt.Errorf("address %d: %w", id, ErrAddressNotFound)
	}
	if err != nil {
		return Address{}, fmt.Errorf("updating address %d: %w", id, err)
	}
	return addr, nil
}

// DeleteAddress removes an address and any team assignment it had.
func (a *AreaDB) DeleteAddress(ctx context.Context, id int64) error {
	const query = `DELETE FROM address WHERE id = ? AND area_id = ?`

	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		return execOne(ctx, c, ErrAddressNotFound, query, id, a.id)
	})
	if err != nil {
		return fmt.Errorf("deleting address %d: %w", id, err)
	}
	return nil
}
