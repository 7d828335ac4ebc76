package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/addrslips-core/internal/store"
)

// Teams lists the area's teams ordered by ID.
func (a *AreaDB) Teams(ctx context.Context) ([]Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM team WHERE area_id = ? ORDER BY id`

	var teams []Team
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, a.id)
		teams, err = queryList(rows, err, scanTeam)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing teams of area %d: %w", a.id, err)
	}
	return teams, nil
}

// Team returns the team with id, or nil if the area has no such team.
func (a *AreaDB) Team(ctx context.Context, id int64) (*Team, error) {
	const query = `SELECT ` + teamColumns + ` FROM team WHERE id = ? AND area_id = ?`

	var t Team
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		t, err = scanTeam(c.QueryRowContext(ctx, query, id, a.id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting team %d: %w", id, err)
	}
	return &t, nil
}

// AddTeam creates a team numbered one above the area's highest team
// number, starting at 0. Numbers of deleted teams are not reused unless
// they were the highest.
func (a *AreaDB) AddTeam(ctx context.Context) (Team, error) {
	const query = `
		INSERT INTO team (area_id, num)
		SELECT ?, COALESCE(MAX(num), -1) + 1 FROM team WHERE area_id = ?
		RETURNING ` + teamColumns

	var t Team
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		t, err = scanTeam(c.QueryRowContext(ctx, query, a.id, a.id))
		return err
	})
	if err != nil {
		return Team{}, fmt.Errorf("inserting team in area %d: %w", a.id, err)
	}
	return t, nil
}

// DeleteTeam removes a team with its assignments and bounds.
func (a *AreaDB) DeleteTeam(ctx context.Context, id int64) error {
	const query = `DELETE FROM team WHERE id = ? AND area_id = ?`

	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		return execOne(ctx, c, ErrTeamNotFound, query, id, a.id)
	})
	if err != nil {
		return fmt.Errorf("deleting team %d: %w", id, err)
	}
	return nil
}

// AssignAddress puts an address on a team's list. Both must belong to the
// bound area (foreign key violation otherwise) and an address can be on at
// most one team (unique violation otherwise).
func (a *AreaDB) AssignAddress(ctx context.Context, teamID, addressID int64) error {
	const query = `INSERT INTO team_assignment (team_id, address_id, area_id) VALUES (?, ?, ?)`

	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		_, err := c.ExecContext(ctx, query, teamID, addressID, a.id)
		return err
	})
	if err != nil {
		return fmt.Errorf("assigning address %d to team %d: %w", addressID, teamID, err)
	}
	return nil
}

// UnassignAddress takes an address off a team's list.
func (a *AreaDB) UnassignAddress(ctx context.Context, teamID, addressID int64) error {
	const query = `DELETE FROM team_assignment WHERE team_id = ? AND address_id = ? AND area_id = ?`

	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		return execOne(ctx, c, ErrNotAssigned, query, teamID, addressID, a.id)
	})
	if err != nil {
		return fmt.Errorf("unassigning address %d from team %d: %w", addressID, teamID, err)
	}
	return nil
}

// TeamAddresses lists the addresses assigned to a team ordered by address ID.
func (a *AreaDB) TeamAddresses(ctx context.Context, teamID int64) ([]TeamAddress, error) {
	const query = `
		SELECT a.id, a.street_id, s.name, a.house_number
		FROM team_assignment ta
		JOIN address a ON a.id = ta.address_id
		LEFT JOIN street s ON s.id = a.street_id
		WHERE ta.team_id = ? AND ta.area_id = ?
		ORDER BY a.id
	`

	var out []TeamAddress
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, teamID, a.id)
		out, err = queryList(rows, err, scanTeamAddress)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing addresses of team %d: %w", teamID, err)
	}
	return out, nil
}

// AllTeamAddresses returns every team's address list keyed by team ID.
// Teams without assignments map to an empty slice.
func (a *AreaDB) AllTeamAddresses(ctx context.Context) (map[int64][]TeamAddress, error) {
	const query = `
		SELECT t.id, a.id, a.street_id, s.name, a.house_number
		FROM team t
		LEFT JOIN team_assignment ta ON ta.team_id = t.id
		LEFT JOIN address a ON a.id = ta.address_id
		LEFT JOIN street s ON s.id = a.street_id
		WHERE t.area_id = ?
		ORDER BY t.id, a.id
	`

	out := make(map[int64][]TeamAddress)
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, a.id)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var teamID int64
			var addrID sql.NullInt64
			var streetID sql.NullInt64
			var streetName, houseNumber sql.NullString
			if err := rows.Scan(&teamID, &addrID, &streetID, &streetName, &houseNumber); err != nil {
				return fmt.Errorf("scanning team address: %w", err)
			}
			list := out[teamID]
			if list == nil {
				list = []TeamAddress{}
			}
			if addrID.Valid {
				list = append(list, teamAddressFromColumns(addrID.Int64, streetID, streetName, houseNumber.String))
			}
			out[teamID] = list
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing team addresses of area %d: %w", a.id, err)
	}
	return out, nil
}

func scanTeamAddress(row scanner) (TeamAddress, error) {
	var addrID int64
	var streetID sql.NullInt64
	var streetName sql.NullString
	var houseNumber string
	if err := row.Scan(&addrID, &streetID, &streetName, &houseNumber); err != nil {
		return TeamAddress{}, err
	}
	return teamAddressFromColumns(addrID, streetID, streetName, houseNumber), nil
}

func teamAddressFromColumns(addrID int64, streetID sql.NullInt64, streetName sql.NullString, houseNumber string) TeamAddress {
	ta := TeamAddress{AddressID: addrID, HouseNumber: houseNumber}
	if streetID.Valid {
		v := streetID.Int64
		ta.StreetID = &v
	}
	if streetName.Valid {
		v := streetName.String
		ta.StreetName = &v
	}
	return ta
}

// SetTeamBounds replaces the team's boundary polygon with points.
func (a *AreaDB) SetTeamBounds(ctx context.Context, teamID int64, points []Point) (TeamBounds, error) {
	if err := ValidateBoundary(points); err != nil {
		return TeamBounds{}, err
	}

	err := a.store.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := a.exists(ctx, tx, "team", teamID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTeamNotFound
		}
		return replaceVertices(ctx, tx, "team_bounds_vertices", "team_id", teamID, points)
	})
	if err != nil {
		return TeamBounds{}, fmt.Errorf("setting bounds of team %d: %w", teamID, err)
	}

	return TeamBounds{TeamID: teamID, Points: append([]Point(nil), points...)}, nil
}

// TeamBounds returns the team's boundary, or nil if none is set or the
// area has no such team.
func (a *AreaDB) TeamBounds(ctx context.Context, teamID int64) (*TeamBounds, error) {
	const query = `
		SELECT v.x, v.y
		FROM team_bounds_vertices v
		JOIN team t ON t.id = v.team_id
		WHERE v.team_id = ? AND t.area_id = ?
		ORDER BY v.position
	`

	var points []Point
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query, teamID, a.id)
		points, err = queryPoints(rows, err)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading bounds of team %d: %w", teamID, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	return &TeamBounds{TeamID: teamID, Points: points}, nil
}

// RemoveTeamBounds deletes the team's boundary. Removing bounds that were
// never set is not an error.
func (a *AreaDB) RemoveTeamBounds(ctx context.Context, teamID int64) error {
	err := a.store.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := a.exists(ctx, tx, "team", teamID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTeamNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM team_bounds_vertices WHERE team_id = ?`, teamID)
		return err
	})
	if err != nil {
		return fmt.Errorf("removing bounds of team %d: %w", teamID, err)
	}
	return nil
}
