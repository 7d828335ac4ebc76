package project

import (
	"database/sql"
	"fmt"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// nullable converts an optional value to a driver argument.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func pointArgs(p *Point) (x, y any) {
	if p == nil {
		return nil, nil
	}
	return int64(p.X), int64(p.Y)
}

func boolArg(p *bool) any {
	if p == nil {
		return nil
	}
	if *p {
		return int64(1)
	}
	return int64(0)
}

const areaColumns = `id, name, color, state, image_fname`

func scanArea(row scanner) (Area, error) {
	var a Area
	var color, state int64
	if err := row.Scan(&a.ID, &a.Name, &color, &state, &a.ImageName); err != nil {
		return Area{}, err
	}
	st, err := areaStateFromColumn(state)
	if err != nil {
		return Area{}, fmt.Errorf("area %d: %w", a.ID, err)
	}
	a.Color = ColorFromPacked(color)
	a.State = st
	return a, nil
}

const streetColumns = `id, area_id, name, verified`

func scanStreet(row scanner) (Street, error) {
	var s Street
	var name sql.NullString
	if err := row.Scan(&s.ID, &s.AreaID, &name, &s.Verified); err != nil {
		return Street{}, err
	}
	if name.Valid {
		s.Name = &name.String
	}
	return s, nil
}

const addressColumns = `id, area_id, house_number, x, y, confidence, verified,
	estimated_flats, circle_radius, street_id`

func scanAddress(row scanner) (Address, error) {
	var a Address
	var x, y int64
	var flats, radius, street sql.NullInt64
	if err := row.Scan(&a.ID, &a.AreaID, &a.HouseNumber, &x, &y, &a.Confidence, &a.Verified,
		&flats, &radius, &street); err != nil {
		return Address{}, err
	}
	a.Position = pointFromColumns(x, y)
	if flats.Valid {
		v := uint16(flats.Int64)
		a.EstimatedFlats = &v
	}
	if radius.Valid {
		v := uint32(radius.Int64)
		a.CircleRadius = &v
	}
	if street.Valid {
		v := street.Int64
		a.StreetID = &v
	}
	return a, nil
}

const teamColumns = `id, area_id, num`

func scanTeam(row scanner) (Team, error) {
	var t Team
	var num int64
	if err := row.Scan(&t.ID, &t.AreaID, &num); err != nil {
		return Team{}, err
	}
	t.Number = uint16(num)
	return t, nil
}

// queryList runs a query and scans every row with scan.
func queryList[T any](rows *sql.Rows, err error, scan func(scanner) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// queryPoints reads ordered (x, y) vertex rows.
func queryPoints(rows *sql.Rows, err error) ([]Point, error) {
	return queryList(rows, err, func(s scanner) (Point, error) {
		var x, y int64
		if err := s.Scan(&x, &y); err != nil {
			return Point{}, err
		}
		return pointFromColumns(x, y), nil
	})
}
