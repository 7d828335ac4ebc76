package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"

	"github.com/nerrad567/addrslips-core/internal/store"
)

// AreaRepository lists, opens and creates areas.
type AreaRepository interface {
	Areas(ctx context.Context) ([]Area, error)
	OpenArea(ctx context.Context, id int64) (*AreaDB, error)
	AddArea(ctx context.Context, a NewArea) (*AreaDB, error)
}

// StreetRepository manages the streets of one area.
type StreetRepository interface {
	Streets(ctx context.Context) ([]Street, error)
	Street(ctx context.Context, id int64) (*Street, error)
	AddStreet(ctx context.Context, s NewStreet) (Street, error)
	UpdateStreet(ctx context.Context, id int64, u StreetUpdate) (Street, error)
	DeleteStreet(ctx context.Context, id int64) error
	SetStreetPolyline(ctx context.Context, streetID int64, points []Point) (StreetPolyline, error)
	StreetPolyline(ctx context.Context, streetID int64) (*StreetPolyline, error)
	RemoveStreetPolyline(ctx context.Context, streetID int64) error
}

// AddressRepository manages the addresses of one area.
type AddressRepository interface {
	Addresses(ctx context.Context) ([]Address, error)
	Address(ctx context.Context, id int64) (*Address, error)
	AddressesByStreet(ctx context.Context, streetID int64) ([]Address, error)
	AddAddress(ctx context.Context, a NewAddress) (Address, error)
	UpdateAddress(ctx context.Context, id int64, u AddressUpdate) (Address, error)
	DeleteAddress(ctx context.Context, id int64) error
}

// TeamRepository manages the teams of one area and their assignments.
type TeamRepository interface {
	Teams(ctx context.Context) ([]Team, error)
	Team(ctx context.Context, id int64) (*Team, error)
	AddTeam(ctx context.Context) (Team, error)
	DeleteTeam(ctx context.Context, id int64) error
	AssignAddress(ctx context.Context, teamID, addressID int64) error
	UnassignAddress(ctx context.Context, teamID, addressID int64) error
	TeamAddresses(ctx context.Context, teamID int64) ([]TeamAddress, error)
	AllTeamAddresses(ctx context.Context) (map[int64][]TeamAddress, error)
	SetTeamBounds(ctx context.Context, teamID int64, points []Point) (TeamBounds, error)
	TeamBounds(ctx context.Context, teamID int64) (*TeamBounds, error)
	RemoveTeamBounds(ctx context.Context, teamID int64) error
}

// BoundArea is everything that can be done through an open area handle.
type BoundArea interface {
	StreetRepository
	AddressRepository
	TeamRepository

	ID() int64
	Get(ctx context.Context) (Area, error)
	Update(ctx context.Context, u AreaUpdate) (Area, error)
	Image() image.Image
	ImageName() string
	Delete(ctx context.Context) error
}

var (
	_ AreaRepository = (*Project)(nil)
	_ BoundArea      = (*AreaDB)(nil)
)

// AreaDB is a handle bound to one area. Every child query it runs is
// scoped to that area, so IDs from other areas behave as not found.
//
// The decoded image is loaded once when the handle is created.
type AreaDB struct {
	store     *store.Store
	logger    store.Logger
	id        int64
	imageName string
	image     image.Image
}

// ID returns the bound area's ID.
func (a *AreaDB) ID() int64 { return a.id }

// Image returns the decoded area image.
func (a *AreaDB) Image() image.Image { return a.image }

// ImageName returns the stored file name of the area image.
func (a *AreaDB) ImageName() string { return a.imageName }

// Areas lists all areas ordered by ID.
func (p *Project) Areas(ctx context.Context) ([]Area, error) {
	const query = `SELECT ` + areaColumns + ` FROM area ORDER BY id`

	var areas []Area
	err := p.store.WithConn(ctx, func(c *store.Conn) error {
		rows, err := c.QueryContext(ctx, query)
		areas, err = queryList(rows, err, scanArea)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing areas: %w", err)
	}
	return areas, nil
}

// OpenArea returns a handle for an existing area.
func (p *Project) OpenArea(ctx context.Context, id int64) (*AreaDB, error) {
	const query = `SELECT image_fname FROM area WHERE id = ?`

	var imageName string
	err := p.store.WithConn(ctx, func(c *store.Conn) error {
		return c.QueryRowContext(ctx, query, id).Scan(&imageName)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("area %d: %w", id, ErrAreaNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening area %d: %w", id, err)
	}

	img, err := p.store.LoadImage(imageName)
	if err != nil {
		return nil, fmt.Errorf("loading image for area %d: %w", id, err)
	}
	return p.bind(id, imageName, img), nil
}

// AddArea copies the image at a.ImagePath into the project, checks it
// decodes, and creates the area in StateImported. The copied image is
// removed again if any later step fails.
func (p *Project) AddArea(ctx context.Context, a NewArea) (*AreaDB, error) {
	if err := ValidateName(a.Name); err != nil {
		return nil, err
	}

	imageName, err := p.store.StoreImage(a.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("storing area image: %w", err)
	}

	img, err := p.store.LoadImage(imageName)
	if err != nil {
		p.dropImage(imageName)
		if errors.Is(err, store.ErrClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidImage, a.ImagePath, err)
	}

	const query = `
		INSERT INTO area (name, color, image_fname, state)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err = p.store.WithConn(ctx, func(c *store.Conn) error {
		return c.QueryRowContext(ctx, query,
			a.Name, a.Color.Packed(), imageName, int64(StateImported),
		).Scan(&id)
	})
	if err != nil {
		p.dropImage(imageName)
		return nil, fmt.Errorf("inserting area %q: %w", a.Name, err)
	}

	p.logger.Info("area added", "area_id", id, "name", a.Name, "image", imageName)
	return p.bind(id, imageName, img), nil
}

func (p *Project) bind(id int64, imageName string, img image.Image) *AreaDB {
	return &AreaDB{
		store:     p.store,
		logger:    p.logger,
		id:        id,
		imageName: imageName,
		image:     img,
	}
}

func (p *Project) dropImage(name string) {
	if err := p.store.DeleteImage(name); err != nil {
		p.logger.Warn("removing orphaned area image", "image", name, "error", err)
	}
}

// Get reads the bound area's current row.
func (a *AreaDB) Get(ctx context.Context) (Area, error) {
	const query = `SELECT ` + areaColumns + ` FROM area WHERE id = ?`

	var area Area
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		area, err = scanArea(c.QueryRowContext(ctx, query, a.id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Area{}, fmt.Errorf("area %d: %w", a.id, ErrAreaNotFound)
	}
	if err != nil {
		return Area{}, fmt.Errorf("getting area %d: %w", a.id, err)
	}
	return area, nil
}

// Update changes the non-nil fields of u and returns the resulting row.
func (a *AreaDB) Update(ctx context.Context, u AreaUpdate) (Area, error) {
	var name, color, state any
	if u.Name != nil {
		if err := ValidateName(*u.Name); err != nil {
			return Area{}, err
		}
		name = *u.Name
	}
	if u.Color != nil {
		color = u.Color.Packed()
	}
	if u.State != nil {
		if !u.State.Valid() {
			return Area{}, fmt.Errorf("%w: %d", ErrInvalidState, uint8(*u.State))
		}
		state = int64(*u.State)
	}

	const query = `
		UPDATE area SET
			name  = COALESCE(?, name),
			color = COALESCE(?, color),
			state = COALESCE(?, state)
		WHERE id = ?
		RETURNING ` + areaColumns

	var area Area
	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		var err error
		area, err = scanArea(c.QueryRowContext(ctx, query, name, color, state, a.id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Area{}, fmt.Errorf("area %d: %w", a.id, ErrAreaNotFound)
	}
	if err != nil {
		return Area{}, fmt.Errorf("updating area %d: %w", a.id, err)
	}
	return area, nil
}

// SetState is shorthand for Update with only State set.
func (a *AreaDB) SetState(ctx context.Context, s AreaState) (Area, error) {
	return a.Update(ctx, AreaUpdate{State: &s})
}

// Delete removes the area together with its streets, addresses, teams and
// image. The handle is unusable afterwards.
func (a *AreaDB) Delete(ctx context.Context) error {
	const query = `DELETE FROM area WHERE id = ?`

	err := a.store.WithConn(ctx, func(c *store.Conn) error {
		return execOne(ctx, c, ErrAreaNotFound, query, a.id)
	})
	if err != nil {
		return fmt.Errorf("deleting area %d: %w", a.id, err)
	}

	if err := a.store.DeleteImage(a.imageName); err != nil {
		a.logger.Warn("removing image of deleted area", "area_id", a.id, "image", a.imageName, "error", err)
	}
	a.logger.Info("area deleted", "area_id", a.id)
	return nil
}

// exists reports whether a row with id belongs to the bound area in table.
func (a *AreaDB) exists(ctx context.Context, q querier, table string, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ? AND area_id = ?`, id, a.id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// querier is satisfied by *store.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execOne runs a statement expected to affect exactly one row and returns
// notFound when it affected none.
func execOne(ctx context.Context, q querier, notFound error, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// replaceVertices rewrites the ordered vertex rows of owner in table.
func replaceVertices(ctx context.Context, tx *sql.Tx, table, ownerCol string, owner int64, points []Point) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+ownerCol+` = ?`, owner); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (`+ownerCol+`, position, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i, pt := range points {
		if _, err := stmt.ExecContext(ctx, owner, i, int64(pt.X), int64(pt.Y)); err != nil {
			return fmt.Errorf("inserting %s vertex %d: %w", table, i, err)
		}
	}
	return nil
}
