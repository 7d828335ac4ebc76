package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/addrslips-core/internal/store"
)

func TestAddAndGetArea(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()

	a := addTestArea(t, p, "  Old Town ")
	assert.NotZero(t, a.ID())
	assert.NotEmpty(t, a.ImageName())
	assert.Equal(t, ".png", filepath.Ext(a.ImageName()))
	require.NotNil(t, a.Image())

	got, err := a.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Area{
		ID:        a.ID(),
		Name:      "  Old Town ",
		Color:     Color{R: 0x12, G: 0x34, B: 0x56},
		State:     StateImported,
		ImageName: a.ImageName(),
	}, got)

	opened, err := p.OpenArea(ctx, a.ID())
	require.NoError(t, err)
	assert.Equal(t, a.ImageName(), opened.ImageName())
	assert.Equal(t, a.Image().Bounds(), opened.Image().Bounds())
}

func TestAddAreaValidation(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()

	_, err := p.AddArea(ctx, NewArea{Name: "", ImagePath: writePNG(t, 4, 4)})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = p.AddArea(ctx, NewArea{Name: "x", ImagePath: filepath.Join(t.TempDir(), "missing.png")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenAreaNotFound(t *testing.T) {
	p, _ := openTestProject(t)
	_, err := p.OpenArea(context.Background(), 999)
	assert.ErrorIs(t, err, ErrAreaNotFound)
}

func TestUpdateArea(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Hill")

	updated, err := a.Update(ctx, AreaUpdate{State: ptr(StateAddressesCorrected)})
	require.NoError(t, err)
	assert.Equal(t, "Hill", updated.Name)
	assert.Equal(t, StateAddressesCorrected, updated.State)

	updated, err = a.Update(ctx, AreaUpdate{Name: ptr(" Hill East"), Color: &Color{R: 1, G: 2, B: 3}})
	require.NoError(t, err)
	assert.Equal(t, " Hill East", updated.Name)
	assert.Equal(t, Color{R: 1, G: 2, B: 3}, updated.Color)
	assert.Equal(t, StateAddressesCorrected, updated.State)

	_, err = a.Update(ctx, AreaUpdate{State: ptr(AreaState(20))})
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = a.Update(ctx, AreaUpdate{Name: ptr(" ")})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAreaStateCanJumpBackwards(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Loop")

	_, err := a.SetState(ctx, StateComplete)
	require.NoError(t, err)
	got, err := a.SetState(ctx, StateImported)
	require.NoError(t, err)
	assert.Equal(t, StateImported, got.State)
}

func TestAreasListedInIDOrder(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()

	first := addTestArea(t, p, "A")
	second := addTestArea(t, p, "B")

	areas, err := p.Areas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, first.ID(), areas[0].ID)
	assert.Equal(t, second.ID(), areas[1].ID)
	assert.NotEqual(t, areas[0].ImageName, areas[1].ImageName)
}

func TestDeleteAreaCascades(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Doomed")
	other := addTestArea(t, p, "Survivor")

	st, err := a.AddStreet(ctx, NewStreet{Name: ptr("High St")})
	require.NoError(t, err)
	_, err = a.SetStreetPolyline(ctx, st.ID, []Point{{0, 0}, {10, 10}})
	require.NoError(t, err)
	addr := addTestAddress(t, a, "1")
	team, err := a.AddTeam(ctx)
	require.NoError(t, err)
	require.NoError(t, a.AssignAddress(ctx, team.ID, addr.ID))
	_, err = a.SetTeamBounds(ctx, team.ID, []Point{{0, 0}, {5, 0}, {5, 5}})
	require.NoError(t, err)
	keep := addTestAddress(t, other, "2")

	imagePath, err := p.Store().ImagePath(a.ImageName())
	require.NoError(t, err)
	require.FileExists(t, imagePath)

	require.NoError(t, a.Delete(ctx))
	assert.NoFileExists(t, imagePath)

	for _, table := range []string{"street", "address", "team", "team_assignment"} {
		assert.Zero(t, countRows(t, p, `SELECT COUNT(*) FROM `+table+` WHERE area_id = ?`, a.ID()), table)
	}
	// The surviving area has no streets or bounds, so any vertex left is orphaned.
	assert.Zero(t, countRows(t, p, `SELECT COUNT(*) FROM street_polyline_vertices`))
	assert.Zero(t, countRows(t, p, `SELECT COUNT(*) FROM team_bounds_vertices`))

	_, err = a.Get(ctx)
	assert.ErrorIs(t, err, ErrAreaNotFound)
	err = a.Delete(ctx)
	assert.ErrorIs(t, err, ErrAreaNotFound)
	_, err = p.OpenArea(ctx, a.ID())
	assert.ErrorIs(t, err, ErrAreaNotFound)

	got, err := other.Address(ctx, keep.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func countRows(t *testing.T, p *Project, query string, args ...any) int {
	t.Helper()
	var n int
	err := p.Store().WithConn(context.Background(), func(c *store.Conn) error {
		return c.QueryRowContext(context.Background(), query, args...).Scan(&n)
	})
	require.NoError(t, err)
	return n
}
