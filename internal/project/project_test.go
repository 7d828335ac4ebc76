package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/addrslips-core/internal/store"
)

func TestOpenSeedsMetadata(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	p, path := openTestProject(t)
	ctx := context.Background()

	assert.True(t, filepath.IsAbs(p.Path()))
	assert.Equal(t, "campaign.addrslips", filepath.Base(path))

	name, err := p.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "campaign", name)

	target, err := p.TargetAddressCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, target)

	created, err := p.CreatedAt(ctx)
	require.NoError(t, err)
	assert.False(t, created.Before(before.Truncate(time.Second)))
	assert.False(t, created.After(time.Now().Add(time.Second)))
}

func TestSettingsPersistAcrossReopen(t *testing.T) {
	p, path := openTestProject(t)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, p.UpdateSettings(ctx, SettingsUpdate{
		Name:               ptr("Spring Canvass"),
		TargetAddressCount: ptr(uint64(1500)),
		CreatedAt:          &created,
	}))
	p.Close(ctx)

	p2 := reopenProject(t, path)
	st, err := p2.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{Name: "Spring Canvass", CreatedAt: created, TargetAddressCount: 1500}, st)

	// Seeding must not overwrite existing metadata.
	name, err := p2.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Spring Canvass", name)
}

func TestUpdateSettingsPartial(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()

	before, err := p.Settings(ctx)
	require.NoError(t, err)

	require.NoError(t, p.UpdateSettings(ctx, SettingsUpdate{TargetAddressCount: ptr(uint64(42))}))
	require.NoError(t, p.UpdateSettings(ctx, SettingsUpdate{}))

	after, err := p.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, uint64(42), after.TargetAddressCount)

	err = p.UpdateSettings(ctx, SettingsUpdate{Name: ptr("")})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestMissingMetadata(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()

	err := p.Store().WithConn(ctx, func(c *store.Conn) error {
		_, err := c.ExecContext(ctx, `DELETE FROM project_metadata WHERE key = 'target_address_count'`)
		return err
	})
	require.NoError(t, err)

	_, err = p.TargetAddressCount(ctx)
	assert.ErrorIs(t, err, ErrMetadataMissing)
	_, err = p.Settings(ctx)
	assert.ErrorIs(t, err, ErrMetadataMissing)
}

func TestOpenMissingParent(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope", "x.addrslips"), store.Options{})
	assert.ErrorIs(t, err, store.ErrParentMissing)
}

func TestProjectPersistsAreaAcrossReopen(t *testing.T) {
	p, path := openTestProject(t)
	ctx := context.Background()

	a := addTestArea(t, p, "Harbour")
	_, err := a.SetState(ctx, StateStreetsDetected)
	require.NoError(t, err)
	addr := addTestAddress(t, a, "7")
	id := a.ID()
	p.Close(ctx)

	p2 := reopenProject(t, path)
	areas, err := p2.Areas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "Harbour", areas[0].Name)
	assert.Equal(t, StateStreetsDetected, areas[0].State)
	assert.Equal(t, Color{R: 0x12, G: 0x34, B: 0x56}, areas[0].Color)

	a2, err := p2.OpenArea(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, a2.Image().Bounds().Dx())
	assert.Equal(t, 100, a2.Image().Bounds().Dy())

	got, err := a2.Address(ctx, addr.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, addr, *got)
}

func TestDiscardDropsEdits(t *testing.T) {
	p, path := openTestProject(t)
	ctx := context.Background()
	require.NoError(t, p.Save(ctx))

	addTestArea(t, p, "Unsaved")
	p.Discard()

	p2 := reopenProject(t, path)
	areas, err := p2.Areas(ctx)
	require.NoError(t, err)
	assert.Empty(t, areas)
}

func TestTwoProjectsOpenAtOnce(t *testing.T) {
	p1, _ := openTestProject(t)
	p2, _ := openTestProject(t)
	ctx := context.Background()

	addTestArea(t, p1, "One")
	assert.NotEqual(t, p1.Store().WorkingDir(), p2.Store().WorkingDir())

	areas, err := p2.Areas(ctx)
	require.NoError(t, err)
	assert.Empty(t, areas)
}

func TestConcurrentEditsAndSaves(t *testing.T) {
	p, path := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Busy")

	const workers = 8
	const perWorker = 10

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				if _, err := a.AddAddress(gctx, NewAddress{
					HouseNumber: "1",
					Position:    Point{X: uint32(w), Y: uint32(i)},
					Confidence:  0.5,
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for i := 0; i < 3; i++ {
			if err := p.Save(gctx); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
	p.Close(ctx)

	p2 := reopenProject(t, path)
	a2, err := p2.OpenArea(ctx, a.ID())
	require.NoError(t, err)
	addrs, err := a2.Addresses(ctx)
	require.NoError(t, err)
	assert.Len(t, addrs, workers*perWorker)
}

func TestClosedProjectRejectsQueries(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()
	a := addTestArea(t, p, "Gone")
	p.Close(ctx)

	_, err := p.Areas(ctx)
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = a.Streets(ctx)
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestAddAreaRejectsUndecodableImage(t *testing.T) {
	p, _ := openTestProject(t)
	ctx := context.Background()

	bogus := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, os.WriteFile(bogus, []byte("not an image"), 0o600))

	_, err := p.AddArea(ctx, NewArea{Name: "Broken", ImagePath: bogus})
	assert.ErrorIs(t, err, ErrInvalidImage)

	entries, err := os.ReadDir(filepath.Join(p.Store().WorkingDir(), store.ImageDirName))
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected image must not stay in the project")

	areas, err := p.Areas(ctx)
	require.NoError(t, err)
	assert.Empty(t, areas)
}
