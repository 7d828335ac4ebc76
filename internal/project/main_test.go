package project

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nerrad567/addrslips-core/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// openTestProject opens a fresh project in a temp dir. It is discarded at
// the end of the test unless the test closed it first.
func openTestProject(t *testing.T) (*Project, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.addrslips")
	p, err := Open(context.Background(), path, store.Options{})
	require.NoError(t, err)
	t.Cleanup(p.Discard)
	return p, path
}

func reopenProject(t *testing.T, path string) *Project {
	t.Helper()
	p, err := Open(context.Background(), path, store.Options{})
	require.NoError(t, err)
	t.Cleanup(p.Discard)
	return p
}

// writePNG writes a w x h solid image and returns its path.
func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 128, B: 255, A: 255})
		}
	}
	p := filepath.Join(t.TempDir(), "map.png")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return p
}

// addTestArea creates an area with a 100x100 image.
func addTestArea(t *testing.T, p *Project, name string) *AreaDB {
	t.Helper()
	a, err := p.AddArea(context.Background(), NewArea{
		Name:      name,
		Color:     Color{R: 0x12, G: 0x34, B: 0x56},
		ImagePath: writePNG(t, 100, 100),
	})
	require.NoError(t, err)
	return a
}

func addTestAddress(t *testing.T, a *AreaDB, hn string) Address {
	t.Helper()
	addr, err := a.AddAddress(context.Background(), NewAddress{
		HouseNumber: hn,
		Position:    Point{X: 10, Y: 20},
		Confidence:  0.9,
	})
	require.NoError(t, err)
	return addr
}

func ptr[T any](v T) *T { return &v }
