package visualization

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

// TestProjectPlacesPoints verifies point placement, axis orientation and draw order
func TestProjectPlacesPoints(t *testing.T) {
	fixed := []r3.Vector{{X: 0, Y: 0, Z: 0}}
	registered := []r3.Vector{{X: 1, Y: 1, Z: 1}}

	p := NewPreview(fixed, nil, registered)
	p.Size = 256

	img, err := p.Project("z")
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())

	// The origin lands bottom-left and (1, 1) top-right, inset by the margin.
	assert.Equal(t, FixedColor, rgba(img.At(8, 247)))
	assert.Equal(t, RegisteredColor, rgba(img.At(247, 8)))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, rgba(img.At(128, 128)))
}

func TestProjectDrawsRegisteredOnTop(t *testing.T) {
	pts := []r3.Vector{{X: 0}, {X: 2, Y: 1}}
	p := NewPreview(pts, pts, pts)
	p.Size = 64

	img, err := p.Project("z")
	require.NoError(t, err)
	assert.Equal(t, RegisteredColor, rgba(img.At(8, 55)))
}

func TestProjectErrors(t *testing.T) {
	p := NewPreview([]r3.Vector{{X: 1}}, nil, nil)
	_, err := p.Project("w")
	assert.Error(t, err)

	empty := NewPreview(nil, nil, nil)
	_, err = empty.Project("x")
	assert.Error(t, err)
}

// TestProjectDegenerateSet verifies that a single point renders without dividing by zero
func TestProjectDegenerateSet(t *testing.T) {
	p := NewPreview([]r3.Vector{{X: 3, Y: 3, Z: 3}}, nil, nil)
	p.Size = 32
	img, err := p.Project("y")
	require.NoError(t, err)
	assert.Equal(t, FixedColor, rgba(img.At(8, 23)))
}

func TestSaveProjections(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "preview")
	p := NewPreview(
		[]r3.Vector{{X: 0}, {X: 1, Y: 2, Z: 3}},
		[]r3.Vector{{X: 5}},
		[]r3.Vector{{X: 0.1}},
	)
	p.Size = 64

	require.NoError(t, p.SaveProjections(dir))

	for _, axis := range []string{"x", "y", "z"} {
		f, err := os.Open(filepath.Join(dir, "projection_"+axis+".png"))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 64, img.Bounds().Dx())
	}

	jpg := filepath.Join(dir, "z.jpg")
	require.NoError(t, p.SaveProjection("z", jpg))
	info, err := os.Stat(jpg)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
