// Package visualization renders 2-D previews of a registration as
// orthographic projections along a coordinate axis.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"

	"pointfit/pkg/transform"
)

// DefaultSize is the edge length in pixels of a projection image.
const DefaultSize = 512

// Layer colours.
var (
	FixedColor      = color.RGBA{R: 110, G: 110, B: 110, A: 255}
	InitialColor    = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	RegisteredColor = color.RGBA{R: 40, G: 160, B: 60, A: 255}
)

// Layer is one point set drawn in a single colour.
type Layer struct {
	Points []r3.Vector
	Color  color.Color
}

// Preview draws point-set layers as orthographic projections.
type Preview struct {
	layers []Layer

	// Size is the edge length in pixels of the square output.
	Size int

	// Margin is left blank around the points.
	Margin int

	// DotRadius is the half-width of the square drawn for each point.
	DotRadius int
}

// NewPreview creates a preview of a registration. Layers are drawn in
// argument order, so registered points end up on top.
func NewPreview(fixed, initial, registered []r3.Vector) *Preview {
	return &Preview{
		layers: []Layer{
			{Points: fixed, Color: FixedColor},
			{Points: initial, Color: InitialColor},
			{Points: registered, Color: RegisteredColor},
		},
		Size:      DefaultSize,
		Margin:    8,
		DotRadius: 1,
	}
}

// projectionAxes returns the in-plane coordinate indices for the plane
// normal to axis.
func projectionAxes(axis string) (u, v int, err error) {
	switch axis {
	case "x", "X":
		// YZ plane
		return 1, 2, nil
	case "y", "Y":
		// XZ plane
		return 0, 2, nil
	case "z", "Z":
		// XY plane
		return 0, 1, nil
	default:
		return 0, 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
}

func component(p r3.Vector, i int) float64 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// Project renders every layer onto the plane normal to axis. Both image
// axes share one scale so shapes are not distorted.
func (v *Preview) Project(axis string) (image.Image, error) {
	ui, vi, err := projectionAxes(axis)
	if err != nil {
		return nil, err
	}

	var all []r3.Vector
	for _, l := range v.layers {
		all = append(all, l.Points...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("nothing to draw")
	}

	lo, hi := transform.BoundingBox(all)
	minU, minV := component(lo, ui), component(lo, vi)
	span := math.Max(component(hi, ui)-minU, component(hi, vi)-minV)
	if span == 0 {
		span = 1
	}

	size := v.Size
	extent := float64(size - 1 - 2*v.Margin)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for _, l := range v.layers {
		for _, p := range l.Points {
			x := v.Margin + int(math.Round((component(p, ui)-minU)/span*extent))
			y := size - 1 - v.Margin - int(math.Round((component(p, vi)-minV)/span*extent))
			dot := image.Rect(x-v.DotRadius, y-v.DotRadius, x+v.DotRadius+1, y+v.DotRadius+1)
			draw.Draw(img, dot.Intersect(img.Bounds()), image.NewUniform(l.Color), image.Point{}, draw.Src)
		}
	}

	return img, nil
}

// SaveImage writes img as JPEG when filename ends in .jpg or .jpeg and as
// PNG otherwise.
func SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// SaveProjection renders the projection along axis and writes it to
// filename.
func (v *Preview) SaveProjection(axis, filename string) error {
	img, err := v.Project(axis)
	if err != nil {
		return err
	}
	return SaveImage(img, filename)
}

// SaveProjections writes projections along all three axes into outputDir
// as projection_x.png, projection_y.png and projection_z.png.
func (v *Preview) SaveProjections(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for _, axis := range []string{"x", "y", "z"} {
		filename := filepath.Join(outputDir, fmt.Sprintf("projection_%s.png", axis))
		if err := v.SaveProjection(axis, filename); err != nil {
			return err
		}
	}

	return nil
}
