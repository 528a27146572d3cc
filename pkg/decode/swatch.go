package decode

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/tstromberg/albumstack/pkg/album"
)

// Default swatch dimensions, matching a 3:2 photo.
const (
	DefaultSwatchWidth  = 1024
	DefaultSwatchHeight = 683
)

// Swatches decodes any id into a solid image whose color is derived from the id.
// It backs the built-in album, which has no files.
type Swatches struct {
	Width  int
	Height int

	// Delay simulates decode cost for full images.
	Delay time.Duration
}

// Decode returns a full-size swatch, or a thumbnail-height one for thumbnail ids.
func (s Swatches) Decode(ctx context.Context, id album.ImageID) (image.Image, error) {
	w, h := s.Width, s.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultSwatchWidth, DefaultSwatchHeight
	}

	if id.IsThumb() {
		w = w * DefaultThumbSize / h
		h = DefaultThumbSize
	} else if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: SwatchColor(id)}, image.Point{}, draw.Src)
	return img, nil
}

// SwatchColor is the color used for an id. A thumbnail shares its photo's color.
func SwatchColor(id album.ImageID) color.RGBA {
	n := uint32(id.Full()) * 2654435761
	return color.RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: 0xff}
}
