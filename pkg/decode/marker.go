package decode

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/transform"
)

// markerStroke is the width of the frame drawn around the marker.
const markerStroke = 2

// MakeMarker renders a map marker from a thumbnail: the thumbnail at half size,
// a white frame around it, and a white arrow pointing down from its bottom edge.
// It returns nil for a nil or empty thumbnail.
func MakeMarker(thumb image.Image) image.Image {
	if thumb == nil || thumb.Bounds().Empty() {
		return nil
	}

	w := thumb.Bounds().Dx() / 2
	h := thumb.Bounds().Dy() / 2
	if w < 1 || h < 1 {
		return nil
	}
	arrow := w / 5

	out := image.NewRGBA(image.Rect(0, 0, w+markerStroke, h+markerStroke+arrow))
	half := transform.Resize(thumb, w, h, transform.Linear)
	draw.Draw(out, image.Rect(1, 1, w+1, h+1), half, image.Point{}, draw.Src)

	white := &image.Uniform{C: color.White}

	// frame
	draw.Draw(out, image.Rect(0, 0, w+2, markerStroke), white, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, h, w+2, h+markerStroke), white, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, markerStroke, h+markerStroke), white, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(w, 0, w+markerStroke, h+markerStroke), white, image.Point{}, draw.Src)

	// arrow: a filled triangle narrowing to a point arrow pixels below the frame
	cx := 1 + w/2
	for row := 0; row < arrow; row++ {
		span := (arrow - row) / 2
		y := h + markerStroke + row
		draw.Draw(out, image.Rect(cx-span, y, cx+span+1, y+1), white, image.Point{}, draw.Src)
	}

	return out
}
