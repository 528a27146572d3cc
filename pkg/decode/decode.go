// Package decode turns image ids into decoded images.
package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
)

// ErrUnknownImage is returned for ids the decoder has no source for.
var ErrUnknownImage = errors.New("unknown image")

// DefaultThumbSize is the height thumbnails are scaled to.
const DefaultThumbSize = 180

// Decoder produces a decoded image for an id. It may be slow.
type Decoder interface {
	Decode(ctx context.Context, id album.ImageID) (image.Image, error)
}

// Files decodes photos from their source files. Thumbnail ids decode the same file scaled down.
type Files struct {
	ThumbSize int

	mu    sync.RWMutex
	paths map[album.ImageID]string
}

// NewFiles returns a decoder for the given photos.
func NewFiles(ps []*album.Photo, thumbSize int) *Files {
	f := &Files{ThumbSize: thumbSize}
	f.Reset(ps)
	return f
}

// Reset replaces the known sources, for example after the album was reloaded.
func (f *Files) Reset(ps []*album.Photo) {
	paths := make(map[album.ImageID]string, len(ps))
	for _, p := range ps {
		if p.Path == "" {
			continue
		}
		paths[p.Image] = p.Path
	}

	f.mu.Lock()
	f.paths = paths
	f.mu.Unlock()
}

// Decode opens the source file for id, scaling it when id is a thumbnail.
func (f *Files) Decode(ctx context.Context, id album.ImageID) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	path, ok := f.paths[id.Full()]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownImage, id)
	}

	klog.V(1).Infof("decoding %s (id %d)", path, id)
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}

	if !id.IsThumb() {
		return img, nil
	}
	return thumbnail(img, f.ThumbSize)
}

// thumbnail scales img so that its height is size, keeping the aspect ratio.
func thumbnail(img image.Image, size int) (image.Image, error) {
	if img.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("no Y for %+v", img.Bounds())
	}

	if img.Bounds().Dx() == 0 {
		return nil, fmt.Errorf("no X for %+v", img.Bounds())
	}

	if size <= 0 {
		size = DefaultThumbSize
	}

	scale := float64(img.Bounds().Dy()) / float64(size)
	x := int(float64(img.Bounds().Dx()) / scale)
	if x < 1 {
		x = 1
	}

	return transform.Resize(img, x, size, transform.Lanczos), nil
}
