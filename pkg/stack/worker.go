package stack

import (
	"context"
	"errors"
	"fmt"
	"image"

	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
)

// job is one accepted selection waiting for its image.
type job struct {
	seq    uint64
	photo  *album.Photo
	cached image.Image
}

type result struct {
	job    *job
	img    image.Image
	marker image.Image
	err    error
}

// worker resolves jobs one at a time and posts each result back to the loop.
func (c *Coordinator) worker(ctx context.Context, work <-chan *job) {
	for j := range work {
		klog.V(2).Infof("job %d: resolving %q (cached=%v)", j.seq, j.photo.Name, j.cached != nil)
		r := c.resolve(ctx, j)
		if !c.post(func() { c.complete(r) }) {
			klog.V(1).Infof("discarding result for %q: stack stopped", j.photo.Name)
		}
	}
}

func (c *Coordinator) resolve(ctx context.Context, j *job) result {
	r := result{job: j, img: j.cached}
	if r.img == nil {
		img, err := c.decodeFull(ctx, j.photo)
		if err != nil {
			r.err = err
			return r
		}
		r.img = img
	}
	r.marker = c.marker(ctx, j.photo)
	return r
}

func (c *Coordinator) decodeFull(ctx context.Context, p *album.Photo) (image.Image, error) {
	klog.V(1).Infof("decoding %q (image %d)", p.Name, p.Image)
	img, err := c.o.Decoder.Decode(ctx, p.Image)
	if err == nil && img == nil {
		err = errors.New("no image")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrDecode, p.Name, err)
	}
	return img, nil
}

// marker renders the location marker from p's thumbnail, or nil if the thumbnail is unavailable.
func (c *Coordinator) marker(ctx context.Context, p *album.Photo) image.Image {
	thumb, err := c.o.Decoder.Decode(ctx, p.Thumb)
	if err != nil {
		klog.Warningf("thumbnail for %q: %v", p.Name, err)
		return nil
	}
	return c.o.Markers(thumb)
}
