package main

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
	"github.com/tstromberg/albumstack/pkg/decode"
	"github.com/tstromberg/albumstack/pkg/settings"
)

// catalog is the current photo list, reloadable while the stack runs.
type catalog struct {
	root    string
	loader  album.Loader
	decoder decode.Decoder
	files   *decode.Files // nil for the built-in album

	mu     sync.Mutex
	photos []*album.Photo
}

func openCatalog(root string, s *settings.Settings) (*catalog, error) {
	c := &catalog{root: root}
	if root == "" {
		c.loader = album.Sample{}
		c.decoder = decode.Swatches{Width: s.SwatchWidth, Height: s.SwatchHeight, Delay: s.SwatchDelay}
	} else {
		c.loader = album.Dir{Root: root}
		c.files = decode.NewFiles(nil, s.ThumbSize)
		c.decoder = c.files
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Photos returns the current photo list.
func (c *catalog) Photos() []*album.Photo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.photos
}

// Reload reads the catalog again. Photos keep their ids across reloads.
func (c *catalog) Reload() error {
	ps, err := c.loader.LoadAll()
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if c.files != nil {
		c.files.Reset(ps)
	}

	c.mu.Lock()
	c.photos = ps
	c.mu.Unlock()

	klog.V(1).Infof("catalog has %d photos", len(ps))
	return nil
}
