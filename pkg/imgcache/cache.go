// Package imgcache holds decoded full-resolution images in a bounded LRU.
//
// A Cache is not safe for concurrent use. It is owned by the stack's interactive loop.
package imgcache

import (
	"fmt"
	"image"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
)

// DefaultSize is the number of decoded images kept resident.
const DefaultSize = 5

// Cache maps full image ids to decoded images, evicting the least recently used.
type Cache struct {
	lru *simplelru.LRU[album.ImageID, image.Image]
}

// New returns a cache holding at most size images.
func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}

	lru, err := simplelru.NewLRU[album.ImageID, image.Image](size, func(id album.ImageID, _ image.Image) {
		klog.V(1).Infof("evicted image %d", id)
	})
	if err != nil {
		return nil, fmt.Errorf("lru: %w", err)
	}
	return &Cache{lru: lru}, nil
}

// Get returns the image for id and marks it most recently used.
func (c *Cache) Get(id album.ImageID) (image.Image, bool) {
	return c.lru.Get(id)
}

// Put stores img for id, marks it most recently used, and evicts one entry if over capacity.
func (c *Cache) Put(id album.ImageID, img image.Image) {
	c.lru.Add(id, img)
}

// Contains reports whether id is resident without touching its recency.
func (c *Cache) Contains(id album.ImageID) bool {
	return c.lru.Contains(id)
}

// Len returns the number of resident images.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Keys returns resident ids from least to most recently used.
func (c *Cache) Keys() []album.ImageID {
	return c.lru.Keys()
}
