// Package view has simple collaborators for the stack: a location view, an info panel,
// a swap journal and a line-oriented selection source.
package view

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"k8s.io/klog/v2"
)

// Location logs where each photo was taken. With Dir set, each marker is also saved as a PNG
// on a background goroutine.
type Location struct {
	Dir  string
	Zoom int

	saves latest

	mu      sync.Mutex
	lat     int32
	lon     int32
	marker  image.Image
	markers int
}

// SetCenter moves the map center.
func (l *Location) SetCenter(lat int32, lon int32) {
	l.mu.Lock()
	l.lat, l.lon = lat, lon
	l.marker = nil
	l.mu.Unlock()

	klog.Infof("map center: %.6f, %.6f (zoom %d)", float64(lat)/1e6, float64(lon)/1e6, l.Zoom)
}

// SetOverlay replaces the map overlay with marker at the given location.
func (l *Location) SetOverlay(marker image.Image, lat int32, lon int32) {
	l.mu.Lock()
	l.marker = marker
	l.markers++
	n := l.markers
	l.mu.Unlock()

	klog.V(1).Infof("map overlay at %.6f, %.6f: %v", float64(lat)/1e6, float64(lon)/1e6, marker.Bounds())
	if l.Dir == "" {
		return
	}
	l.saves.submit("marker save", func() {
		if err := l.save(marker, n); err != nil {
			klog.Warningf("unable to save marker: %v", err)
		}
	})
}

// Flush waits for pending marker saves.
func (l *Location) Flush() {
	l.saves.wait()
}

// Current returns the current center and marker.
func (l *Location) Current() (lat int32, lon int32, marker image.Image) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lat, l.lon, l.marker
}

func (l *Location) save(marker image.Image, n int) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	p := filepath.Join(l.Dir, "marker.png")
	klog.V(1).Infof("writing marker %d to %s", n, p)
	if err := imgio.Save(p, marker, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
