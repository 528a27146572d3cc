package view

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
	"github.com/tstromberg/albumstack/pkg/stack"
)

// Journal logs stack changes. With ExportDir set, the source of each pushed photo is
// copied there as current<ext> on a background goroutine.
type Journal struct {
	ExportDir string

	copyFile func(src string, dest string) error
	exports  latest
}

// Flush waits for pending exports.
func (j *Journal) Flush() {
	j.exports.wait()
}

// Pushed implements stack.Listener.
func (j *Journal) Pushed(e *stack.Entry) {
	klog.Infof("showing %q (entry %d)", e.Photo.Name, e.ID)
	if j.ExportDir == "" || e.Photo.Path == "" {
		return
	}
	p := e.Photo
	j.exports.submit("export", func() {
		if err := j.export(p); err != nil {
			klog.Warningf("export %q: %v", p.Name, err)
		}
	})
}

// Removed implements stack.Listener.
func (j *Journal) Removed(e *stack.Entry) {
	klog.V(1).Infof("removed %q (entry %d)", e.Photo.Name, e.ID)
}

// Dropped implements stack.Listener.
func (j *Journal) Dropped(p *album.Photo) {
	klog.V(1).Infof("skipped %q, a newer photo was selected", p.Name)
}

// Failed implements stack.Listener.
func (j *Journal) Failed(p *album.Photo, err error) {
	klog.Errorf("unable to show %q: %v", p.Name, err)
}

func (j *Journal) export(p *album.Photo) error {
	if err := os.MkdirAll(j.ExportDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	dest := filepath.Join(j.ExportDir, "current"+filepath.Ext(p.Path))
	klog.V(1).Infof("copying %s -> %s", p.Path, dest)
	cp := j.copyFile
	if cp == nil {
		cp = func(src string, dest string) error { return copy.Copy(src, dest) }
	}
	if err := cp(p.Path, dest); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}
