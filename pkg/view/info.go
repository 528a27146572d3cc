package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
)

// Info is the photo info panel. It logs the panel, and writes it to Out if set.
type Info struct {
	Out io.Writer

	mu   sync.Mutex
	last string
}

// ShowInfo displays p's name and camera settings.
func (i *Info) ShowInfo(p *album.Photo) {
	s := Describe(p)

	i.mu.Lock()
	i.last = s
	i.mu.Unlock()

	klog.V(1).Infof("photo info: %s", s)
	if i.Out != nil {
		fmt.Fprintln(i.Out, s)
	}
}

// Last returns the most recently shown description.
func (i *Info) Last() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last
}

// Describe formats a photo the way the info panel shows it. Empty settings are skipped.
func Describe(p *album.Photo) string {
	parts := []string{p.Name}
	add := func(format string, v string) {
		if v != "" {
			parts = append(parts, fmt.Sprintf(format, v))
		}
	}
	add("%s", p.Camera)
	add("%ss", p.Exposure)
	add("f/%s", p.Aperture)
	add("%smm", p.Focal)
	add("ISO %s", p.ISO)
	return strings.Join(parts, " | ")
}
