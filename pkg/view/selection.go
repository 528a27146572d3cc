package view

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
)

// Lines reads one selection per line from r and passes the matching photo to onSelect.
// A line is a 1-based index into photos, a photo name or a relative path, see Lookup.
// Blank lines and lines starting with '#' are ignored, as are lines that match nothing.
// photos is called for every line so the catalog may change while reading.
func Lines(ctx context.Context, r io.Reader, photos func() []*album.Photo, onSelect func(*album.Photo) error) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := Lookup(photos(), line)
		if p == nil {
			klog.Warningf("line %d: no photo matches %q", n, line)
			continue
		}
		if err := onSelect(p); err != nil {
			return fmt.Errorf("select %q: %w", p.Name, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}

// Lookup finds the photo named by s: a 1-based index, a case-insensitive name, or the
// photo's path relative to its album root. Names win over paths.
func Lookup(ps []*album.Photo, s string) *album.Photo {
	if i, err := strconv.Atoi(s); err == nil {
		if i < 1 || i > len(ps) {
			return nil
		}
		return ps[i-1]
	}
	for _, p := range ps {
		if strings.EqualFold(p.Name, s) {
			return p
		}
	}
	s = filepath.Clean(filepath.FromSlash(s))
	for _, p := range ps {
		if p.RelPath != "" && p.RelPath == s {
			return p
		}
	}
	return nil
}
