package album

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var photoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Dir loads an album from a directory of photos, reading camera metadata with exiftool.
type Dir struct {
	Root string
}

// LoadAll walks the directory in lexical order and returns one photo per image file.
func (d Dir) LoadAll() ([]*Photo, error) {
	return Find(d.Root)
}

// Find returns the photos found below root.
func Find(root string) ([]*Photo, error) {
	found := []*Photo{}

	et, err := exiftool.NewExiftool(exiftool.CoordFormant("%+.6f"))
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	defer et.Close()

	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if filepath.Base(path)[0] == '.' && path != root {
				return godirwalk.SkipThis
			}

			if de.IsDir() || !photoExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			klog.V(1).Infof("found %s", path)
			fis := et.ExtractMetadata(path)
			if fis[0].Err != nil {
				return fmt.Errorf("extract fail for %q: %w", path, fis[0].Err)
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			p := fromMetadata(fis[0])
			p.Path = path
			p.RelPath = rel
			p.Image = idFor(rel)
			p.Thumb = p.Image.Thumb()
			if p.Name == "" {
				p.Name = strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
			}

			found = append(found, p)
			return nil
		},
	})

	return found, err
}

// fromMetadata builds a photo from exiftool output. Missing fields are left blank.
func fromMetadata(fi exiftool.FileMetadata) *Photo {
	p := &Photo{}

	for k, v := range fi.Fields {
		klog.V(2).Infof("%q=%v", k, v)
	}

	mk, err := fi.GetString("Make")
	if err != nil {
		klog.V(1).Infof("unable to get make for %s: %v", fi.File, err)
	}
	model, err := fi.GetString("Model")
	if err != nil {
		klog.V(1).Infof("unable to get model for %s: %v", fi.File, err)
	}
	p.Camera = camera(mk, model)

	p.Name, _ = fi.GetString("Headline")
	if p.Name == "" {
		p.Name, _ = fi.GetString("Title")
	}

	p.Exposure = field(fi, "ExposureTime")
	p.Aperture = field(fi, "FNumber")
	p.Focal = strings.TrimSuffix(strings.ReplaceAll(field(fi, "FocalLength"), ".0", ""), " mm")
	p.ISO = field(fi, "ISO")

	if lat, ok := coord(fi, "GPSLatitude"); ok {
		p.Latitude = Microdegrees(lat)
	}
	if lon, ok := coord(fi, "GPSLongitude"); ok {
		p.Longitude = Microdegrees(lon)
	}

	return p
}

// camera joins make and model, dropping the make when the model already contains it.
func camera(mk string, model string) string {
	mk = strings.TrimSpace(mk)
	model = strings.TrimSpace(model)
	switch {
	case mk == "":
		return model
	case model == "":
		return mk
	case strings.HasPrefix(strings.ToLower(model), strings.ToLower(mk)):
		return model
	}
	return mk + " " + model
}

func field(fi exiftool.FileMetadata, k string) string {
	v, ok := fi.Fields[k]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func coord(fi exiftool.FileMetadata, k string) (float64, bool) {
	s := field(fi, k)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		klog.V(1).Infof("unable to parse %s %q for %s: %v", k, s, fi.File, err)
		return 0, false
	}
	return f, true
}
