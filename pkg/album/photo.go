// Package album provides the photos shown by the stack and the loaders that produce them.
package album

import (
	"hash/fnv"
	"math"
)

// ImageID identifies a decodable image. Full images are positive, thumbnails are the negated full id.
type ImageID int

// Thumb returns the thumbnail id paired with a full image id.
func (id ImageID) Thumb() ImageID {
	if id < 0 {
		return id
	}
	return -id
}

// Full returns the full image id paired with a thumbnail id.
func (id ImageID) Full() ImageID {
	if id < 0 {
		return -id
	}
	return id
}

// IsThumb reports whether the id refers to a thumbnail.
func (id ImageID) IsThumb() bool {
	return id < 0
}

// Photo represents a photo with its display metadata. Photos are never mutated after loading.
type Photo struct {
	Image ImageID
	Thumb ImageID

	Name   string
	Camera string

	Exposure string
	Aperture string
	Focal    string
	ISO      string

	// Latitude and Longitude are in microdegrees.
	Latitude  int32
	Longitude int32

	// Path is the source file, empty for the built-in album.
	Path    string
	RelPath string
}

// Same reports whether two photos refer to the same full image.
func (p *Photo) Same(o *Photo) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Image == o.Image
}

// Degrees returns the location in decimal degrees.
func (p *Photo) Degrees() (lat float64, lon float64) {
	return float64(p.Latitude) / 1e6, float64(p.Longitude) / 1e6
}

// Microdegrees converts decimal degrees to the fixed-point form used by Photo.
func Microdegrees(deg float64) int32 {
	return int32(math.Round(deg * 1e6))
}

// Loader loads the ordered list of photos in an album.
type Loader interface {
	LoadAll() ([]*Photo, error)
}

// idFor returns a stable positive image id for a relative path.
func idFor(relPath string) ImageID {
	h := fnv.New32a()
	h.Write([]byte(relPath))
	id := ImageID(h.Sum32() & 0x7fffffff)
	if id == 0 {
		id = 1
	}
	return id
}
