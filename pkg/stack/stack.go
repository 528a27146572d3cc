// Package stack coordinates the photo stack: which photo is on top, which decoded
// images stay resident, and when entries enter, leave and get removed.
//
// All stack, cache and transition state is owned by the goroutine running
// Coordinator.Run. Decoding happens on a single background worker that handles one
// job at a time in submission order and hands each result back to that goroutine.
package stack

import (
	"errors"
	"fmt"
	"image"

	"github.com/tstromberg/albumstack/pkg/album"
	"github.com/tstromberg/albumstack/pkg/decode"
	"github.com/tstromberg/albumstack/pkg/transition"
)

var (
	// ErrDecode wraps failures to produce a full image for a photo.
	ErrDecode = errors.New("decode failed")

	ErrNotInitialized = errors.New("stack not initialized")
	ErrRunning        = errors.New("stack already running")
	ErrStopped        = errors.New("stack stopped")
)

// LocationView shows where a photo was taken.
type LocationView interface {
	SetCenter(lat int32, lon int32)
	SetOverlay(marker image.Image, lat int32, lon int32)
}

// InfoView shows the name and camera settings of the photo on top.
type InfoView interface {
	ShowInfo(p *album.Photo)
}

// Listener is told about stack changes. Methods run on the coordinator's goroutine and must not block.
type Listener interface {
	Pushed(e *Entry)
	Removed(e *Entry)
	Dropped(p *album.Photo)
	Failed(p *album.Photo, err error)
}

// MarkerFunc renders a location marker from a thumbnail.
type MarkerFunc func(thumb image.Image) image.Image

// StalePolicy decides what happens to a decode that finishes after a newer selection.
type StalePolicy int

const (
	// SkipStale drops results that are no longer the latest selection.
	SkipStale StalePolicy = iota
	// ApplyStale pushes every completed result in completion order. Selections are
	// compared with the latest selection rather than the top, so selecting the photo on
	// top while another swap is pending queues it again and it is pushed back on top.
	ApplyStale
)

func (s StalePolicy) String() string {
	if s == ApplyStale {
		return "apply"
	}
	return "skip"
}

// ParseStalePolicy parses "skip" or "apply".
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch s {
	case "skip", "":
		return SkipStale, nil
	case "apply":
		return ApplyStale, nil
	}
	return SkipStale, fmt.Errorf("unknown stale policy %q", s)
}

// FailurePolicy decides how a failed decode after initialization is surfaced.
type FailurePolicy int

const (
	// ReportFailures logs a warning and tells the Listener.
	ReportFailures FailurePolicy = iota
	// IgnoreFailures only logs at V(1).
	IgnoreFailures
)

func (f FailurePolicy) String() string {
	if f == IgnoreFailures {
		return "ignore"
	}
	return "report"
}

// ParseFailurePolicy parses "report" or "ignore".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "report", "":
		return ReportFailures, nil
	case "ignore":
		return IgnoreFailures, nil
	}
	return ReportFailures, fmt.Errorf("unknown failure policy %q", s)
}

// State is the lifecycle position of a stack entry.
type State int

const (
	Entering State = iota
	Visible
	Removed
)

func (s State) String() string {
	switch s {
	case Entering:
		return "entering"
	case Visible:
		return "visible"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Entry is one photo view in the stack. ID keys its transitions.
type Entry struct {
	ID    transition.Key
	Photo *album.Photo
	Image image.Image

	// State is only read or written by the coordinator goroutine.
	State State
}

// Options configures a Coordinator. Decoder, Location and Animator are required.
type Options struct {
	Decoder  decode.Decoder
	Location LocationView
	Animator transition.Animator

	Info     InfoView
	Listener Listener
	Markers  MarkerFunc

	CacheSize int
	Stale     StalePolicy
	Failure   FailurePolicy
}

// EntryState describes an entry in a Snapshot.
type EntryState struct {
	Photo      *album.Photo
	State      State
	Transition transition.Kind // zero when none is running
}

// Snapshot is a copy of the coordinator's state.
type Snapshot struct {
	Entries []EntryState
	Cached  []album.ImageID
	Pending int
	Latest  *album.Photo
}

// Top returns the photo currently on top of the stack.
func (s Snapshot) Top() *album.Photo {
	if len(s.Entries) == 0 {
		return nil
	}
	return s.Entries[len(s.Entries)-1].Photo
}

// Photos returns the stacked photos from bottom to top.
func (s Snapshot) Photos() []*album.Photo {
	ps := make([]*album.Photo, 0, len(s.Entries))
	for _, e := range s.Entries {
		ps = append(ps, e.Photo)
	}
	return ps
}

type nopListener struct{}

func (nopListener) Pushed(*Entry)              {}
func (nopListener) Removed(*Entry)             {}
func (nopListener) Dropped(*album.Photo)       {}
func (nopListener) Failed(*album.Photo, error) {}
