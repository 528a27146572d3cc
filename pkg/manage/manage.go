// Package manage provides HTTP handlers for driving the photo stack.
package manage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
	"github.com/tstromberg/albumstack/pkg/stack"
	"github.com/tstromberg/albumstack/pkg/view"
)

// Stack is the part of the coordinator the handlers use.
type Stack interface {
	Select(p *album.Photo) error
	State(ctx context.Context) (stack.Snapshot, error)
}

// Server serves the selection and state endpoints.
type Server struct {
	s      Stack
	photos func() []*album.Photo
}

// New creates a new server.
func New(s Stack, photos func() []*album.Photo) *Server {
	return &Server{s: s, photos: photos}
}

// Handler returns a mux with /select, /state and the files under dir at /.
func (s *Server) Handler(dir string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/select", s.SelectHandler())
	mux.Handle("/state", s.StateHandler())
	if dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}
	return mux
}

// SelectHandler selects the photo named by the "photo" parameter, an index or a name.
// Only POST is accepted.
func (s *Server) SelectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "use POST to select a photo", http.StatusMethodNotAllowed)
			return
		}

		q := r.FormValue("photo")
		p := view.Lookup(s.photos(), q)
		if p == nil {
			http.Error(w, "no photo matches "+q, http.StatusNotFound)
			return
		}

		klog.V(1).Infof("select %q via %s", p.Name, r.RemoteAddr)
		if err := s.s.Select(p); err != nil {
			klog.Errorf("select %q: %v", p.Name, err)
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

type entryJSON struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	Transition string `json:"transition,omitempty"`
}

type stateJSON struct {
	Entries []entryJSON `json:"entries"`
	Cached  []int       `json:"cached"`
	Pending int         `json:"pending"`
	Latest  string      `json:"latest,omitempty"`
}

// StateHandler writes the stack state as JSON, bottom entry first.
func (s *Server) StateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		snap, err := s.s.State(ctx)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		out := stateJSON{Pending: snap.Pending, Entries: []entryJSON{}, Cached: []int{}}
		for _, e := range snap.Entries {
			ej := entryJSON{Name: e.Photo.Name, State: e.State.String()}
			if e.Transition != 0 {
				ej.Transition = e.Transition.String()
			}
			out.Entries = append(out.Entries, ej)
		}
		for _, id := range snap.Cached {
			out.Cached = append(out.Cached, int(id))
		}
		if snap.Latest != nil {
			out.Latest = snap.Latest.Name
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			klog.Warningf("encode state: %v", err)
		}
	}
}

func statusFor(err error) int {
	if errors.Is(err, stack.ErrStopped) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
