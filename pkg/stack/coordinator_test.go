package stack

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tstromberg/albumstack/pkg/album"
	"github.com/tstromberg/albumstack/pkg/transition"
)

const wait = 5 * time.Second

// fakeDecoder decodes every id into a tiny image, except ids marked as failing.
// Ids with a gate block until the gate is closed.
type fakeDecoder struct {
	mu    sync.Mutex
	fail  map[album.ImageID]bool
	gates map[album.ImageID]chan struct{}
	calls map[album.ImageID]int
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{
		fail:  map[album.ImageID]bool{},
		gates: map[album.ImageID]chan struct{}{},
		calls: map[album.ImageID]int{},
	}
}

func (d *fakeDecoder) Decode(ctx context.Context, id album.ImageID) (image.Image, error) {
	d.mu.Lock()
	d.calls[id]++
	gate := d.gates[id]
	fail := d.fail[id]
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("corrupt image")
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 6)), nil
}

func (d *fakeDecoder) setFail(id album.ImageID, fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[id] = fail
}

func (d *fakeDecoder) gate(id album.ImageID) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := make(chan struct{})
	d.gates[id] = g
	return g
}

func (d *fakeDecoder) count(id album.ImageID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[id]
}

type start struct {
	Kind transition.Kind
	Key  transition.Key
}

// manualAnimator finishes transitions only when the test asks. With instant set,
// every transition finishes right away on its own goroutine.
type manualAnimator struct {
	mu      sync.Mutex
	instant bool
	starts  []start
	done    map[transition.Key]func()
	stopped []transition.Key
}

func newManualAnimator() *manualAnimator {
	return &manualAnimator{done: map[transition.Key]func(){}}
}

func (a *manualAnimator) Start(kind transition.Kind, key transition.Key, done func()) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts = append(a.starts, start{kind, key})
	a.done[key] = done
	if a.instant {
		go done()
	}
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.stopped = append(a.stopped, key)
	}
}

func (a *manualAnimator) finish(key transition.Key) {
	a.mu.Lock()
	done := a.done[key]
	a.mu.Unlock()
	done()
}

func (a *manualAnimator) started() []start {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]start(nil), a.starts...)
}

func (a *manualAnimator) stops() []transition.Key {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]transition.Key(nil), a.stopped...)
}

type fakeLocation struct {
	mu       sync.Mutex
	centers  [][2]int32
	overlays int
}

func (l *fakeLocation) SetCenter(lat int32, lon int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.centers = append(l.centers, [2]int32{lat, lon})
}

func (l *fakeLocation) SetOverlay(marker image.Image, _ int32, _ int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if marker != nil {
		l.overlays++
	}
}

func (l *fakeLocation) last() ([2]int32, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.centers[len(l.centers)-1], l.overlays
}

type fakeInfo struct {
	mu    sync.Mutex
	names []string
}

func (i *fakeInfo) ShowInfo(p *album.Photo) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.names = append(i.names, p.Name)
}

type failure struct {
	photo *album.Photo
	err   error
}

type recorder struct {
	pushed  chan *Entry
	removed chan *Entry
	dropped chan *album.Photo
	failed  chan failure
}

func newRecorder() *recorder {
	return &recorder{
		pushed:  make(chan *Entry, 100),
		removed: make(chan *Entry, 100),
		dropped: make(chan *album.Photo, 100),
		failed:  make(chan failure, 100),
	}
}

func (r *recorder) Pushed(e *Entry)                  { r.pushed <- e }
func (r *recorder) Removed(e *Entry)                 { r.removed <- e }
func (r *recorder) Dropped(p *album.Photo)           { r.dropped <- p }
func (r *recorder) Failed(p *album.Photo, err error) { r.failed <- failure{p, err} }

func receive[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(wait):
		var zero T
		t.Fatalf("timed out waiting for %s", what)
		return zero
	}
}

type harness struct {
	c      *Coordinator
	dec    *fakeDecoder
	anim   *manualAnimator
	loc    *fakeLocation
	info   *fakeInfo
	rec    *recorder
	photos []*album.Photo
}

func newHarness(t *testing.T, modify func(o *Options)) *harness {
	t.Helper()
	photos, err := album.Sample{}.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	h := &harness{
		dec:    newFakeDecoder(),
		anim:   newManualAnimator(),
		loc:    &fakeLocation{},
		info:   &fakeInfo{},
		rec:    newRecorder(),
		photos: photos,
	}
	o := Options{
		Decoder:  h.dec,
		Location: h.loc,
		Animator: h.anim,
		Info:     h.info,
		Listener: h.rec,
	}
	if modify != nil {
		modify(&o)
	}

	h.c, err = New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

// run initializes the stack with the first photo and starts the loop.
func (h *harness) run(t *testing.T) {
	t.Helper()
	if err := h.c.Initialize(context.Background(), h.photos[0]); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	})
}

func (h *harness) state(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	s, err := h.c.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	return s
}

func (h *harness) sel(t *testing.T, p *album.Photo) {
	t.Helper()
	if err := h.c.Select(p); err != nil {
		t.Fatalf("Select(%q): %v", p.Name, err)
	}
}

func ids(ps []*album.Photo) []album.ImageID {
	out := []album.ImageID{}
	for _, p := range ps {
		out = append(out, p.Image)
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *Options)
	}{
		{"no decoder", func(o *Options) { o.Decoder = nil }},
		{"no location", func(o *Options) { o.Location = nil }},
		{"no animator", func(o *Options) { o.Animator = nil }},
		{"negative cache", func(o *Options) { o.CacheSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Options{Decoder: newFakeDecoder(), Location: &fakeLocation{}, Animator: newManualAnimator()}
			tt.modify(&o)
			if _, err := New(o); err == nil {
				t.Errorf("New succeeded, want error")
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	s := h.state(t)
	if diff := cmp.Diff([]album.ImageID{1}, ids(s.Photos())); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if s.Entries[0].State != Visible || s.Entries[0].Transition != 0 {
		t.Errorf("initial entry = %+v, want visible without transition", s.Entries[0])
	}
	if diff := cmp.Diff([]album.ImageID{1}, s.Cached); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}

	center, overlays := h.loc.last()
	if center != [2]int32{h.photos[0].Latitude, h.photos[0].Longitude} || overlays != 1 {
		t.Errorf("location = %v with %d overlays", center, overlays)
	}
}

// Initial decode failure is fatal: no entry, and Run refuses to start.
func TestInitializeDecodeFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.dec.setFail(h.photos[0].Image, true)

	err := h.c.Initialize(context.Background(), h.photos[0])
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Initialize error = %v, want ErrDecode", err)
	}
	if err := h.c.Run(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Run error = %v, want ErrNotInitialized", err)
	}
	if err := h.c.Select(h.photos[1]); !errors.Is(err, ErrStopped) {
		t.Errorf("Select after failed Run = %v, want ErrStopped", err)
	}
}

func TestRunTwice(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)
	h.state(t)

	if err := h.c.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run = %v, want ErrRunning", err)
	}
	if err := h.c.Initialize(context.Background(), h.photos[1]); !errors.Is(err, ErrRunning) {
		t.Errorf("Initialize while running = %v, want ErrRunning", err)
	}
}

// Selecting photos 1..6 one after another leaves images 2..6 cached and 6 on top.
func TestSequentialSelectionsEvictOldest(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	for _, p := range h.photos[:6] {
		h.sel(t, p)
		if p == h.photos[0] {
			continue
		}
		e := receive(t, h.rec.pushed, "push of "+p.Name)
		if e.Photo != p {
			t.Fatalf("pushed %q, want %q", e.Photo.Name, p.Name)
		}
	}

	s := h.state(t)
	if diff := cmp.Diff([]album.ImageID{2, 3, 4, 5, 6}, s.Cached); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}
	if s.Top() != h.photos[5] {
		t.Errorf("top = %q, want %q", s.Top().Name, h.photos[5].Name)
	}
	if s.Pending != 0 {
		t.Errorf("pending = %d, want 0", s.Pending)
	}
}

// With stale results applied, every queued completion pushes, in submission order.
func TestApplyStalePushesEveryCompletion(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Stale = ApplyStale })
	h.run(t)

	for _, p := range h.photos[1:6] {
		h.sel(t, p)
	}
	for _, p := range h.photos[1:6] {
		if e := receive(t, h.rec.pushed, "push"); e.Photo != p {
			t.Fatalf("pushed %q, want %q", e.Photo.Name, p.Name)
		}
	}

	s := h.state(t)
	if diff := cmp.Diff([]album.ImageID{2, 3, 4, 5, 6}, s.Cached); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]album.ImageID{1, 2, 3, 4, 5, 6}, ids(s.Photos())); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectTopIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.sel(t, h.photos[0])
	h.sel(t, h.photos[0])

	s := h.state(t)
	if s.Pending != 0 || len(s.Entries) != 1 {
		t.Errorf("state after reselecting top = %+v", s)
	}
	if n := h.dec.count(h.photos[0].Image); n != 1 {
		t.Errorf("decoded top %d times, want 1", n)
	}
	if len(h.rec.pushed) != 0 {
		t.Errorf("unexpected push")
	}
}

// Selecting X twice before its decode finishes pushes exactly once.
func TestDoubleSelectionBeforeCompletion(t *testing.T) {
	h := newHarness(t, nil)
	x := h.photos[3]
	gate := h.dec.gate(x.Image)
	h.run(t)

	h.sel(t, x)
	h.sel(t, x)
	if s := h.state(t); s.Pending != 1 {
		t.Fatalf("pending = %d, want 1", s.Pending)
	}
	close(gate)

	if e := receive(t, h.rec.pushed, "push"); e.Photo != x {
		t.Fatalf("pushed %q, want %q", e.Photo.Name, x.Name)
	}

	s := h.state(t)
	if diff := cmp.Diff([]album.ImageID{1, x.Image}, ids(s.Photos())); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if len(h.rec.pushed) != 0 {
		t.Errorf("got a second push")
	}
	if n := h.dec.count(x.Image); n != 1 {
		t.Errorf("decoded %d times, want 1", n)
	}
}

func TestCacheHitSkipsDecode(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.sel(t, h.photos[1])
	receive(t, h.rec.pushed, "push")
	h.sel(t, h.photos[0])
	receive(t, h.rec.pushed, "push")

	if n := h.dec.count(h.photos[0].Image); n != 1 {
		t.Errorf("image 1 decoded %d times, want 1", n)
	}
	s := h.state(t)
	if s.Top() != h.photos[0] {
		t.Errorf("top = %q", s.Top().Name)
	}
	if diff := cmp.Diff([]album.ImageID{2, 1}, s.Cached); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}
}

func TestSwapStartsTransitionsAndBindsViews(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	p := h.photos[2]
	h.sel(t, p)
	e := receive(t, h.rec.pushed, "push")

	want := []start{{transition.Enter, e.ID}, {transition.Exit, e.ID - 1}}
	if diff := cmp.Diff(want, h.anim.started()); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}

	s := h.state(t)
	got := []EntryState{}
	for _, es := range s.Entries {
		got = append(got, EntryState{State: es.State, Transition: es.Transition})
	}
	wantStates := []EntryState{
		{State: Visible, Transition: transition.Exit},
		{State: Entering, Transition: transition.Enter},
	}
	if diff := cmp.Diff(wantStates, got); diff != "" {
		t.Errorf("entry states mismatch (-want +got):\n%s", diff)
	}

	center, overlays := h.loc.last()
	if center != [2]int32{p.Latitude, p.Longitude} || overlays != 2 {
		t.Errorf("location = %v with %d overlays", center, overlays)
	}

	h.info.mu.Lock()
	names := append([]string(nil), h.info.names...)
	h.info.mu.Unlock()
	if diff := cmp.Diff([]string{h.photos[0].Name, p.Name}, names); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}
}

// When the new entry finishes entering, the covered entry is removed and its exit cancelled.
func TestEnterCompletionRemovesCovered(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.sel(t, h.photos[1])
	e := receive(t, h.rec.pushed, "push")
	prev := e.ID - 1

	h.anim.finish(e.ID)
	removed := receive(t, h.rec.removed, "removal")
	if removed.ID != prev {
		t.Errorf("removed entry %d, want %d", removed.ID, prev)
	}
	if diff := cmp.Diff([]transition.Key{prev}, h.anim.stops()); diff != "" {
		t.Errorf("stopped mismatch (-want +got):\n%s", diff)
	}

	s := h.state(t)
	if len(s.Entries) != 1 || s.Entries[0].State != Visible || s.Entries[0].Transition != 0 {
		t.Errorf("entries after enter = %+v", s.Entries)
	}

	// the cancelled exit completing late changes nothing
	h.anim.finish(prev)
	if s := h.state(t); len(s.Entries) != 1 {
		t.Errorf("late exit completion changed the stack: %+v", s.Entries)
	}
}

// A previous top that is still entering does not get an exit transition, and an entry
// never has enter and exit running at once.
func TestNoExitWhilePreviousIsEntering(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.sel(t, h.photos[1])
	b := receive(t, h.rec.pushed, "push b")
	h.sel(t, h.photos[2])
	c := receive(t, h.rec.pushed, "push c")

	want := []start{
		{transition.Enter, b.ID},
		{transition.Exit, b.ID - 1},
		{transition.Enter, c.ID},
	}
	if diff := cmp.Diff(want, h.anim.started()); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}

	h.anim.finish(c.ID)
	first := receive(t, h.rec.removed, "removal")
	second := receive(t, h.rec.removed, "removal")
	if first.ID != b.ID-1 || second.ID != b.ID {
		t.Errorf("removed %d then %d, want %d then %d", first.ID, second.ID, b.ID-1, b.ID)
	}
	if diff := cmp.Diff([]transition.Key{b.ID - 1, b.ID}, h.anim.stops()); diff != "" {
		t.Errorf("stopped mismatch (-want +got):\n%s", diff)
	}

	s := h.state(t)
	if diff := cmp.Diff([]album.ImageID{h.photos[2].Image}, ids(s.Photos())); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
}

func TestStaleResultDropped(t *testing.T) {
	h := newHarness(t, nil)
	slow := h.photos[1]
	gate := h.dec.gate(slow.Image)
	h.run(t)

	h.sel(t, slow)
	h.sel(t, h.photos[2])
	h.state(t)
	close(gate)

	if p := receive(t, h.rec.dropped, "drop"); p != slow {
		t.Errorf("dropped %q, want %q", p.Name, slow.Name)
	}
	if e := receive(t, h.rec.pushed, "push"); e.Photo != h.photos[2] {
		t.Errorf("pushed %q, want %q", e.Photo.Name, h.photos[2].Name)
	}

	s := h.state(t)
	if diff := cmp.Diff([]album.ImageID{1, 3}, ids(s.Photos())); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	// the stale image stays cached, behind the top it was dropped for
	if diff := cmp.Diff([]album.ImageID{2, 1, 3}, s.Cached); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}
}

// Dropped results must not push the image on top out of the cache.
func TestStaleResultsKeepTopCached(t *testing.T) {
	h := newHarness(t, nil)
	first := h.dec.gate(h.photos[1].Image)
	h.dec.gate(h.photos[6].Image)
	h.run(t)

	for _, p := range h.photos[1:7] {
		h.sel(t, p)
	}
	h.state(t)
	close(first)

	for _, p := range h.photos[1:6] {
		if got := receive(t, h.rec.dropped, "drop of "+p.Name); got != p {
			t.Fatalf("dropped %q, want %q", got.Name, p.Name)
		}
	}

	s := h.state(t)
	if s.Top() != h.photos[0] {
		t.Fatalf("top = %q, want %q", s.Top().Name, h.photos[0].Name)
	}
	if diff := cmp.Diff([]album.ImageID{3, 4, 5, 6, 1}, s.Cached); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}
	if s.Pending != 1 {
		t.Errorf("pending = %d, want 1", s.Pending)
	}
}

func TestReselectingTopWhileSwapPendingKeepsTop(t *testing.T) {
	h := newHarness(t, nil)
	slow := h.photos[1]
	gate := h.dec.gate(slow.Image)
	h.run(t)

	h.sel(t, slow)
	h.sel(t, h.photos[0])
	h.state(t)
	close(gate)

	receive(t, h.rec.dropped, "drop")
	if err := h.c.Idle(context.Background()); err != nil {
		t.Fatalf("Idle: %v", err)
	}
	if len(h.rec.pushed) != 0 {
		t.Errorf("unexpected push")
	}
	if s := h.state(t); s.Top() != h.photos[0] || len(s.Entries) != 1 {
		t.Errorf("stack = %v", ids(s.Photos()))
	}
}

func TestStaleResultApplied(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Stale = ApplyStale })
	slow := h.photos[1]
	gate := h.dec.gate(slow.Image)
	h.run(t)

	h.sel(t, slow)
	h.sel(t, h.photos[2])
	h.state(t)
	close(gate)

	if e := receive(t, h.rec.pushed, "push"); e.Photo != slow {
		t.Errorf("first push %q, want %q", e.Photo.Name, slow.Name)
	}
	if e := receive(t, h.rec.pushed, "push"); e.Photo != h.photos[2] {
		t.Errorf("second push %q, want %q", e.Photo.Name, h.photos[2].Name)
	}
	if s := h.state(t); s.Top() != h.photos[2] {
		t.Errorf("top = %q", s.Top().Name)
	}
}

func TestApplyStaleReselectingTopPushesItAgain(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Stale = ApplyStale })
	slow := h.photos[1]
	gate := h.dec.gate(slow.Image)
	h.run(t)

	h.sel(t, slow)
	h.sel(t, h.photos[0])
	h.state(t)
	close(gate)

	if e := receive(t, h.rec.pushed, "push"); e.Photo != slow {
		t.Errorf("first push %q, want %q", e.Photo.Name, slow.Name)
	}
	if e := receive(t, h.rec.pushed, "push"); e.Photo != h.photos[0] {
		t.Errorf("second push %q, want %q", e.Photo.Name, h.photos[0].Name)
	}
	if got := h.dec.count(h.photos[0].Image); got != 1 {
		t.Errorf("decoded %q %d times, want 1 (cache hit)", h.photos[0].Name, got)
	}
}

func TestFailedSwapReportedAndRetried(t *testing.T) {
	h := newHarness(t, nil)
	bad := h.photos[4]
	h.dec.setFail(bad.Image, true)
	h.run(t)

	h.sel(t, bad)
	f := receive(t, h.rec.failed, "failure")
	if f.photo != bad || !errors.Is(f.err, ErrDecode) {
		t.Errorf("failure = %q %v", f.photo.Name, f.err)
	}

	s := h.state(t)
	if s.Top() != h.photos[0] || len(s.Entries) != 1 || s.Pending != 0 {
		t.Errorf("state after failure = %+v", s)
	}
	if s.Latest != h.photos[0] {
		t.Errorf("latest = %q, want the top photo", s.Latest.Name)
	}

	// a failed photo can be selected again, and succeeds once decodable
	h.dec.setFail(bad.Image, false)
	h.sel(t, bad)
	if e := receive(t, h.rec.pushed, "push"); e.Photo != bad {
		t.Errorf("pushed %q, want %q", e.Photo.Name, bad.Name)
	}
	if n := h.dec.count(bad.Image); n != 2 {
		t.Errorf("decoded %d times, want 2", n)
	}
}

func TestFailedSwapIgnored(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Failure = IgnoreFailures })
	bad := h.photos[4]
	h.dec.setFail(bad.Image, true)
	h.run(t)

	h.sel(t, bad)
	if err := h.c.Idle(context.Background()); err != nil {
		t.Fatalf("Idle: %v", err)
	}
	if len(h.rec.failed) != 0 {
		t.Errorf("failure reported under ignore policy")
	}
	if s := h.state(t); s.Top() != h.photos[0] || len(s.Entries) != 1 {
		t.Errorf("stack = %v", ids(s.Photos()))
	}
}

func TestThumbnailFailureStillSwaps(t *testing.T) {
	h := newHarness(t, nil)
	p := h.photos[1]
	h.dec.setFail(p.Thumb, true)
	h.run(t)

	h.sel(t, p)
	receive(t, h.rec.pushed, "push")

	center, overlays := h.loc.last()
	if center != [2]int32{p.Latitude, p.Longitude} {
		t.Errorf("center = %v, want %q's location", center, p.Name)
	}
	if overlays != 1 {
		t.Errorf("overlays = %d, want only the initial one", overlays)
	}
}

func TestIdleAfterRapidSelections(t *testing.T) {
	h := newHarness(t, nil)
	h.anim.instant = true
	h.run(t)

	for _, p := range h.photos[1:5] {
		h.sel(t, p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := h.c.Idle(ctx); err != nil {
		t.Fatalf("Idle: %v", err)
	}

	s := h.state(t)
	if diff := cmp.Diff([]album.ImageID{h.photos[4].Image}, ids(s.Photos())); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	if s.Entries[0].State != Visible || s.Pending != 0 {
		t.Errorf("top entry = %+v, pending %d", s.Entries[0], s.Pending)
	}
}

func TestStoppedCoordinator(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.c.Initialize(context.Background(), h.photos[0]); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.c.Run(ctx) }()
	h.state(t)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}

	if err := h.c.Select(h.photos[1]); !errors.Is(err, ErrStopped) {
		t.Errorf("Select after stop = %v, want ErrStopped", err)
	}
	if _, err := h.c.State(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("State after stop = %v, want ErrStopped", err)
	}
	if err := h.c.Idle(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Idle after stop = %v, want ErrStopped", err)
	}
}

func TestParsePolicies(t *testing.T) {
	tests := []struct {
		in        string
		wantStale StalePolicy
		staleErr  bool
	}{
		{"", SkipStale, false},
		{"skip", SkipStale, false},
		{"apply", ApplyStale, false},
		{"sometimes", SkipStale, true},
	}
	for _, tt := range tests {
		got, err := ParseStalePolicy(tt.in)
		if (err != nil) != tt.staleErr || got != tt.wantStale {
			t.Errorf("ParseStalePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}

	for in, want := range map[string]FailurePolicy{"": ReportFailures, "report": ReportFailures, "ignore": IgnoreFailures} {
		got, err := ParseFailurePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseFailurePolicy(%q) = %v, %v", in, got, err)
		}
		if in != "" && got.String() != in {
			t.Errorf("%v.String() = %q", got, got.String())
		}
	}
	if _, err := ParseFailurePolicy("panic"); err == nil {
		t.Errorf("ParseFailurePolicy(panic) succeeded")
	}
}
