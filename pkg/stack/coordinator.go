package stack

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/tstromberg/albumstack/pkg/album"
	"github.com/tstromberg/albumstack/pkg/decode"
	"github.com/tstromberg/albumstack/pkg/imgcache"
	"github.com/tstromberg/albumstack/pkg/transition"
)

// eventBuffer bounds how many posted events may wait for the loop.
const eventBuffer = 64

// Coordinator owns the photo stack and swaps the photo on top when a new one is selected.
type Coordinator struct {
	o     Options
	cache *imgcache.Cache
	tc    *transition.Controller

	events  chan func()
	done    chan struct{}
	started atomic.Bool

	// owned by the loop
	stack   []*Entry
	latest  *album.Photo
	queue   []*job
	work    chan *job
	busy    bool
	pending int
	seq     uint64
	nextID  transition.Key
	idle    []chan struct{}
}

// New returns a coordinator. Call Initialize, then Run.
func New(o Options) (*Coordinator, error) {
	if o.Decoder == nil {
		return nil, errors.New("decoder is required")
	}
	if o.Location == nil {
		return nil, errors.New("location view is required")
	}
	if o.Animator == nil {
		return nil, errors.New("animator is required")
	}
	if o.Listener == nil {
		o.Listener = nopListener{}
	}
	if o.Markers == nil {
		o.Markers = decode.MakeMarker
	}
	if o.CacheSize == 0 {
		o.CacheSize = imgcache.DefaultSize
	}

	cache, err := imgcache.New(o.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	c := &Coordinator{
		o:      o,
		cache:  cache,
		events: make(chan func(), eventBuffer),
		done:   make(chan struct{}),
	}
	c.tc = transition.New(o.Animator, c.post)
	return c, nil
}

// Initialize decodes p synchronously and makes it the only entry in the stack.
// It must be called before Run. A decode failure is returned wrapped in ErrDecode.
func (c *Coordinator) Initialize(ctx context.Context, p *album.Photo) error {
	if c.started.Load() {
		return ErrRunning
	}
	if p == nil {
		return errors.New("initialize: no photo")
	}

	img, ok := c.cache.Get(p.Image)
	if !ok {
		var err error
		img, err = c.decodeFull(ctx, p)
		if err != nil {
			return err
		}
	}
	c.cache.Put(p.Image, img)

	for _, e := range c.stack {
		c.remove(e)
	}

	c.nextID++
	c.stack = []*Entry{{ID: c.nextID, Photo: p, Image: img, State: Visible}}
	c.latest = p

	klog.Infof("initialized stack with %q (image %d)", p.Name, p.Image)
	c.showInfo(p)
	c.bindLocation(p, c.marker(ctx, p))
	return nil
}

// Run processes selections, decode results and transition completions until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	if len(c.stack) == 0 {
		close(c.done)
		return ErrNotInitialized
	}

	c.work = make(chan *job, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.worker(ctx, c.work)
	}()

	defer func() {
		c.tc.CancelAll()
		close(c.done)
		close(c.work)
		wg.Wait()
	}()

	klog.V(1).Infof("stack running with cache size %d, stale=%s failure=%s", c.o.CacheSize, c.o.Stale, c.o.Failure)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.events:
			fn()
			c.checkIdle()
		}
	}
}

// Select asks for p to be shown on top. It is safe to call from any goroutine.
func (c *Coordinator) Select(p *album.Photo) error {
	if !c.post(func() { c.selectPhoto(p) }) {
		return ErrStopped
	}
	return nil
}

// State returns a snapshot taken on the coordinator goroutine.
func (c *Coordinator) State(ctx context.Context) (Snapshot, error) {
	ch := make(chan Snapshot, 1)
	if !c.post(func() { ch <- c.snapshot() }) {
		return Snapshot{}, ErrStopped
	}
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.done:
		return Snapshot{}, ErrStopped
	}
}

// Idle waits until no decode is pending and no transition is running.
func (c *Coordinator) Idle(ctx context.Context) error {
	ch := make(chan struct{})
	if !c.post(func() { c.idle = append(c.idle, ch) }) {
		return ErrStopped
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// post queues fn for the loop, returning false once the coordinator has stopped.
func (c *Coordinator) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

func (c *Coordinator) checkIdle() {
	if len(c.idle) == 0 || c.pending > 0 || c.tc.Len() > 0 {
		return
	}
	for _, ch := range c.idle {
		close(ch)
	}
	c.idle = nil
}

func (c *Coordinator) top() *Entry {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

func (c *Coordinator) selectPhoto(p *album.Photo) {
	if p == nil {
		return
	}
	if p.Same(c.latest) {
		klog.V(1).Infof("%q already selected", p.Name)
		return
	}
	c.latest = p

	c.seq++
	j := &job{seq: c.seq, photo: p}
	if img, ok := c.cache.Get(p.Image); ok {
		klog.V(1).Infof("cache hit for %q (image %d)", p.Name, p.Image)
		j.cached = img
	}

	c.queue = append(c.queue, j)
	c.pending++
	c.dispatch()
}

// dispatch hands the next queued job to the worker if it is idle.
func (c *Coordinator) dispatch() {
	if c.busy || len(c.queue) == 0 || c.work == nil {
		return
	}
	j := c.queue[0]
	c.queue = c.queue[1:]
	c.busy = true
	c.work <- j
}

func (c *Coordinator) complete(r result) {
	c.busy = false
	c.pending--
	defer c.dispatch()

	p := r.job.photo
	if r.err != nil {
		c.fail(p, r.err)
		return
	}

	c.cache.Put(p.Image, r.img)

	if c.o.Stale == SkipStale {
		if !p.Same(c.latest) {
			klog.V(1).Infof("dropping stale result for %q, %q was selected since", p.Name, c.latest.Name)
			c.o.Listener.Dropped(p)
			c.touchTop()
			return
		}
		if t := c.top(); t != nil && p.Same(t.Photo) {
			klog.V(1).Infof("%q is already on top", p.Name)
			return
		}
	}

	c.push(p, r.img, r.marker)
}

// touchTop marks the top image most recently used so the cache never evicts it.
func (c *Coordinator) touchTop() {
	if t := c.top(); t != nil {
		c.cache.Put(t.Photo.Image, t.Image)
	}
}

func (c *Coordinator) fail(p *album.Photo, err error) {
	// allow the same photo to be selected again
	if p.Same(c.latest) {
		if t := c.top(); t != nil {
			c.latest = t.Photo
		}
	}

	if c.o.Failure == IgnoreFailures {
		klog.V(1).Infof("ignoring failed swap to %q: %v", p.Name, err)
		return
	}
	klog.Warningf("swap to %q failed: %v", p.Name, err)
	c.o.Listener.Failed(p, err)
}

func (c *Coordinator) push(p *album.Photo, img image.Image, marker image.Image) {
	prev := c.top()

	c.nextID++
	e := &Entry{ID: c.nextID, Photo: p, Image: img, State: Entering}
	c.stack = append(c.stack, e)
	klog.V(1).Infof("pushed %q as entry %d (depth %d)", p.Name, e.ID, len(c.stack))

	c.showInfo(p)

	if _, err := c.tc.Enter(e.ID, func() { c.entered(e) }); err != nil {
		klog.Errorf("enter %q: %v", p.Name, err)
	}

	if prev != nil {
		if h := c.tc.Active(prev.ID); h != nil {
			klog.V(1).Infof("entry %d is mid-%s, not starting exit", prev.ID, h.Kind)
		} else if _, err := c.tc.Exit(prev.ID, nil); err != nil {
			klog.Errorf("exit %q: %v", prev.Photo.Name, err)
		}
	}

	c.bindLocation(p, marker)
	c.o.Listener.Pushed(e)
}

// entered runs when e has fully entered: everything below it is covered and removed.
func (c *Coordinator) entered(e *Entry) {
	if e.State != Entering {
		return
	}
	e.State = Visible

	idx := -1
	for i, s := range c.stack {
		if s == e {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return
	}

	for _, old := range c.stack[:idx] {
		c.remove(old)
	}
	c.stack = append([]*Entry(nil), c.stack[idx:]...)
}

func (c *Coordinator) remove(e *Entry) {
	if h := c.tc.Active(e.ID); h != nil {
		c.tc.Cancel(h)
	}
	e.State = Removed
	klog.V(1).Infof("removed entry %d (%q)", e.ID, e.Photo.Name)
	c.o.Listener.Removed(e)
}

func (c *Coordinator) showInfo(p *album.Photo) {
	if c.o.Info != nil {
		c.o.Info.ShowInfo(p)
	}
}

func (c *Coordinator) bindLocation(p *album.Photo, marker image.Image) {
	c.o.Location.SetCenter(p.Latitude, p.Longitude)
	if marker != nil {
		c.o.Location.SetOverlay(marker, p.Latitude, p.Longitude)
	}
}

func (c *Coordinator) snapshot() Snapshot {
	s := Snapshot{
		Cached:  c.cache.Keys(),
		Pending: c.pending,
		Latest:  c.latest,
	}
	for _, e := range c.stack {
		es := EntryState{Photo: e.Photo, State: e.State}
		if h := c.tc.Active(e.ID); h != nil {
			es.Transition = h.Kind
		}
		s.Entries = append(s.Entries, es)
	}
	return s
}
