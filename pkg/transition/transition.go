// Package transition tracks the enter and exit animations of stack entries.
//
// A Controller is owned by a single goroutine. Animators may finish on any goroutine;
// their completions are handed back to the owner through the post function.
package transition

import (
	"errors"
	"fmt"

	"k8s.io/klog/v2"
)

// ErrBusy is returned when a key already has an active transition.
var ErrBusy = errors.New("transition already active")

// Kind is the direction of a transition.
type Kind int

const (
	Enter Kind = iota + 1
	Exit
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key identifies the stack entry a transition runs on.
type Key uint64

// Animator plays a transition. It calls done once when the animation ends on its own,
// never from within Start, and never after the returned stop function has been called.
type Animator interface {
	Start(kind Kind, key Key, done func()) (stop func())
}

type state int

const (
	running state = iota
	finished
	cancelled
)

// Handle is one started transition.
type Handle struct {
	ID   uint64
	Key  Key
	Kind Kind

	state state
	stop  func()
}

// Running reports whether the transition has neither finished nor been cancelled.
func (h *Handle) Running() bool {
	return h != nil && h.state == running
}

// Controller starts and cancels transitions, keeping at most one active handle per key.
type Controller struct {
	anim   Animator
	post   func(func()) bool
	active map[Key]*Handle
	seq    uint64
}

// New returns a controller. post must run the given function on the owning goroutine,
// returning false if the owner has stopped.
func New(anim Animator, post func(func()) bool) *Controller {
	return &Controller{
		anim:   anim,
		post:   post,
		active: map[Key]*Handle{},
	}
}

// Enter starts an enter transition on key. onDone runs on the owner once it finishes.
func (c *Controller) Enter(key Key, onDone func()) (*Handle, error) {
	return c.start(Enter, key, onDone)
}

// Exit starts an exit transition on key. onDone may be nil.
func (c *Controller) Exit(key Key, onDone func()) (*Handle, error) {
	return c.start(Exit, key, onDone)
}

func (c *Controller) start(kind Kind, key Key, onDone func()) (*Handle, error) {
	if h := c.active[key]; h != nil {
		return nil, fmt.Errorf("%s on %d: %w (%s)", kind, key, ErrBusy, h.Kind)
	}

	c.seq++
	h := &Handle{ID: c.seq, Key: key, Kind: kind}
	c.active[key] = h

	klog.V(2).Infof("start %s transition %d on entry %d", kind, h.ID, key)
	h.stop = c.anim.Start(kind, key, func() {
		c.post(func() { c.finish(h, onDone) })
	})
	return h, nil
}

func (c *Controller) finish(h *Handle, onDone func()) {
	if h.state != running {
		klog.V(2).Infof("ignoring completion of %s transition %d", h.Kind, h.ID)
		return
	}
	h.state = finished
	delete(c.active, h.Key)

	klog.V(2).Infof("finished %s transition %d on entry %d", h.Kind, h.ID, h.Key)
	if onDone != nil {
		onDone()
	}
}

// Cancel stops h if it is still running. Its completion callback will not run.
func (c *Controller) Cancel(h *Handle) {
	if !h.Running() {
		return
	}
	h.state = cancelled
	if c.active[h.Key] == h {
		delete(c.active, h.Key)
	}
	if h.stop != nil {
		h.stop()
	}
	klog.V(2).Infof("cancelled %s transition %d on entry %d", h.Kind, h.ID, h.Key)
}

// CancelAll cancels every active transition.
func (c *Controller) CancelAll() {
	for _, h := range c.active {
		c.Cancel(h)
	}
}

// Active returns the running transition for key, or nil.
func (c *Controller) Active(key Key) *Handle {
	return c.active[key]
}

// Len returns the number of running transitions.
func (c *Controller) Len() int {
	return len(c.active)
}
