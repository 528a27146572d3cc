package transition

import (
	"time"
)

const (
	DefaultEnter = 600 * time.Millisecond
	DefaultExit  = 1500 * time.Millisecond
)

// Timer is an Animator that only keeps time: each transition ends after its duration.
type Timer struct {
	Enter time.Duration
	Exit  time.Duration
}

// Start schedules done after the duration for kind.
func (t Timer) Start(kind Kind, _ Key, done func()) func() {
	d := t.Enter
	if kind == Exit {
		d = t.Exit
	}

	tm := time.AfterFunc(d, done)
	return func() { tm.Stop() }
}
