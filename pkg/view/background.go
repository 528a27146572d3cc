package view

import (
	"sync"

	"k8s.io/klog/v2"
)

// latest runs submitted writes on its own goroutine, one at a time. A write that is
// still waiting when a newer one arrives is replaced by it.
type latest struct {
	mu      sync.Mutex
	next    func()
	running bool
	wg      sync.WaitGroup
}

func (l *latest) submit(what string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.next != nil {
		klog.V(1).Infof("superseded pending %s", what)
	}
	l.next = fn
	if l.running {
		return
	}
	l.running = true
	l.wg.Add(1)
	go l.drain()
}

func (l *latest) drain() {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		fn := l.next
		l.next = nil
		if fn == nil {
			l.running = false
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
		fn()
	}
}

// wait blocks until every submitted write has finished or been replaced.
func (l *latest) wait() {
	l.wg.Wait()
}
