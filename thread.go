package sharegl

import (
	"errors"
	"runtime"
	"sync"
)

var errThreadStopped = errors.New("render thread stopped")

// renderThread runs functions on a single goroutine locked to its OS thread, as GL contexts are
// bound to the thread that created them.
type renderThread struct {
	work     chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newRenderThread() *renderThread {
	t := &renderThread{
		work: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *renderThread) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)
	for {
		select {
		case fn := <-t.work:
			fn()
		case <-t.quit:
			return
		}
	}
}

// Do runs fn on the render thread and returns its result. It fails with errThreadStopped once
// Stop was called.
func (t *renderThread) Do(fn func() error) error {
	res := make(chan error, 1)
	select {
	case t.work <- func() { res <- fn() }:
		return <-res
	case <-t.quit:
		return errThreadStopped
	}
}

// Stop waits for the running function (if any) and ends the thread. It may be called repeatedly.
func (t *renderThread) Stop() {
	t.stopOnce.Do(func() { close(t.quit) })
	<-t.done
}
