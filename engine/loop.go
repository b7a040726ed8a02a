//  loop.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Single-goroutine event loop. The toolkit core is not goroutine safe; the
//  loop serializes every touch of it, and implements the Scheduler contract
//  the core expects (end-of-cycle deferred work, cancellable timers).

package engine

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

type eventLoop struct {
	work chan func()
	quit chan struct{}
	done chan struct{}

	// mu orders post against stop, so a closure is either queued while the
	// loop is still draining or refused outright.
	mu      sync.Mutex
	stopped bool

	// deferred is touched only from the loop goroutine.
	deferred []func()
}

func newEventLoop() *eventLoop {
	l := &eventLoop{
		work: make(chan func(), 256),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *eventLoop) run() {
	defer close(l.done)
	for {
		select {
		case f := <-l.work:
			f()
			l.drainDeferred()
		case <-l.quit:
			// Let queued work finish so pending releases still run.
			for {
				select {
				case f := <-l.work:
					f()
					l.drainDeferred()
				default:
					return
				}
			}
		}
	}
}

// drainDeferred runs end-of-cycle work, including work the work itself
// deferred.
func (l *eventLoop) drainDeferred() {
	for len(l.deferred) > 0 {
		batch := l.deferred
		l.deferred = nil
		for _, f := range batch {
			f()
		}
	}
}

// post queues f onto the loop from any goroutine. It reports false once the
// loop is stopping; the caller still owns whatever f would have released.
func (l *eventLoop) post(f func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.work <- f
	return true
}

// call runs f on the loop and waits for it.
func (l *eventLoop) call(f func()) {
	doneCh := make(chan struct{})
	l.post(func() {
		f()
		close(doneCh)
	})
	select {
	case <-doneCh:
	case <-l.done:
	}
}

func (l *eventLoop) stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	l.mu.Unlock()
	close(l.quit)
	<-l.done
}

// Defer implements core.Scheduler. Only the loop goroutine may call it.
func (l *eventLoop) Defer(f func()) {
	l.deferred = append(l.deferred, f)
}

// After implements core.Scheduler. The callback is posted back onto the
// loop; cancellation wins any race with an in-flight post.
func (l *eventLoop) After(d time.Duration, f func()) func() {
	stopped := atomic.NewBool(false)
	t := time.AfterFunc(d, func() {
		l.post(func() {
			if !stopped.Load() {
				f()
			}
		})
	})
	return func() {
		stopped.Store(true)
		t.Stop()
	}
}
