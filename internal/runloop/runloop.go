// Package runloop provides the single cooperative execution queue the
// playback core runs on. Frame callbacks, timer callbacks and posted tasks
// all execute one at a time on the same goroutine, so the state they touch
// needs no locking.
package runloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FrameID identifies a pending frame callback. The zero value is never issued.
type FrameID uint64

// Timer is a pending deferred callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Loop is the execution queue contract shared by the real and manual loops.
type Loop interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// RequestFrame runs fn once on the next frame.
	RequestFrame(fn func()) FrameID
	// CancelFrame drops a pending frame callback.
	CancelFrame(id FrameID)
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Now is the timer-domain time.
	Now() time.Time
}

// DefaultFPS is the frame rate of the real loop.
const DefaultFPS = 60

// Real is a Loop backed by a goroutine, a frame ticker and runtime timers.
type Real struct {
	tasks  chan func()
	fps    int
	nextID atomic.Uint64

	// frames is only touched on the loop goroutine
	frames map[FrameID]func()

	running atomic.Bool
}

// New creates a real loop. Call Run to start processing.
func New(fps int) *Real {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Real{
		tasks:  make(chan func(), 256),
		fps:    fps,
		frames: make(map[FrameID]func()),
	}
}

// Run processes tasks and frames until ctx is cancelled.
func (l *Real) Run(ctx context.Context) {
	l.running.Store(true)
	defer l.running.Store(false)

	ticker := time.NewTicker(time.Second / time.Duration(l.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		case <-ticker.C:
			l.runFrame()
		}
	}
}

func (l *Real) runFrame() {
	if len(l.frames) == 0 {
		return
	}
	pending := l.frames
	l.frames = make(map[FrameID]func())
	for _, id := range sortedIDs(pending) {
		pending[id]()
	}
}

// Post queues fn. It is safe to call from any goroutine.
func (l *Real) Post(fn func()) {
	l.tasks <- fn
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine.
func (l *Real) Call(fn func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	l.Post(func() {
		defer wg.Done()
		fn()
	})
	wg.Wait()
}

// RequestFrame must be called on the loop goroutine.
func (l *Real) RequestFrame(fn func()) FrameID {
	id := FrameID(l.nextID.Add(1))
	l.frames[id] = fn
	return id
}

// CancelFrame must be called on the loop goroutine.
func (l *Real) CancelFrame(id FrameID) {
	delete(l.frames, id)
}

// AfterFunc schedules fn on the loop after d.
func (l *Real) AfterFunc(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

// Now returns the wall clock.
func (l *Real) Now() time.Time {
	return time.Now()
}

type realTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *realTimer) Stop() bool {
	t.timer.Stop()
	return t.stopped.CompareAndSwap(false, true)
}
