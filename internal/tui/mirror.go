package tui

import (
	"sync/atomic"

	"github.com/icco/basstrainer/internal/engine"
	"github.com/icco/basstrainer/internal/runloop"
)

// Mirror hands the latest snapshot from the run loop to the view goroutine.
type Mirror struct {
	snap      atomic.Pointer[engine.Snapshot]
	connected atomic.Bool
}

// Store replaces the snapshot. Safe from any goroutine.
func (m *Mirror) Store(s engine.Snapshot) {
	m.snap.Store(&s)
}

// Load returns the latest snapshot, if any was stored.
func (m *Mirror) Load() (engine.Snapshot, bool) {
	s := m.snap.Load()
	if s == nil {
		return engine.Snapshot{}, false
	}
	return *s, true
}

// SetConnected records whether the other window is reachable.
func (m *Mirror) SetConnected(connected bool) {
	m.connected.Store(connected)
}

func (m *Mirror) Connected() bool {
	return m.connected.Load()
}

// Snapshotter is anything that can report its current snapshot.
type Snapshotter interface {
	Snapshot() engine.Snapshot
}

// Publish copies src into m once per loop frame, so continuous values like
// the playhead reach the view. It must be called on loop. The returned stop
// function must also run on loop.
func Publish(loop runloop.Loop, src Snapshotter, m *Mirror) (stop func()) {
	var (
		id      runloop.FrameID
		stopped bool
		frame   func()
	)
	frame = func() {
		if stopped {
			return
		}
		m.Store(src.Snapshot())
		id = loop.RequestFrame(frame)
	}
	m.Store(src.Snapshot())
	id = loop.RequestFrame(frame)
	return func() {
		stopped = true
		loop.CancelFrame(id)
	}
}
