package windowsync

import (
	"sync"
	"sync/atomic"

	"github.com/icco/basstrainer/internal/runloop"
)

// MemoryWindow is an in-process window handle. Messages posted to it are
// delivered on the target window's loop.
type MemoryWindow struct {
	loop   runloop.Loop
	origin string
	peer   *MemoryWindow

	mu   sync.Mutex
	recv Receiver

	closed atomic.Bool
	frozen atomic.Bool
}

// NewMemoryPair returns handles to a main window and a popout window running
// on the given loops. Both windows share origin.
func NewMemoryPair(mainLoop, popoutLoop runloop.Loop, origin string) (toMain, toPopout *MemoryWindow) {
	toMain = &MemoryWindow{loop: mainLoop, origin: origin}
	toPopout = &MemoryWindow{loop: popoutLoop, origin: origin}
	toMain.peer = toPopout
	toPopout.peer = toMain
	return toMain, toPopout
}

// Attach sets the receiver for messages posted to this window.
func (w *MemoryWindow) Attach(r Receiver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recv = r
}

// PostMessage queues data for the window's receiver.
func (w *MemoryWindow) PostMessage(data []byte) error {
	if w.closed.Load() {
		return ErrPartnerUnreachable
	}
	if w.frozen.Load() {
		return nil
	}
	w.mu.Lock()
	recv := w.recv
	w.mu.Unlock()
	if recv == nil {
		return nil
	}

	msg := append([]byte(nil), data...)
	w.loop.Post(func() {
		recv.Receive(msg, w.peer.origin, w.peer)
	})
	return nil
}

// Closed reports whether the window was closed.
func (w *MemoryWindow) Closed() bool {
	return w.closed.Load()
}

// Close marks the window closed.
func (w *MemoryWindow) Close() {
	w.closed.Store(true)
}

// Freeze makes the window silently swallow messages, like a hung page.
func (w *MemoryWindow) Freeze(frozen bool) {
	w.frozen.Store(frozen)
}

// SetOrigin changes the origin this window reports as a sender.
func (w *MemoryWindow) SetOrigin(origin string) {
	w.origin = origin
}
