package runloop

import (
	"sort"
	"time"
)

// Manual is a Loop driven by hand with virtual time. Tests use it to step
// frames and timers deterministically.
type Manual struct {
	now    time.Time
	tasks  []func()
	frames map[FrameID]func()
	timers []*manualTimer
	nextID uint64
	seq    uint64

	// OnAdvance, when set, is called whenever virtual time moves, so a fake
	// audio clock can follow it.
	OnAdvance func(now time.Time)
}

// NewManual returns a manual loop whose clock starts at the Unix epoch.
func NewManual() *Manual {
	return &Manual{
		now:    time.Unix(0, 0),
		frames: make(map[FrameID]func()),
	}
}

func (m *Manual) Post(fn func()) {
	m.tasks = append(m.tasks, fn)
}

func (m *Manual) RequestFrame(fn func()) FrameID {
	m.nextID++
	id := FrameID(m.nextID)
	m.frames[id] = fn
	return id
}

func (m *Manual) CancelFrame(id FrameID) {
	delete(m.frames, id)
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) Now() time.Time {
	return m.now
}

// Flush runs posted tasks until none remain.
func (m *Manual) Flush() {
	for len(m.tasks) > 0 {
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		fn()
	}
}

// Frame runs every frame callback pending at the time of the call, then
// flushes posted tasks.
func (m *Manual) Frame() {
	m.Flush()
	pending := m.frames
	m.frames = make(map[FrameID]func())
	for _, id := range sortedIDs(pending) {
		pending[id]()
	}
	m.Flush()
}

// PendingFrames reports how many frame callbacks are waiting.
func (m *Manual) PendingFrames() int {
	return len(m.frames)
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order. Timers scheduled by fired callbacks also run if they fall due.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for {
		m.Flush()
		t := m.nextDue(end)
		if t == nil {
			break
		}
		if t.at.After(m.now) {
			m.setNow(t.at)
		}
		t.fired = true
		t.fn()
	}
	m.setNow(end)
	m.Flush()
}

// AdvanceFrames advances time by frame in n steps, running a frame after each.
func (m *Manual) AdvanceFrames(n int, frame time.Duration) {
	for i := 0; i < n; i++ {
		m.Advance(frame)
		m.Frame()
	}
}

func (m *Manual) setNow(t time.Time) {
	m.now = t
	if m.OnAdvance != nil {
		m.OnAdvance(t)
	}
}

func (m *Manual) nextDue(end time.Time) *manualTimer {
	var live []*manualTimer
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	if len(live) == 0 || live[0].at.After(end) {
		return nil
	}
	return live[0]
}

type manualTimer struct {
	at      time.Time
	seq     uint64
	fn      func()
	fired   bool
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func sortedIDs(frames map[FrameID]func()) []FrameID {
	ids := make([]FrameID, 0, len(frames))
	for id := range frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
