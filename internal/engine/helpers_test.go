package engine

import (
	"context"
	"time"

	"github.com/icco/basstrainer/internal/pattern"
	"github.com/icco/basstrainer/internal/runloop"
)

const frame = 10 * time.Millisecond

type fakeClock struct {
	now     float64
	stopped bool
}

func (c *fakeClock) Now() float64  { return c.now }
func (c *fakeClock) Running() bool { return !c.stopped }

type scheduledNote struct {
	note  pattern.Note
	at    float64
	muted bool
}

type scheduledClick struct {
	at          float64
	downbeat    bool
	firstOfBeat bool
	enabled     bool
}

type recordEmitter struct {
	notes    []scheduledNote
	clicks   []scheduledClick
	silenced int
}

func (r *recordEmitter) PlaySound(n pattern.Note, at float64, muted bool, volume float64) {
	r.notes = append(r.notes, scheduledNote{note: n, at: at, muted: muted})
}

func (r *recordEmitter) PlayMetronomeClick(at float64, isDownbeat, isFirstOfBeat, enabled bool, volume float64) {
	r.clicks = append(r.clicks, scheduledClick{at: at, downbeat: isDownbeat, firstOfBeat: isFirstOfBeat, enabled: enabled})
}

func (r *recordEmitter) Silence() {
	r.silenced++
}

type testSettings struct {
	tempo     int
	looping   bool
	muted     bool
	metronome bool
}

func (s *testSettings) Tempo() int               { return s.tempo }
func (s *testSettings) Looping() bool            { return s.looping }
func (s *testSettings) NotesMuted() bool         { return s.muted }
func (s *testSettings) MetronomeEnabled() bool   { return s.metronome }
func (s *testSettings) BassVolume() float64      { return 1 }
func (s *testSettings) MetronomeVolume() float64 { return 1 }

type fakeDevice struct {
	err     error
	resumed int
}

func (d *fakeDevice) Resume(context.Context) error {
	d.resumed++
	return d.err
}

// harness ties a manual loop to a fake audio clock: clock seconds equal
// virtual time elapsed since the loop was created.
type harness struct {
	loop    *runloop.Manual
	clock   *fakeClock
	emitter *recordEmitter
}

func newHarness() *harness {
	loop := runloop.NewManual()
	clock := &fakeClock{}
	epoch := loop.Now()
	loop.OnAdvance = func(now time.Time) {
		clock.now = now.Sub(epoch).Seconds()
	}
	return &harness{loop: loop, clock: clock, emitter: &recordEmitter{}}
}

// run advances virtual time by d in frame-sized steps.
func (h *harness) run(d time.Duration) {
	h.loop.AdvanceFrames(int(d/frame), frame)
}

func testNotes(n int) []pattern.Note {
	notes := make([]pattern.Note, n)
	for i := range notes {
		notes[i] = pattern.Note{String: pattern.String(i % pattern.NumStrings), Fret: i % 5, Index: i}
	}
	return notes
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countEvents(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func near(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
