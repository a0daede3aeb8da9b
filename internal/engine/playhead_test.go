package engine

import (
	"testing"
	"time"
)

type fixedTempo int

func (t fixedTempo) Tempo() int { return int(t) }

func TestPlayheadProgress(t *testing.T) {
	h := newHarness()
	// 120 BPM, 4 beats, 1 measure: a 2 second loop
	p := NewPlayhead(h.loop, h.clock, fixedTempo(120), DefaultTiming())

	restarts := 0
	p.OnLoopRestart = func() { restarts++ }
	p.Start()

	h.run(500 * time.Millisecond)
	if !near(p.Progress(), 0.25) {
		t.Errorf("Progress() = %v, want 0.25", p.Progress())
	}
	if p.Highlight() != 3 {
		t.Errorf("Highlight() = %d, want 3", p.Highlight())
	}

	h.run(2 * time.Second)
	if !near(p.Progress(), 0.25) {
		t.Errorf("Progress() after wrap = %v, want 0.25", p.Progress())
	}
	if restarts != 1 {
		t.Errorf("loop restarted %d times, want 1", restarts)
	}

	h.run(2 * time.Second)
	if restarts != 2 {
		t.Errorf("loop restarted %d times, want 2", restarts)
	}
}

func TestPlayheadDefersBeforeStart(t *testing.T) {
	h := newHarness()
	p := NewPlayhead(h.loop, h.clock, fixedTempo(120), DefaultTiming())

	calls := 0
	p.OnProgress = func(float64, int) { calls++ }
	p.StartAt(1)

	h.run(500 * time.Millisecond)
	if calls != 0 {
		t.Errorf("OnProgress called %d times before start time", calls)
	}
	if p.Progress() != 0 {
		t.Errorf("Progress() = %v before start time", p.Progress())
	}

	h.run(time.Second)
	if !near(p.Progress(), 0.25) {
		t.Errorf("Progress() = %v, want 0.25", p.Progress())
	}
}

func TestPlayheadSeek(t *testing.T) {
	h := newHarness()
	p := NewPlayhead(h.loop, h.clock, fixedTempo(120), DefaultTiming())
	p.Start()
	h.run(3 * time.Second)

	restarts := 0
	p.OnLoopRestart = func() { restarts++ }
	p.Seek(0.5)
	if !near(p.Progress(), 0.5) {
		t.Errorf("Progress() after Seek = %v, want 0.5", p.Progress())
	}

	h.run(500 * time.Millisecond)
	if !near(p.Progress(), 0.75) {
		t.Errorf("Progress() = %v, want 0.75", p.Progress())
	}
	if restarts != 0 {
		t.Errorf("Seek caused %d loop restarts", restarts)
	}
}

func TestPlayheadStop(t *testing.T) {
	h := newHarness()
	p := NewPlayhead(h.loop, h.clock, fixedTempo(120), DefaultTiming())
	p.Start()
	h.run(300 * time.Millisecond)

	p.Stop()
	p.Stop()
	if h.loop.PendingFrames() != 0 {
		t.Errorf("%d frames pending after Stop", h.loop.PendingFrames())
	}
	if p.Progress() != 0 || p.Active() {
		t.Errorf("Progress() = %v Active() = %v after Stop", p.Progress(), p.Active())
	}
}

func TestPlayheadHighlight(t *testing.T) {
	timing := DefaultTiming()
	timing.LoopMeasures = 2
	p := NewPlayhead(nil, nil, fixedTempo(100), timing)

	tests := []struct {
		progress float64
		want     int
	}{
		{0, 0},
		{0.124, 0},
		{0.125, 3},
		{0.5, 12},
		{0.99, 21},
	}
	for _, tt := range tests {
		if got := p.highlightFor(tt.progress); got != tt.want {
			t.Errorf("highlightFor(%v) = %d, want %d", tt.progress, got, tt.want)
		}
	}
}
