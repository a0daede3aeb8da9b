package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

// Mixer sums scheduled voices into a mono stream. The device pulls samples
// from it, and the number of frames pulled so far is the audio clock.
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	voices     []*scheduledVoice
	gain       float64
	scratch    []float64

	frames atomic.Int64
}

type scheduledVoice struct {
	start int64
	v     Voice
}

// NewMixer creates a mixer at the given sample rate.
func NewMixer(sampleRate int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Mixer{
		sampleRate: sampleRate,
		gain:       0.8,
	}
}

// SampleRate returns the mixer sample rate.
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// Now returns the number of seconds rendered so far.
func (m *Mixer) Now() float64 {
	return float64(m.frames.Load()) / float64(m.sampleRate)
}

// Running is always true for a bare mixer; devices override it.
func (m *Mixer) Running() bool {
	return true
}

// Schedule starts v at clock time at. Times already in the past start on the
// next rendered frame.
func (m *Mixer) Schedule(v Voice, at float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := int64(math.Round(at * float64(m.sampleRate)))
	if now := m.frames.Load(); start < now {
		start = now
	}
	m.voices = append(m.voices, &scheduledVoice{start: start, v: v})
	return nil
}

// Silence drops every pending and sounding voice.
func (m *Mixer) Silence() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = nil
}

// Active returns the number of voices not yet finished.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// SetGain sets the master gain (0.0 - 1.0)
func (m *Mixer) SetGain(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = clamp01(gain)
}

// Render fills dst with the next len(dst) mono samples and advances the clock.
func (m *Mixer) Render(dst []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.frames.Load()
	for i := range dst {
		var sum float64
		for idx := 0; idx < len(m.voices); idx++ {
			sv := m.voices[idx]
			if pos < sv.start {
				continue
			}
			val, done := sv.v.Next()
			sum += val
			if done {
				m.voices = append(m.voices[:idx], m.voices[idx+1:]...)
				idx--
			}
		}
		sum *= m.gain
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		dst[i] = sum
		pos++
	}
	m.frames.Store(pos)
}

// Read implements io.Reader, producing signed 16-bit little-endian mono PCM.
func (m *Mixer) Read(p []byte) (int, error) {
	samples := len(p) / 2
	if cap(m.scratch) < samples {
		m.scratch = make([]float64, samples)
	}
	buf := m.scratch[:samples]
	m.Render(buf)
	for i, s := range buf {
		v := int16(s * 32767)
		p[2*i] = byte(v)
		p[2*i+1] = byte(v >> 8)
	}
	return samples * 2, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
