package audio

import (
	"math"
)

// Voice generates samples in the range [-1,1].
type Voice interface {
	// Next returns the next sample and whether the voice has finished.
	Next() (float64, bool)
}

// Bass note envelope, in seconds from the note start.
const (
	NoteAttack   = 0.05
	NoteDecayEnd = 0.5
	NoteStop     = 0.6

	envelopeFloor = 0.001
	bassCutoffHz  = 700.0
)

// Metronome click shape.
const (
	clickAttack       = 0.001
	clickDecay        = 0.03
	clickStop         = 0.05
	downbeatFrequency = 1500.0
	beatFrequency     = 1000.0
	beatClickGain     = 0.6
)

// Envelope returns the bass note gain t seconds after the note start: a
// linear ramp to peak over NoteAttack, then an exponential decay reaching
// near-silence at NoteDecayEnd.
func Envelope(t, peak float64) float64 {
	switch {
	case t < 0 || peak <= 0:
		return 0
	case t < NoteAttack:
		return peak * t / NoteAttack
	case t < NoteDecayEnd:
		if peak <= envelopeFloor {
			return peak
		}
		frac := (t - NoteAttack) / (NoteDecayEnd - NoteAttack)
		return peak * math.Pow(envelopeFloor/peak, frac)
	default:
		return math.Min(peak, envelopeFloor)
	}
}

// bassVoice is a low-passed sawtooth/sine blend.
type bassVoice struct {
	freq  float64
	peak  float64
	sr    float64
	alpha float64
	phase float64
	lp    float64
	n     int
}

func newBassVoice(freq, peak float64, sampleRate int) *bassVoice {
	sr := float64(sampleRate)
	return &bassVoice{
		freq:  freq,
		peak:  peak,
		sr:    sr,
		alpha: 1 - math.Exp(-2*math.Pi*bassCutoffHz/sr),
	}
}

func (v *bassVoice) Next() (float64, bool) {
	t := float64(v.n) / v.sr
	if t >= NoteStop {
		return 0, true
	}
	raw := 0.6*(2*v.phase-1) + 0.4*math.Sin(2*math.Pi*v.phase)
	v.lp += v.alpha * (raw - v.lp)

	v.phase += v.freq / v.sr
	if v.phase >= 1 {
		v.phase -= 1
	}
	v.n++
	return v.lp * Envelope(t, v.peak), false
}

// clickVoice is a short sine burst.
type clickVoice struct {
	freq float64
	peak float64
	sr   float64
	n    int
}

func newClickVoice(downbeat bool, volume float64, sampleRate int) *clickVoice {
	v := &clickVoice{freq: beatFrequency, peak: volume * beatClickGain, sr: float64(sampleRate)}
	if downbeat {
		v.freq = downbeatFrequency
		v.peak = volume
	}
	return v
}

func (v *clickVoice) Next() (float64, bool) {
	t := float64(v.n) / v.sr
	if t >= clickStop {
		return 0, true
	}
	v.n++

	var env float64
	if t < clickAttack {
		env = v.peak * t / clickAttack
	} else {
		env = v.peak * math.Exp(-(t-clickAttack)/clickDecay*math.Log(1/envelopeFloor))
	}
	return math.Sin(2*math.Pi*v.freq*t) * env, false
}
