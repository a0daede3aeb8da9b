// Package render bounces an exercise to PCM offline by running the playback
// engine against the mixer in virtual time.
package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	audioout "github.com/icco/basstrainer/internal/audio"
	"github.com/icco/basstrainer/internal/engine"
	"github.com/icco/basstrainer/internal/pattern"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/sirupsen/logrus"
)

// BlockSize is the number of frames rendered between engine frames.
const BlockSize = 441

// ErrNoNotes is returned when there is nothing to render.
var ErrNoNotes = errors.New("render: no notes")

// Options controls an offline render.
type Options struct {
	SampleRate int
	Timing     engine.Timing
	State      engine.State
	Loops      int
	Countdown  bool
	// Tail is extra audio kept after the last note ends so it can ring out.
	Tail time.Duration
}

// DefaultOptions renders one pass at the default settings.
func DefaultOptions() Options {
	return Options{
		SampleRate: audioout.DefaultSampleRate,
		Timing:     engine.DefaultTiming(),
		State:      engine.DefaultState(),
		Loops:      1,
		Tail:       time.Duration(audioout.NoteStop * float64(time.Second)),
	}
}

// Render plays notes through the engine and returns mono samples in [-1,1].
func Render(notes []pattern.Note, opts Options) ([]float64, error) {
	if len(notes) == 0 {
		return nil, ErrNoNotes
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audioout.DefaultSampleRate
	}
	if opts.Loops < 1 {
		opts.Loops = 1
	}
	log := logrus.WithField("component", "render")

	seq := make([]pattern.Note, 0, len(notes)*opts.Loops)
	for i := 0; i < opts.Loops; i++ {
		seq = append(seq, notes...)
	}

	state := opts.State
	state.IsLooping = false
	state.IsCountdownEnabled = opts.Countdown

	loop := runloop.NewManual()
	mixer := audioout.NewMixer(opts.SampleRate)
	e := engine.New(loop, mixer, audioout.NewSynth(mixer),
		engine.WithTiming(opts.Timing),
		engine.WithState(state),
	)
	e.SetNotes(engine.Header{}, seq)

	tempo := e.Snapshot().Tempo
	expected := opts.Timing.Priming + float64(len(seq))*opts.Timing.NoteTime(tempo)
	if opts.Countdown {
		expected += float64(opts.Timing.BeatsPerMeasure) * opts.Timing.BeatTime(tempo)
	}
	limit := int64((expected*2 + 1) * float64(opts.SampleRate))

	block := make([]float64, BlockSize)
	step := time.Duration(float64(BlockSize) / float64(opts.SampleRate) * float64(time.Second))
	out := make([]float64, 0, int(expected*float64(opts.SampleRate))+BlockSize)

	e.Play()
	loop.Flush()
	for e.Snapshot().Active() {
		if int64(len(out)) > limit {
			e.Stop()
			return nil, fmt.Errorf("render: transport still running after %.1fs", float64(len(out))/float64(opts.SampleRate))
		}
		mixer.Render(block)
		out = append(out, block...)
		loop.Advance(step)
		loop.Frame()
	}

	tail := int(opts.Tail.Seconds() * float64(opts.SampleRate))
	for rendered := 0; rendered < tail; rendered += BlockSize {
		mixer.Render(block)
		out = append(out, block...)
	}

	log.WithFields(logrus.Fields{
		"notes":   len(seq),
		"tempo":   tempo,
		"seconds": float64(len(out)) / float64(opts.SampleRate),
	}).Debug("rendered exercise")
	return out, nil
}

// WriteWAV encodes samples as 16-bit mono PCM.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}

// WriteFile renders to a WAV file at path.
func WriteFile(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
