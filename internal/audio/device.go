//go:build !headless

package audio

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// 20ms of 16-bit mono audio
const bufferSizeBytes = DefaultSampleRate / 50 * 2

// Device plays a Mixer through the system audio output. It starts suspended:
// the clock only advances after Resume.
type Device struct {
	*Mixer
	ctx     *oto.Context
	player  *oto.Player
	resumed atomic.Bool
	closed  atomic.Bool
}

// OpenDevice opens the default output.
func OpenDevice(sampleRate int) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	<-ready

	mixer := NewMixer(sampleRate)
	player := ctx.NewPlayer(mixer)
	player.SetBufferSize(bufferSizeBytes)

	return &Device{
		Mixer:  mixer,
		ctx:    ctx,
		player: player,
	}, nil
}

// Resume starts pulling audio. It is a no-op once running.
func (d *Device) Resume(ctx context.Context) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.resumed.Load() {
		return nil
	}
	if err := d.ctx.Resume(); err != nil {
		return fmt.Errorf("resuming audio context: %w", err)
	}
	d.player.Play()
	d.resumed.Store(true)
	return nil
}

// Running reports whether the device has been resumed and not closed.
func (d *Device) Running() bool {
	return d.resumed.Load() && !d.closed.Load()
}

// Schedule queues v on the mixer. It fails with ErrDeviceClosed after Close.
func (d *Device) Schedule(v Voice, at float64) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	return d.Mixer.Schedule(v, at)
}

// Close stops output and drops every queued voice.
func (d *Device) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.player.Pause()
	d.Mixer.Silence()
	if err := d.ctx.Suspend(); err != nil {
		return fmt.Errorf("suspending audio context: %w", err)
	}
	return nil
}
