//go:build headless

package audio

import "context"

// Device is unavailable in headless builds.
type Device struct {
	*Mixer
}

// OpenDevice always fails in headless builds.
func OpenDevice(sampleRate int) (*Device, error) {
	return nil, ErrDeviceUnavailable
}

func (d *Device) Resume(ctx context.Context) error { return ErrDeviceUnavailable }
func (d *Device) Running() bool                    { return false }
func (d *Device) Close() error                     { return nil }

func (d *Device) Schedule(v Voice, at float64) error { return ErrDeviceUnavailable }
