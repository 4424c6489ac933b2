package localaudio

import "context"

// Focus ducks the music channel while an announcement plays.
type Focus struct {
	device *Device
	gain   float64
}

// NewFocus creates a focus controller lowering music to duckPercent of its volume.
func NewFocus(device *Device, duckPercent int) *Focus {
	return &Focus{
		device: device,
		gain:   float64(duckPercent) / 100,
	}
}

// Acquire lowers the music volume.
func (f *Focus) Acquire(ctx context.Context) error {
	f.device.duck(f.gain)
	return nil
}

// Release restores the music volume.
func (f *Focus) Release(ctx context.Context) error {
	f.device.duck(1)
	return nil
}
