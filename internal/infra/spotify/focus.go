package spotify

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Focus ducks the Connect device volume while an announcement plays.
type Focus struct {
	device      *Device
	duckPercent int // Ducked volume as a percentage of the original

	mu       sync.Mutex
	held     bool
	original int
}

// NewFocus creates a focus controller for the device.
func NewFocus(device *Device, duckPercent int) *Focus {
	return &Focus{
		device:      device,
		duckPercent: duckPercent,
	}
}

// Acquire lowers the device volume, remembering the original.
func (f *Focus) Acquire(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.held {
		return nil
	}

	state, err := f.device.player.PlayerState(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get player state")
	}
	if state == nil {
		return errors.New("no active device")
	}

	original := int(state.Device.Volume)
	ducked := original * f.duckPercent / 100
	if err := f.device.player.VolumeOpt(ctx, ducked, f.device.options()); err != nil {
		return errors.Wrap(err, "failed to duck volume")
	}

	f.held = true
	f.original = original
	zlog.Debug().Msgf("spotify focus: ducked volume %d -> %d", original, ducked)
	return nil
}

// Release restores the volume saved by Acquire.
func (f *Focus) Release(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.held {
		return nil
	}
	f.held = false
	if err := f.device.player.VolumeOpt(ctx, f.original, f.device.options()); err != nil {
		return errors.Wrap(err, "failed to restore volume")
	}
	zlog.Debug().Msgf("spotify focus: restored volume %d", f.original)
	return nil
}
