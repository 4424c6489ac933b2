package spotify

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"

	"github.com/osa030/guessthatsong/internal/app/playback"
	"github.com/osa030/guessthatsong/internal/domain/track"
)

// player is the subset of the Web API player endpoints the device uses.
type player interface {
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
	PauseOpt(ctx context.Context, opt *spotify.PlayOptions) error
	SeekOpt(ctx context.Context, position int, opt *spotify.PlayOptions) error
	VolumeOpt(ctx context.Context, percent int, opt *spotify.PlayOptions) error
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
	PlayerCurrentlyPlaying(ctx context.Context, opts ...spotify.RequestOption) (*spotify.CurrentlyPlaying, error)
}

// Device plays the queue on a Spotify Connect device.
// The queue is kept locally; each track is started by URI.
type Device struct {
	player   player
	deviceID string // Empty means the active device

	mu       sync.Mutex
	queue    []track.Track
	index    int
	started  bool // Current track has been sent to the device
	active   bool // Device was told to play and not yet paused
	advanced bool // Progress has been reported past zero since the track started
	ended    bool // Device played the current track to its end
}

// NewDevice creates a device controlling the given Connect device.
func NewDevice(client *Client, deviceID string) *Device {
	return &Device{
		player:   client.API(),
		deviceID: deviceID,
	}
}

func (d *Device) options() *spotify.PlayOptions {
	opt := &spotify.PlayOptions{}
	if d.deviceID != "" {
		id := spotify.ID(d.deviceID)
		opt.DeviceID = &id
	}
	return opt
}

// SetQueue replaces the queue and selects its first track.
func (d *Device) SetQueue(ctx context.Context, tracks []track.Track) error {
	for _, t := range tracks {
		if t.URI == "" {
			return errors.Newf("track %s has no spotify uri", t.ID)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append([]track.Track(nil), tracks...)
	d.index = 0
	d.resetLocked()
	zlog.Info().Msgf("spotify device: queue set: tracks=%d device=%s", len(tracks), d.deviceID)
	return nil
}

// Play starts the current track from the beginning, or resumes it.
// A track that already played to its end stays there until SeekToStart.
func (d *Device) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return errors.New("queue is empty")
	}
	if d.ended {
		d.active = true
		return nil
	}

	opt := d.options()
	if !d.started {
		opt.URIs = []spotify.URI{spotify.URI(d.queue[d.index].URI)}
	}
	if err := d.player.PlayOpt(ctx, opt); err != nil {
		return errors.Wrap(err, "failed to start playback")
	}
	if !d.started {
		d.advanced = false
	}
	d.started = true
	d.active = true
	return nil
}

// Pause pauses playback. Pausing a track that was never started, or that
// already ended, does nothing.
func (d *Device) Pause(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || d.ended {
		d.active = false
		return nil
	}
	if err := d.player.PauseOpt(ctx, d.options()); err != nil {
		return errors.Wrap(err, "failed to pause playback")
	}
	d.active = false
	return nil
}

// SeekToStart rewinds the current track.
func (d *Device) SeekToStart(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}
	if d.ended {
		// The device dropped the finished track; the next Play sends it again
		d.resetLocked()
		return nil
	}
	if err := d.player.SeekOpt(ctx, 0, d.options()); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	d.advanced = false
	return nil
}

// SkipNext selects the next track, wrapping around at the end.
// A playing track is paused first.
func (d *Device) SkipNext(ctx context.Context) error {
	return d.skip(ctx, 1)
}

// SkipPrevious selects the previous track, wrapping around at the start.
// A playing track is paused first.
func (d *Device) SkipPrevious(ctx context.Context) error {
	return d.skip(ctx, -1)
}

func (d *Device) skip(ctx context.Context, step int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return errors.New("queue is empty")
	}
	if d.active && !d.ended {
		if err := d.player.PauseOpt(ctx, d.options()); err != nil {
			zlog.Warn().Err(err).Msgf("spotify device: failed to pause %s before skip", d.queue[d.index].ID)
		}
	}
	d.index = (d.index + step + len(d.queue)) % len(d.queue)
	d.resetLocked()
	return nil
}

// Position returns the playback position of the current track.
// When the device is playing something else, the reading is invalid.
// Once the device has played the track to its end, the track duration is returned.
func (d *Device) Position(ctx context.Context) (time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || len(d.queue) == 0 {
		return 0, nil
	}
	current := d.queue[d.index]
	if d.ended {
		return current.Duration, nil
	}

	cp, err := d.player.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get currently playing")
	}
	if d.finishedLocked(cp, current) {
		d.ended = true
		zlog.Debug().Msgf("spotify device: track ended: id=%s", current.ID)
		return current.Duration, nil
	}
	if cp == nil || cp.Item == nil || string(cp.Item.URI) != current.URI {
		return 0, errors.Wrap(playback.ErrInvalidPosition, "device is not playing the current track")
	}
	if cp.Progress > 0 {
		d.advanced = true
	}
	// Progress is reported in milliseconds
	return playback.PositionFromSeconds(float64(cp.Progress) / 1000)
}

// finishedLocked reports whether a single-URI playback has run out. The device
// then stops with either no item or the same track rewound to zero.
func (d *Device) finishedLocked(cp *spotify.CurrentlyPlaying, current track.Track) bool {
	if !d.active || !d.advanced || current.Duration <= 0 {
		return false
	}
	if cp == nil || cp.Playing {
		return false
	}
	if cp.Item == nil {
		return true
	}
	return string(cp.Item.URI) == current.URI && cp.Progress == 0
}

func (d *Device) resetLocked() {
	d.started = false
	d.active = false
	d.advanced = false
	d.ended = false
}

// NowPlaying returns the selected track.
func (d *Device) NowPlaying(ctx context.Context) (*track.Track, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return nil, false
	}
	t := d.queue[d.index]
	return &t, true
}
