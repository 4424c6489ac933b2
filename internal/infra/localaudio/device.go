package localaudio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// resampleQuality is passed to beep.Resample.
const resampleQuality = 4

// Device plays a queue of local tracks through the speaker.
// Music and announcements share one mixer; the music channel can be ducked.
type Device struct {
	sampleRate beep.SampleRate
	decode     func(path string) (beep.StreamSeekCloser, beep.Format, error)

	// Guard streamer fields shared with the audio goroutine.
	lock   func()
	unlock func()

	mixer *beep.Mixer
	deck  *deck
	ctrl  *beep.Ctrl
	music *effects.Volume

	mu     sync.Mutex
	queue  []track.Track
	index  int
	stream beep.StreamSeekCloser // Decoded current track, nil until played
	format beep.Format
	closed bool
}

// Open initializes the speaker at sampleRate and starts the mixer.
// Only one Device may be open at a time.
func Open(sampleRate int) (*Device, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}

	d := newDevice(sr, Decode, speaker.Lock, speaker.Unlock)
	speaker.Play(d.mixer)
	zlog.Info().Msgf("local audio device opened: sample_rate=%d", sampleRate)
	return d, nil
}

func newDevice(sr beep.SampleRate, decode func(string) (beep.StreamSeekCloser, beep.Format, error), lock, unlock func()) *Device {
	dk := &deck{}
	ctrl := &beep.Ctrl{Streamer: dk, Paused: true}
	music := &effects.Volume{Streamer: ctrl, Base: 2}
	mixer := &beep.Mixer{}
	mixer.Add(music)

	return &Device{
		sampleRate: sr,
		decode:     decode,
		lock:       lock,
		unlock:     unlock,
		mixer:      mixer,
		deck:       dk,
		ctrl:       ctrl,
		music:      music,
	}
}

// SetQueue replaces the queue and selects its first track.
func (d *Device) SetQueue(ctx context.Context, tracks []track.Track) error {
	for _, t := range tracks {
		if t.Path == "" {
			return errors.Newf("track %s has no local path", t.ID)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.unloadLocked()
	d.queue = append([]track.Track(nil), tracks...)
	d.index = 0
	return nil
}

// Play resumes the current track, decoding it first if needed.
func (d *Device) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("device is closed")
	}
	if len(d.queue) == 0 {
		return errors.New("queue is empty")
	}
	if d.stream == nil {
		if err := d.loadLocked(); err != nil {
			return err
		}
	}

	d.lock()
	d.ctrl.Paused = false
	d.unlock()
	return nil
}

// Pause pauses the music channel.
func (d *Device) Pause(ctx context.Context) error {
	d.lock()
	d.ctrl.Paused = true
	d.unlock()
	return nil
}

// SeekToStart rewinds the current track.
func (d *Device) SeekToStart(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}

	d.lock()
	defer d.unlock()
	if err := d.stream.Seek(0); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	// Fresh resampler so no buffered samples from the old position play
	d.deck.source = d.wrap(d.stream, d.format)
	return nil
}

// SkipNext selects the next track, wrapping around at the end.
func (d *Device) SkipNext(ctx context.Context) error {
	return d.skip(1)
}

// SkipPrevious selects the previous track, wrapping around at the start.
func (d *Device) SkipPrevious(ctx context.Context) error {
	return d.skip(-1)
}

func (d *Device) skip(step int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return errors.New("queue is empty")
	}
	d.unloadLocked()
	d.index = (d.index + step + len(d.queue)) % len(d.queue)
	return nil
}

// Position returns how far into the current track playback is.
func (d *Device) Position(ctx context.Context) (time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return 0, nil
	}

	d.lock()
	pos := d.stream.Position()
	d.unlock()
	return d.format.SampleRate.D(pos), nil
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

// Close stops playback and releases the decoded track.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.unloadLocked()

	d.lock()
	d.mixer.Clear()
	d.unlock()
	return nil
}

// duck scales the music channel; 1 restores full volume.
func (d *Device) duck(gain float64) {
	d.lock()
	defer d.unlock()

	if gain <= 0 {
		d.music.Silent = true
		return
	}
	d.music.Silent = false
	d.music.Volume = math.Log2(gain)
}

func (d *Device) loadLocked() error {
	t := d.queue[d.index]
	stream, format, err := d.decode(t.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", t.Path)
	}

	d.stream = stream
	d.format = format

	d.lock()
	d.deck.source = d.wrap(stream, format)
	d.unlock()

	zlog.Debug().Msgf("loaded track: id=%s path=%s sample_rate=%d", t.ID, t.Path, format.SampleRate)
	return nil
}

// unloadLocked pauses and drops the decoded track.
func (d *Device) unloadLocked() {
	d.lock()
	d.ctrl.Paused = true
	d.deck.source = nil
	d.unlock()

	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			zlog.Warn().Msgf("failed to close audio stream: %v", err)
		}
		d.stream = nil
	}
}

// wrap converts a stream to the speaker sample rate.
func (d *Device) wrap(s beep.Streamer, format beep.Format) beep.Streamer {
	if format.SampleRate == d.sampleRate {
		return s
	}
	return beep.Resample(resampleQuality, format.SampleRate, d.sampleRate, s)
}
