package playback

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// fakeLibrary returns a fixed track list.
type fakeLibrary struct {
	tracks []track.Track
	err    error
}

func (l *fakeLibrary) ListTracks(context.Context) ([]track.Track, error) {
	return l.tracks, l.err
}

// fakeDevice advances its position by step on every Position call while playing.
// Like a real player, the position stops at the end of a track with a known duration.
type fakeDevice struct {
	tracks  []track.Track
	index   int
	playing bool
	pos     time.Duration
	step    time.Duration

	invalidReads  int  // Number of upcoming Position calls reporting NaN
	stallPosition bool // Position blocks until its context is done
	playCalls     int
	pauseCalls    int
	seekCalls     int
	playDeadline  bool // Last Play call carried a deadline
	playErr       error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{step: DefaultTickInterval}
}

func (d *fakeDevice) SetQueue(_ context.Context, tracks []track.Track) error {
	d.tracks = tracks
	d.index = 0
	d.pos = 0
	d.playing = false
	return nil
}

func (d *fakeDevice) Play(ctx context.Context) error {
	d.playCalls++
	_, d.playDeadline = ctx.Deadline()
	if d.playErr != nil {
		return d.playErr
	}
	d.playing = true
	return nil
}

func (d *fakeDevice) Pause(context.Context) error {
	d.pauseCalls++
	d.playing = false
	return nil
}

func (d *fakeDevice) SeekToStart(context.Context) error {
	d.seekCalls++
	d.pos = 0
	return nil
}

func (d *fakeDevice) SkipNext(context.Context) error {
	d.index = (d.index + 1) % len(d.tracks)
	d.pos = 0
	return nil
}

func (d *fakeDevice) SkipPrevious(context.Context) error {
	d.index = (d.index - 1 + len(d.tracks)) % len(d.tracks)
	d.pos = 0
	return nil
}

func (d *fakeDevice) Position(ctx context.Context) (time.Duration, error) {
	if d.stallPosition {
		<-ctx.Done()
		return 0, errors.Wrap(ctx.Err(), "position request")
	}
	if d.invalidReads > 0 {
		d.invalidReads--
		return PositionFromSeconds(math.NaN())
	}
	if d.playing {
		d.pos += d.step
	}
	if end := d.tracks[d.index].Duration; end > 0 && d.pos > end {
		d.pos = end
	}
	return d.pos, nil
}

func (d *fakeDevice) NowPlaying(context.Context) (*track.Track, bool) {
	if len(d.tracks) == 0 {
		return nil, false
	}
	t := d.tracks[d.index]
	return &t, true
}

// fakeAnnouncer records Speak calls and stays "speaking" until finish is called.
type fakeAnnouncer struct {
	spoken   []string
	speaking bool
	err      error
}

func (a *fakeAnnouncer) Speak(text string) error {
	if a.err != nil {
		return a.err
	}
	a.spoken = append(a.spoken, text)
	a.speaking = true
	return nil
}

func (a *fakeAnnouncer) IsSpeaking() bool { return a.speaking }

type fakeFocus struct {
	acquired int
	released int
	err      error
}

func (f *fakeFocus) Acquire(context.Context) error {
	f.acquired++
	return f.err
}

func (f *fakeFocus) Release(context.Context) error {
	f.released++
	return f.err
}

var (
	trackA = track.Track{ID: "a", Title: "X", Artists: []string{"Y"}, Album: "Z", Duration: 200 * time.Second}
	trackB = track.Track{ID: "b", Title: "Second", Artists: []string{"Other"}, Duration: 180 * time.Second}
)

type fixture struct {
	ctrl      *Controller
	device    *fakeDevice
	announcer *fakeAnnouncer
	focus     *fakeFocus
}

func newFixture(t *testing.T, tracks ...track.Track) *fixture {
	t.Helper()
	f := &fixture{
		device:    newFakeDevice(),
		announcer: &fakeAnnouncer{},
		focus:     &fakeFocus{},
	}
	f.ctrl = NewController(Config{}, &fakeLibrary{tracks: tracks}, f.device, f.announcer, f.focus)
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.LoadQueue(context.Background()))
}

func (f *fixture) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.ctrl.OnTick())
	}
}

func TestController_LoadQueue(t *testing.T) {
	t.Run("empty library", func(t *testing.T) {
		f := newFixture(t)
		err := f.ctrl.LoadQueue(context.Background())
		assert.True(t, errors.Is(err, ErrNoTracksAvailable))
		assert.Equal(t, StateIdle, f.ctrl.State())
	})

	t.Run("library failure keeps state", func(t *testing.T) {
		device := newFakeDevice()
		ctrl := NewController(Config{}, &fakeLibrary{err: errors.New("disk gone")}, device, &fakeAnnouncer{}, nil)
		defer ctrl.Close()

		err := ctrl.LoadQueue(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateIdle, ctrl.State())
		assert.Nil(t, device.tracks)
	})

	t.Run("loaded without playing", func(t *testing.T) {
		f := newFixture(t, trackA, trackB)
		f.load(t)

		assert.Equal(t, StatePausedOrStopped, f.ctrl.State())
		assert.Equal(t, 0, f.device.playCalls)
		assert.Len(t, f.device.tracks, 2)
		assert.Equal(t, 2, f.ctrl.Snapshot().QueueSize)
	})
}

func TestController_NotLoaded(t *testing.T) {
	f := newFixture(t, trackA)

	assert.ErrorIs(t, f.ctrl.PlaySegment(time.Second), ErrNotLoaded)
	assert.ErrorIs(t, f.ctrl.PlayFull(), ErrNotLoaded)
	assert.ErrorIs(t, f.ctrl.PauseResume(), ErrNotLoaded)
	assert.ErrorIs(t, f.ctrl.JumpToStart(), ErrNotLoaded)
	assert.ErrorIs(t, f.ctrl.NextTrack(), ErrNotLoaded)
	assert.ErrorIs(t, f.ctrl.Reveal(), ErrNotLoaded)
	assert.NoError(t, f.ctrl.OnTick())
	assert.Empty(t, f.announcer.spoken)
}

func TestController_SegmentCutoff(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
	}{
		{name: "one tick", duration: 200 * time.Millisecond},
		{name: "between ticks", duration: 1100 * time.Millisecond},
		{name: "one second", duration: time.Second},
		{name: "ten seconds", duration: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, trackA)
			f.load(t)

			require.NoError(t, f.ctrl.PlaySegment(tt.duration))
			assert.Equal(t, StatePlayingSegment, f.ctrl.State())

			maxTicks := int(tt.duration/DefaultTickInterval) + 2
			for i := 0; i < maxTicks && f.ctrl.State() == StatePlayingSegment; i++ {
				require.NoError(t, f.ctrl.OnTick())
			}

			snap := f.ctrl.Snapshot()
			assert.Equal(t, StatePausedOrStopped, snap.State)
			assert.GreaterOrEqual(t, snap.Elapsed, snap.Cutoff)
			assert.Equal(t, time.Duration(0), snap.Remaining)
			assert.False(t, f.device.playing)
		})
	}
}

func TestController_ThirtySecondSegment(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(30*time.Second))

	f.tick(t, 149)
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StatePlayingSegment, snap.State)
	assert.Equal(t, 200*time.Millisecond, snap.Remaining)

	f.tick(t, 1)
	snap = f.ctrl.Snapshot()
	assert.Equal(t, StatePausedOrStopped, snap.State)
	assert.Equal(t, time.Duration(0), snap.Remaining)
	assert.Equal(t, 30*time.Second, snap.Elapsed)
	assert.Equal(t, 1, f.device.pauseCalls)
}

func TestController_SegmentContinuesFromElapsed(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(time.Second))
	f.tick(t, 5)
	require.Equal(t, StatePausedOrStopped, f.ctrl.State())

	require.NoError(t, f.ctrl.PlaySegment(2*time.Second))
	snap := f.ctrl.Snapshot()
	assert.Equal(t, time.Second, snap.Elapsed)
	assert.Equal(t, 3*time.Second, snap.Cutoff)
	assert.Equal(t, 2*time.Second, snap.Remaining)
}

func TestController_PlaySegmentErrors(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	assert.ErrorIs(t, f.ctrl.PlaySegment(0), ErrInvalidSegment)
	assert.ErrorIs(t, f.ctrl.PlaySegment(-time.Second), ErrInvalidSegment)

	require.NoError(t, f.ctrl.PlaySegment(time.Second))
	assert.ErrorIs(t, f.ctrl.PlaySegment(time.Second), ErrPlaying)
	assert.ErrorIs(t, f.ctrl.PlayFull(), ErrPlaying)
}

func TestController_PlaySegmentDeviceFailure(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)
	f.device.playErr = errors.New("device offline")

	require.Error(t, f.ctrl.PlaySegment(time.Second))
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StatePausedOrStopped, snap.State)
	assert.Equal(t, time.Duration(0), snap.Cutoff)
}

func TestController_PlayFull(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlayFull())
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StatePlayingSegment, snap.State)
	assert.Equal(t, trackA.Duration, snap.Cutoff)
}

func TestController_SegmentPastEndOfTrack(t *testing.T) {
	short := track.Track{ID: "short", Title: "Short", Duration: 2 * time.Second}
	f := newFixture(t, short)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(time.Second))
	f.tick(t, 10)
	require.Equal(t, StatePausedOrStopped, f.ctrl.State())

	require.NoError(t, f.ctrl.PlaySegment(5*time.Second))
	assert.Equal(t, short.Duration, f.ctrl.Snapshot().Cutoff)

	for i := 0; i < 1000 && f.ctrl.State() == StatePlayingSegment; i++ {
		require.NoError(t, f.ctrl.OnTick())
	}
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StatePausedOrStopped, snap.State)
	assert.Equal(t, short.Duration, snap.Elapsed)
	assert.Equal(t, time.Duration(0), snap.Remaining)

	// At the end of the track another segment stops on the next tick.
	require.NoError(t, f.ctrl.PlaySegment(time.Second))
	f.tick(t, 1)
	assert.Equal(t, StatePausedOrStopped, f.ctrl.State())
	assert.Equal(t, 3, f.device.pauseCalls)
}

func TestController_UnknownDurationIsNotCapped(t *testing.T) {
	f := newFixture(t, track.Track{ID: "stream", Title: "Live"})
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(5*time.Second))
	assert.Equal(t, 5*time.Second, f.ctrl.Snapshot().Cutoff)
}

func TestController_StalledPositionRead(t *testing.T) {
	device := newFakeDevice()
	ctrl := NewController(Config{PositionTimeout: 10 * time.Millisecond}, &fakeLibrary{tracks: []track.Track{trackA}}, device, &fakeAnnouncer{}, nil)
	defer ctrl.Close()
	require.NoError(t, ctrl.LoadQueue(context.Background()))

	require.NoError(t, ctrl.PlaySegment(5*time.Second))
	assert.True(t, device.playDeadline)
	require.NoError(t, ctrl.OnTick())
	before := ctrl.Snapshot()

	device.stallPosition = true
	require.NoError(t, ctrl.OnTick(), "a timed-out read skips the tick")
	assert.Equal(t, before, ctrl.Snapshot())
	assert.Equal(t, StatePlayingSegment, ctrl.State())

	device.stallPosition = false
	require.NoError(t, ctrl.OnTick())
	assert.Greater(t, ctrl.Snapshot().Elapsed, before.Elapsed)
}

func TestController_InvalidPositionTick(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(5*time.Second))
	f.tick(t, 3)
	before := f.ctrl.Snapshot()

	f.device.invalidReads = 1
	require.NoError(t, f.ctrl.OnTick())

	assert.Equal(t, before, f.ctrl.Snapshot())
	assert.True(t, f.device.playing)
}

func TestController_PauseResume(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(10*time.Second))
	f.tick(t, 2)

	require.NoError(t, f.ctrl.PauseResume())
	assert.Equal(t, StatePausedOrStopped, f.ctrl.State())
	assert.False(t, f.device.playing)

	// Ticks while paused do nothing.
	f.tick(t, 10)
	assert.Equal(t, 400*time.Millisecond, f.ctrl.Snapshot().Elapsed)

	require.NoError(t, f.ctrl.PauseResume())
	assert.Equal(t, StatePlayingSegment, f.ctrl.State())
	assert.Equal(t, 10*time.Second, f.ctrl.Snapshot().Cutoff)
}

func TestController_ResumeAfterCutoffPausesOnNextTick(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(time.Second))
	f.tick(t, 5)
	require.Equal(t, StatePausedOrStopped, f.ctrl.State())

	require.NoError(t, f.ctrl.PauseResume())
	f.tick(t, 1)
	assert.Equal(t, StatePausedOrStopped, f.ctrl.State())
}

func TestController_JumpToStart(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(time.Second))
	f.tick(t, 2)

	// No-op while playing.
	require.NoError(t, f.ctrl.JumpToStart())
	assert.Equal(t, 0, f.device.seekCalls)
	assert.Equal(t, StatePlayingSegment, f.ctrl.State())

	f.tick(t, 3)
	require.NoError(t, f.ctrl.JumpToStart())
	snap := f.ctrl.Snapshot()
	assert.Equal(t, 1, f.device.seekCalls)
	assert.Equal(t, time.Duration(0), snap.Elapsed)
	assert.Equal(t, time.Duration(0), snap.Cutoff)
	assert.Equal(t, time.Duration(0), f.device.pos)
}

func TestController_TrackChangeResets(t *testing.T) {
	tests := []struct {
		name   string
		change func(*Controller) error
		index  int
	}{
		{name: "next", change: (*Controller).NextTrack, index: 1},
		{name: "previous", change: (*Controller).PreviousTrack, index: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, trackA, trackB)
			f.load(t)

			require.NoError(t, f.ctrl.PlaySegment(5*time.Second))
			f.tick(t, 3)
			require.NoError(t, f.ctrl.Reveal())

			require.NoError(t, tt.change(f.ctrl))

			snap := f.ctrl.Snapshot()
			assert.Equal(t, StatePausedOrStopped, snap.State)
			assert.Equal(t, time.Duration(0), snap.Elapsed)
			assert.Equal(t, time.Duration(0), snap.Cutoff)
			assert.False(t, snap.TitleRevealed)
			assert.False(t, snap.ArtistRevealed)
			assert.Empty(t, snap.Title)
			assert.Empty(t, snap.Artist)
			assert.Nil(t, snap.Track)
			assert.False(t, f.device.playing)
			assert.Equal(t, tt.index, f.device.index)
		})
	}
}

func TestController_RevealSpeaksAnnouncement(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.Reveal())

	assert.Equal(t, []string{"X by Y"}, f.announcer.spoken)
	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateRevealed, snap.State)
	assert.Equal(t, "X", snap.Title)
	assert.Equal(t, "Y", snap.Artist)
	assert.Equal(t, "Z", snap.Album)
	require.NotNil(t, snap.Track)
	assert.Equal(t, "a", snap.Track.ID)
}

func TestController_RevealUnknownMetadata(t *testing.T) {
	f := newFixture(t, track.Track{ID: "anon", Duration: time.Minute})
	f.load(t)

	require.NoError(t, f.ctrl.Reveal())
	assert.Equal(t, []string{"Unknown by Unknown"}, f.announcer.spoken)
}

func TestController_RevealSingleFlight(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.Reveal())
	require.NoError(t, f.ctrl.Reveal())
	assert.Len(t, f.announcer.spoken, 1)

	// Still in flight per the controller even if the engine reports idle.
	f.announcer.speaking = false
	require.NoError(t, f.ctrl.Reveal())
	assert.Len(t, f.announcer.spoken, 1)

	f.ctrl.AnnouncementStarted()
	f.ctrl.AnnouncementFinished()
	require.NoError(t, f.ctrl.Reveal())
	assert.Len(t, f.announcer.spoken, 2)
}

func TestController_RevealSpeakFailure(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)
	f.announcer.err = errors.New("no engine")

	require.NoError(t, f.ctrl.Reveal())
	assert.Equal(t, StateRevealed, f.ctrl.State())
	assert.False(t, f.ctrl.Snapshot().Announcing)
}

func TestController_PartialReveal(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.RevealTitle())
	snap := f.ctrl.Snapshot()
	assert.Equal(t, "X", snap.Title)
	assert.Empty(t, snap.Artist)
	assert.Nil(t, snap.Track)
	assert.Equal(t, StatePausedOrStopped, snap.State)

	require.NoError(t, f.ctrl.RevealArtist())
	snap = f.ctrl.Snapshot()
	assert.Equal(t, "Y", snap.Artist)
	assert.Empty(t, f.announcer.spoken)
}

func TestController_RevealWhilePlaying(t *testing.T) {
	f := newFixture(t, trackA)
	f.load(t)

	require.NoError(t, f.ctrl.PlaySegment(time.Second))
	require.NoError(t, f.ctrl.Reveal())
	assert.Equal(t, StatePlayingSegment, f.ctrl.State())

	f.tick(t, 5)
	assert.Equal(t, StateRevealed, f.ctrl.State())
}

func TestController_AudioFocus(t *testing.T) {
	t.Run("acquire and release once", func(t *testing.T) {
		f := newFixture(t, trackA)
		f.load(t)

		require.NoError(t, f.ctrl.Reveal())
		f.ctrl.AnnouncementStarted()
		f.ctrl.AnnouncementStarted()
		assert.Equal(t, 1, f.focus.acquired)
		assert.True(t, f.ctrl.Snapshot().Announcing)

		f.ctrl.AnnouncementFinished()
		f.ctrl.AnnouncementFinished()
		assert.Equal(t, 1, f.focus.released)
		assert.False(t, f.ctrl.Snapshot().Announcing)
	})

	t.Run("acquire failure is not fatal", func(t *testing.T) {
		f := newFixture(t, trackA)
		f.load(t)
		f.focus.err = errors.New("busy")

		require.NoError(t, f.ctrl.Reveal())
		f.ctrl.AnnouncementStarted()
		f.ctrl.AnnouncementFinished()

		assert.Equal(t, 1, f.focus.acquired)
		assert.Equal(t, 0, f.focus.released)
		require.NoError(t, f.ctrl.PlaySegment(time.Second))
	})

	t.Run("close releases held focus", func(t *testing.T) {
		device := newFakeDevice()
		focus := &fakeFocus{}
		ctrl := NewController(Config{}, &fakeLibrary{tracks: []track.Track{trackA}}, device, &fakeAnnouncer{}, focus)

		ctrl.AnnouncementStarted()
		ctrl.Close()
		ctrl.Close()
		assert.Equal(t, 1, focus.released)
	})
}

func TestController_Events(t *testing.T) {
	f := newFixture(t, trackA, trackB)
	f.load(t)
	require.NoError(t, f.ctrl.PlaySegment(200*time.Millisecond))
	f.tick(t, 1)
	require.NoError(t, f.ctrl.NextTrack())

	var got []EventType
	for len(got) < 4 {
		select {
		case e := <-f.ctrl.Events():
			got = append(got, e.Type)
		default:
			t.Fatalf("missing events, got %v", got)
		}
	}
	assert.Equal(t, []EventType{EventQueueLoaded, EventStateChanged, EventSegmentEnded, EventTrackChanged}, got)
}

func TestPositionFromSeconds(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected time.Duration
		wantErr  bool
	}{
		{name: "zero", input: 0, expected: 0},
		{name: "fractional", input: 1.5, expected: 1500 * time.Millisecond},
		{name: "nan", input: math.NaN(), wantErr: true},
		{name: "negative", input: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PositionFromSeconds(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPosition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "playing_segment", StatePlayingSegment.String())
	assert.Equal(t, "paused_or_stopped", StatePausedOrStopped.String())
	assert.Equal(t, "revealed", StateRevealed.String())
	assert.Equal(t, "unknown", State(42).String())
}
