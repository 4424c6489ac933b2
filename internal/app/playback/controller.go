package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

const (
	// DefaultTickInterval is the polling interval used to detect the cutoff.
	DefaultTickInterval = 200 * time.Millisecond
	// DefaultPositionTimeout bounds a single position read.
	DefaultPositionTimeout = time.Second
	// DefaultCallTimeout bounds every other device or focus call.
	DefaultCallTimeout = 5 * time.Second
)

// Config holds controller configuration.
type Config struct {
	TickInterval    time.Duration // Interval between OnTick calls (default 200ms)
	PositionTimeout time.Duration // Deadline of a position read (default 1s)
	CallTimeout     time.Duration // Deadline of any other device call (default 5s)
}

// Snapshot is an immutable view of the session for rendering.
// Identity fields are only populated once revealed.
type Snapshot struct {
	State      State
	Elapsed    time.Duration
	Cutoff     time.Duration
	Remaining  time.Duration
	Announcing bool
	QueueSize  int

	TitleRevealed  bool
	ArtistRevealed bool
	Title          string
	Artist         string
	Album          string
	Artwork        *track.Artwork
	Track          *track.Track // Set after a full reveal
}

// Controller owns the playback session: snippet state, cutoff detection and reveal.
// All methods are expected to be called from a single event loop; the mutex
// only makes snapshots safe to read from elsewhere.
type Controller struct {
	mu sync.RWMutex

	// Collaborators
	library   Library
	device    Device
	announcer Announcer
	focus     AudioFocus

	// Session state
	loaded    bool
	queueSize int
	playing   bool
	elapsed   time.Duration
	cutoff    time.Duration
	remaining time.Duration

	// Reveal state
	current        *track.Track
	revealedAll    bool
	titleRevealed  bool
	artistRevealed bool

	// Announcement state
	announcing bool
	focusHeld  bool

	// Configuration
	config Config

	// Events
	eventCh chan Event
	closed  bool

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback session controller.
// A nil focus disables ducking.
func NewController(config Config, library Library, device Device, announcer Announcer, focus AudioFocus) *Controller {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.PositionTimeout <= 0 {
		config.PositionTimeout = DefaultPositionTimeout
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}
	if focus == nil {
		focus = noFocus{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		library:   library,
		device:    device,
		announcer: announcer,
		focus:     focus,
		config:    config,
		eventCh:   make(chan Event, 32),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// TickInterval returns the interval at which OnTick should be called.
func (c *Controller) TickInterval() time.Duration {
	return c.config.TickInterval
}

// LoadQueue populates the candidate track set. It has no playback side effect.
// On failure the previous session state is left untouched.
func (c *Controller) LoadQueue(ctx context.Context) error {
	tracks, err := c.library.ListTracks(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list tracks")
	}
	if len(tracks) == 0 {
		return ErrNoTracksAvailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.device.SetQueue(ctx, tracks); err != nil {
		return errors.Wrap(err, "failed to set device queue")
	}

	c.loaded = true
	c.queueSize = len(tracks)
	c.playing = false
	c.resetLocked()

	zlog.Info().Msgf("playback: queue loaded: tracks=%d", len(tracks))
	c.sendEventLocked(Event{Type: EventQueueLoaded, State: c.stateLocked()})
	return nil
}

// JumpToStart seeks to the start of the current track and resets the snippet.
// It is a no-op while a segment is playing.
func (c *Controller) JumpToStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNotLoaded
	}
	if c.playing {
		return nil
	}

	ctx, cancel := c.callContext()
	defer cancel()
	if err := c.device.SeekToStart(ctx); err != nil {
		return errors.Wrap(err, "failed to seek to start")
	}
	c.elapsed = 0
	c.cutoff = 0
	c.remaining = 0
	return nil
}

// PlaySegment plays d from the current position and arms the cutoff.
func (c *Controller) PlaySegment(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNotLoaded
	}
	if c.playing {
		return ErrPlaying
	}
	if d <= 0 {
		return errors.Wrapf(ErrInvalidSegment, "duration=%v", d)
	}

	ctx, cancel := c.callContext()
	defer cancel()

	c.refreshElapsedLocked()
	cutoff := c.elapsed + d
	// A device never reports a position past the end of the track
	if t, ok := c.device.NowPlaying(ctx); ok && t.Duration > 0 && cutoff > t.Duration {
		cutoff = t.Duration
	}
	return c.startLocked(ctx, cutoff)
}

// PlayFull plays until the end of the current track.
// Without a current track it does nothing.
func (c *Controller) PlayFull() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNotLoaded
	}
	if c.playing {
		return ErrPlaying
	}

	ctx, cancel := c.callContext()
	defer cancel()

	t, ok := c.device.NowPlaying(ctx)
	if !ok {
		return nil
	}
	if t.Duration <= 0 {
		return errors.Wrapf(ErrInvalidSegment, "track %s has no duration", t.ID)
	}

	c.refreshElapsedLocked()
	return c.startLocked(ctx, t.Duration)
}

func (c *Controller) startLocked(ctx context.Context, cutoff time.Duration) error {
	if err := c.device.Play(ctx); err != nil {
		return errors.Wrap(err, "failed to start playback")
	}
	c.cutoff = cutoff
	c.remaining = remainingOf(c.cutoff, c.elapsed)
	c.playing = true

	zlog.Debug().Msgf("playback: segment started: elapsed=%v cutoff=%v", c.elapsed, c.cutoff)
	c.sendEventLocked(Event{Type: EventStateChanged, State: c.stateLocked()})
	return nil
}

// OnTick polls the device position and pauses once the cutoff is reached.
// Invalid and timed-out position readings are ignored.
func (c *Controller) OnTick() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return nil
	}

	pos, err := c.readPositionLocked()
	if err != nil {
		if errors.Is(err, ErrInvalidPosition) {
			zlog.Debug().Msgf("playback: tick ignored: %v", err)
			return nil
		}
		return errors.Wrap(err, "failed to read position")
	}

	c.elapsed = pos
	c.remaining = remainingOf(c.cutoff, c.elapsed)

	if c.elapsed < c.cutoff {
		return nil
	}

	ctx, cancel := c.callContext()
	defer cancel()
	if err := c.device.Pause(ctx); err != nil {
		return errors.Wrap(err, "failed to pause at cutoff")
	}
	c.playing = false
	c.remaining = 0

	zlog.Debug().Msgf("playback: cutoff reached: elapsed=%v cutoff=%v", c.elapsed, c.cutoff)
	c.sendEventLocked(Event{Type: EventSegmentEnded, State: c.stateLocked()})
	return nil
}

// PauseResume toggles playback. Resuming keeps the armed cutoff.
func (c *Controller) PauseResume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNotLoaded
	}

	ctx, cancel := c.callContext()
	defer cancel()

	if c.playing {
		if err := c.device.Pause(ctx); err != nil {
			return errors.Wrap(err, "failed to pause")
		}
		c.playing = false
	} else {
		if err := c.device.Play(ctx); err != nil {
			return errors.Wrap(err, "failed to resume")
		}
		c.playing = true
	}

	c.sendEventLocked(Event{Type: EventStateChanged, State: c.stateLocked()})
	return nil
}

// NextTrack advances to the next track and hides its identity.
func (c *Controller) NextTrack() error {
	return c.changeTrack(c.device.SkipNext, "next")
}

// PreviousTrack goes back to the previous track and hides its identity.
func (c *Controller) PreviousTrack() error {
	return c.changeTrack(c.device.SkipPrevious, "previous")
}

func (c *Controller) changeTrack(skip func(context.Context) error, direction string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNotLoaded
	}

	ctx, cancel := c.callContext()
	defer cancel()

	if err := skip(ctx); err != nil {
		return errors.Wrapf(err, "failed to skip to %s track", direction)
	}
	if err := c.device.Pause(ctx); err != nil {
		zlog.Warn().Err(err).Msgf("playback: failed to pause after skip to %s", direction)
	}

	c.playing = false
	c.resetLocked()

	zlog.Debug().Msgf("playback: skipped to %s track", direction)
	c.sendEventLocked(Event{Type: EventTrackChanged, State: c.stateLocked()})
	return nil
}

// Reveal discloses title, artist and artwork of the current track and
// announces "<title> by <artist>". At most one announcement is in flight.
func (c *Controller) Reveal() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.captureLocked(); err != nil {
		return err
	}
	c.revealedAll = true
	c.titleRevealed = true
	c.artistRevealed = true
	c.sendEventLocked(Event{Type: EventRevealed, State: c.stateLocked()})

	if c.announcing || c.announcer.IsSpeaking() {
		zlog.Debug().Msg("playback: announcement in progress, not speaking")
		return nil
	}

	text := c.current.Announcement()
	c.announcing = true
	if err := c.announcer.Speak(text); err != nil {
		c.announcing = false
		zlog.Warn().Err(err).Msgf("playback: failed to announce %q", text)
	}
	return nil
}

// RevealTitle discloses only the title. Nothing is spoken.
func (c *Controller) RevealTitle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.captureLocked(); err != nil {
		return err
	}
	c.titleRevealed = true
	c.sendEventLocked(Event{Type: EventRevealed, State: c.stateLocked()})
	return nil
}

// RevealArtist discloses only the artist. Nothing is spoken.
func (c *Controller) RevealArtist() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.captureLocked(); err != nil {
		return err
	}
	c.artistRevealed = true
	c.sendEventLocked(Event{Type: EventRevealed, State: c.stateLocked()})
	return nil
}

func (c *Controller) captureLocked() error {
	if !c.loaded {
		return ErrNotLoaded
	}
	ctx, cancel := c.callContext()
	defer cancel()

	t, ok := c.device.NowPlaying(ctx)
	if !ok {
		return ErrNoTrack
	}
	c.current = t
	return nil
}

// AnnouncementStarted acquires audio focus for the announcement.
// Focus errors are logged and playback continues without ducking.
func (c *Controller) AnnouncementStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.announcing = true
	if c.focusHeld {
		return
	}
	ctx, cancel := c.callContext()
	defer cancel()
	if err := c.focus.Acquire(ctx); err != nil {
		zlog.Warn().Err(errors.Mark(err, ErrAudioFocus)).Msg("playback: failed to acquire audio focus")
		return
	}
	c.focusHeld = true
}

// AnnouncementFinished releases audio focus taken by AnnouncementStarted.
func (c *Controller) AnnouncementFinished() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.announcing = false
	c.releaseFocusLocked()
}

func (c *Controller) releaseFocusLocked() {
	if !c.focusHeld {
		return
	}
	c.focusHeld = false
	ctx, cancel := c.callContext()
	defer cancel()
	if err := c.focus.Release(ctx); err != nil {
		zlog.Warn().Err(errors.Mark(err, ErrAudioFocus)).Msg("playback: failed to release audio focus")
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		State:          c.stateLocked(),
		Elapsed:        c.elapsed,
		Cutoff:         c.cutoff,
		Remaining:      c.remaining,
		Announcing:     c.announcing,
		QueueSize:      c.queueSize,
		TitleRevealed:  c.titleRevealed,
		ArtistRevealed: c.artistRevealed,
	}
	if c.current == nil {
		return s
	}
	if c.titleRevealed {
		s.Title = c.current.DisplayTitle()
	}
	if c.artistRevealed {
		s.Artist = c.current.DisplayArtist()
	}
	if c.revealedAll {
		s.Album = c.current.Album
		s.Artwork = c.current.Artwork
		t := *c.current
		s.Track = &t
	}
	return s
}

// Close closes the controller and releases audio focus if still held.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.releaseFocusLocked()
	c.cancel()
	c.closed = true
	close(c.eventCh)
}

func (c *Controller) stateLocked() State {
	switch {
	case !c.loaded:
		return StateIdle
	case c.playing:
		return StatePlayingSegment
	case c.revealedAll:
		return StateRevealed
	default:
		return StatePausedOrStopped
	}
}

// resetLocked clears snippet and reveal state for a new track.
func (c *Controller) resetLocked() {
	c.elapsed = 0
	c.cutoff = 0
	c.remaining = 0
	c.current = nil
	c.revealedAll = false
	c.titleRevealed = false
	c.artistRevealed = false
}

// refreshElapsedLocked picks up the device position before arming a cutoff.
// An invalid reading keeps the last known value.
func (c *Controller) refreshElapsedLocked() {
	pos, err := c.readPositionLocked()
	if err != nil {
		zlog.Debug().Msgf("playback: keeping elapsed=%v: %v", c.elapsed, err)
		return
	}
	c.elapsed = pos
}

// readPositionLocked reads the device position within PositionTimeout.
// A reading that misses the deadline is reported as ErrInvalidPosition.
func (c *Controller) readPositionLocked() (time.Duration, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.config.PositionTimeout)
	defer cancel()

	pos, err := c.device.Position(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, errors.Wrapf(ErrInvalidPosition, "position read timed out after %v", c.config.PositionTimeout)
	}
	return pos, err
}

// callContext bounds a single device or focus call by CallTimeout.
func (c *Controller) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.config.CallTimeout)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop event
	}
}

func remainingOf(cutoff, elapsed time.Duration) time.Duration {
	if r := cutoff - elapsed; r > 0 {
		return r
	}
	return 0
}
