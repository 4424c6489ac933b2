package playback

import (
	"context"
	"time"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// Library provides the candidate tracks for a session.
type Library interface {
	// ListTracks returns the playable tracks.
	// Returns ErrNoTracksAvailable when nothing can be played.
	ListTracks(ctx context.Context) ([]track.Track, error)
}

// Device is the playback device driven by the controller.
type Device interface {
	SetQueue(ctx context.Context, tracks []track.Track) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekToStart(ctx context.Context) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	// Position returns the playback position of the current track.
	// Returns ErrInvalidPosition when the device cannot report a usable value.
	Position(ctx context.Context) (time.Duration, error)
	NowPlaying(ctx context.Context) (*track.Track, bool)
}

// Announcer speaks text asynchronously.
// Lifecycle (started/finished) is delivered to the controller by the event loop.
type Announcer interface {
	Speak(text string) error
	IsSpeaking() bool
}

// AudioFocus claims the audio output while an announcement plays.
type AudioFocus interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

type noFocus struct{}

func (noFocus) Acquire(context.Context) error { return nil }
func (noFocus) Release(context.Context) error { return nil }
