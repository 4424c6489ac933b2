package playback

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNoTracksAvailable = errors.New("no tracks available")
	ErrAudioFocus        = errors.New("audio focus error")
	ErrInvalidPosition   = errors.New("invalid playback position")
	ErrNotLoaded         = errors.New("queue not loaded")
	ErrPlaying           = errors.New("segment already playing")
	ErrInvalidSegment    = errors.New("invalid segment duration")
	ErrNoTrack           = errors.New("no track selected")
)

// PositionFromSeconds converts a device position in seconds.
// NaN, infinite and negative readings yield ErrInvalidPosition.
func PositionFromSeconds(sec float64) (time.Duration, error) {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return 0, errors.Wrapf(ErrInvalidPosition, "position=%v", sec)
	}
	return time.Duration(math.Round(sec * float64(time.Second))), nil
}
