// Package playback provides the playback-session state machine for the guessing game.
package playback

// State represents the session state.
type State int

const (
	StateIdle            State = iota // Queue not loaded
	StatePlayingSegment               // Device is playing a segment
	StatePausedOrStopped              // Quiescent, identity hidden
	StateRevealed                     // Quiescent, identity revealed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlayingSegment:
		return "playing_segment"
	case StatePausedOrStopped:
		return "paused_or_stopped"
	case StateRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}
