// Package session records a game session: its identity, lifecycle and the rounds played.
package session

import "time"

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseWaiting    Phase = iota // Library not loaded yet
	PhaseActive                  // Rounds are being played
	PhaseTerminated              // Session has ended
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Round is one track's turn in the game.
type Round struct {
	TrackID   string // Identity fields are set on reveal
	Title     string
	Artist    string
	StartedAt time.Time
	Plays     int           // Segments played before the reveal
	Heard     time.Duration // Longest cutoff reached before the reveal
	Revealed  bool
}

// Summary aggregates a session's rounds.
type Summary struct {
	SessionID    string
	PlaylistName string
	Rounds       int
	Revealed     int
	AverageHeard time.Duration // Over revealed rounds
	Elapsed      time.Duration
}
