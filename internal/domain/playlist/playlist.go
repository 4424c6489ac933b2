// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// Playlist is the set of tracks loaded for a game.
type Playlist struct {
	Name     string        // Display name (provider names joined)
	LoadedAt time.Time     // When the tracks were loaded
	Tracks   []track.Track // Tracks in play order
}

// TotalDuration returns the total duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// CountBySource returns how many tracks come from each source.
func (p *Playlist) CountBySource() map[track.Source]int {
	counts := make(map[track.Source]int)
	for _, t := range p.Tracks {
		counts[t.Source]++
	}
	return counts
}
