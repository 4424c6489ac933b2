// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// Unknown is shown in place of missing metadata.
const Unknown = "Unknown"

// Source identifies where a track comes from.
type Source string

const (
	SourceLocal   Source = "local"   // File in a local music directory
	SourceSpotify Source = "spotify" // Spotify catalogue track
)

// Artwork holds cover art, either embedded image data or a remote URL.
type Artwork struct {
	MIMEType string // e.g. "image/jpeg" (embedded only)
	Data     []byte // Embedded image bytes
	URL      string // Remote image URL
}

// IsEmpty reports whether the artwork carries neither data nor a URL.
func (a *Artwork) IsEmpty() bool {
	return a == nil || (len(a.Data) == 0 && a.URL == "")
}

// Track represents a library entry.
// It is read-only once loaded.
type Track struct {
	ID       string        // Stable identifier (Spotify ID or SHA1 UUID of the file path)
	Title    string        // Track title
	Artists  []string      // Artist names
	Album    string        // Album name
	Duration time.Duration // Track duration
	Source   Source        // Where the track lives
	Path     string        // Local file path (SourceLocal)
	URI      string        // Spotify URI (SourceSpotify)
	Artwork  *Artwork      // Optional cover art
	Markets  []string      // Spotify markets the track is available in
}

// DisplayTitle returns the title or Unknown.
func (t *Track) DisplayTitle() string {
	if strings.TrimSpace(t.Title) == "" {
		return Unknown
	}
	return t.Title
}

// DisplayArtist returns the joined artist names or Unknown.
func (t *Track) DisplayArtist() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	if len(names) == 0 {
		return Unknown
	}
	return strings.Join(names, ", ")
}

// MainArtist returns the first artist, or an empty string.
func (t *Track) MainArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Announcement returns the spoken reveal text, "<title> by <artist>".
func (t *Track) Announcement() string {
	return t.DisplayTitle() + " by " + t.DisplayArtist()
}

// IsAvailableInMarket checks if the track is available in the given market.
func (t *Track) IsAvailableInMarket(market string) bool {
	for _, m := range t.Markets {
		if strings.EqualFold(m, market) {
			return true
		}
	}
	return false
}

// HasArtwork reports whether the track carries cover art.
func (t *Track) HasArtwork() bool {
	return !t.Artwork.IsEmpty()
}
