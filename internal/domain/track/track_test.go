package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_DisplayFallbacks(t *testing.T) {
	tests := []struct {
		name           string
		track          Track
		expectedTitle  string
		expectedArtist string
	}{
		{
			name:           "full metadata",
			track:          Track{Title: "Bohemian Rhapsody", Artists: []string{"Queen"}},
			expectedTitle:  "Bohemian Rhapsody",
			expectedArtist: "Queen",
		},
		{
			name:           "multiple artists",
			track:          Track{Title: "Under Pressure", Artists: []string{"Queen", "David Bowie"}},
			expectedTitle:  "Under Pressure",
			expectedArtist: "Queen, David Bowie",
		},
		{
			name:           "missing title",
			track:          Track{Artists: []string{"Queen"}},
			expectedTitle:  Unknown,
			expectedArtist: "Queen",
		},
		{
			name:           "blank artists",
			track:          Track{Title: "Song", Artists: []string{" ", ""}},
			expectedTitle:  "Song",
			expectedArtist: Unknown,
		},
		{
			name:           "nothing at all",
			track:          Track{},
			expectedTitle:  Unknown,
			expectedArtist: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedTitle, tt.track.DisplayTitle())
			assert.Equal(t, tt.expectedArtist, tt.track.DisplayArtist())
		})
	}
}

func TestTrack_Announcement(t *testing.T) {
	tr := Track{Title: "X", Artists: []string{"Y"}}
	assert.Equal(t, "X by Y", tr.Announcement())

	empty := Track{}
	assert.Equal(t, "Unknown by Unknown", empty.Announcement())
}

func TestTrack_HasArtwork(t *testing.T) {
	tests := []struct {
		name     string
		artwork  *Artwork
		expected bool
	}{
		{name: "nil artwork", artwork: nil, expected: false},
		{name: "empty artwork", artwork: &Artwork{}, expected: false},
		{name: "embedded data", artwork: &Artwork{MIMEType: "image/png", Data: []byte{1, 2}}, expected: true},
		{name: "remote url", artwork: &Artwork{URL: "https://example.com/a.jpg"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Track{ID: "id", Artwork: tt.artwork}
			assert.Equal(t, tt.expected, tr.HasArtwork())
		})
	}
}

func TestTrack_MainArtist(t *testing.T) {
	assert.Equal(t, "", (&Track{}).MainArtist())
	assert.Equal(t, "Queen", (&Track{Artists: []string{"Queen", "Bowie"}}).MainArtist())
}

func TestTrack_IsAvailableInMarket(t *testing.T) {
	tr := Track{Markets: []string{"JP", "us"}}
	assert.True(t, tr.IsAvailableInMarket("JP"))
	assert.True(t, tr.IsAvailableInMarket("US"))
	assert.False(t, tr.IsAvailableInMarket("GB"))
	assert.False(t, (&Track{}).IsAvailableInMarket("JP"))
}
