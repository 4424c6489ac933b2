// Package library provides the track sources a game is played from.
package library

import (
	"context"

	"github.com/osa030/guessthatsong/internal/domain/track"
	"github.com/osa030/guessthatsong/internal/infra/lastfm"
)

// Provider is the interface for track providers.
// Implementations return every track they can offer; filtering and
// ordering are applied by Library.
type Provider interface {
	// Tracks retrieves the provider's tracks.
	Tracks(ctx context.Context) ([]track.Track, error)

	// Name returns the provider type (used in config).
	Name() string
}

// Scanner reads audio files below a directory.
type Scanner interface {
	Scan(ctx context.Context, root string, extensions []string) ([]track.Track, error)
}

// SpotifyClient defines the Spotify operations needed by providers.
type SpotifyClient interface {
	GetPlaylistTracks(ctx context.Context, playlistURL string) ([]track.Track, error)
	Search(ctx context.Context, query string, limit int) ([]track.Track, error)
}

// LastFmClient defines the Last.fm operations needed by providers.
type LastFmClient interface {
	GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error)
}
