package library

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

type PlaylistProviderConfig struct {
	PlaylistURL string `yaml:"playlist_url" mapstructure:"playlist_url" validate:"required"`
}

// PlaylistProvider provides every track of a Spotify playlist.
type PlaylistProvider struct {
	spotify SpotifyClient
	config  *PlaylistProviderConfig
}

// NewPlaylistProvider creates a new PlaylistProvider.
func NewPlaylistProvider(spotify SpotifyClient, settings map[string]any) (*PlaylistProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}

	var config PlaylistProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	return &PlaylistProvider{
		spotify: spotify,
		config:  &config,
	}, nil
}

// Tracks retrieves the playlist's tracks.
func (p *PlaylistProvider) Tracks(ctx context.Context) ([]track.Track, error) {
	tracks, err := p.spotify.GetPlaylistTracks(ctx, p.config.PlaylistURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist tracks")
	}
	return tracks, nil
}

// Name returns the provider name.
func (p *PlaylistProvider) Name() string {
	return "spotify_playlist"
}
