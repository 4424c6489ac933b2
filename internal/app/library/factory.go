package library

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/infra/config"
)

// Dependencies holds the clients providers may need. Unused ones may be nil.
type Dependencies struct {
	Scanner Scanner
	Spotify SpotifyClient
	LastFm  LastFmClient
}

// providerBackends lists the playback backends able to play each provider's tracks.
var providerBackends = map[string]string{
	"directory":        config.BackendLocal,
	"spotify_playlist": config.BackendSpotify,
	"lastfm_tag":       config.BackendSpotify,
}

// NewProviderChainFromConfig creates a provider chain from configuration.
func NewProviderChainFromConfig(cfg *config.Config, deps Dependencies) (*ProviderChain, error) {
	if len(cfg.Library.Providers) == 0 {
		return nil, errors.New("no library providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Library.Providers {
		backend, ok := providerBackends[pcfg.Type]
		if !ok {
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}
		if backend != cfg.Playback.Backend {
			return nil, errors.Newf("provider type %s needs the %s backend, configured backend is %s (provider index %d)",
				pcfg.Type, backend, cfg.Playback.Backend, i)
		}

		var provider Provider
		var err error
		zlog.Debug().Msgf("creating library provider: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)
		switch pcfg.Type {
		case "directory":
			provider, err = NewDirectoryProvider(deps.Scanner, pcfg.Settings)

		case "spotify_playlist":
			provider, err = NewPlaylistProvider(deps.Spotify, pcfg.Settings)

		case "lastfm_tag":
			provider, err = NewTagProvider(deps.LastFm, deps.Spotify, pcfg.Settings)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered library provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewProviderChain(providers), nil
}
