package library

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// ProviderChain queries every provider and merges their tracks.
type ProviderChain struct {
	providers []ProviderWithMetadata
}

// NewProviderChain creates a new provider chain.
func NewProviderChain(providers []ProviderWithMetadata) *ProviderChain {
	return &ProviderChain{
		providers: providers,
	}
}

// Tracks retrieves tracks from all providers, dropping IDs already seen.
// A failing provider is skipped; an error is returned only if every provider failed.
func (c *ProviderChain) Tracks(ctx context.Context) ([]track.Track, error) {
	var all []track.Track
	seen := make(map[string]bool)
	failed := 0

	for i, pm := range c.providers {
		zlog.Debug().Msgf("querying provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		tracks, err := pm.Provider.Tracks(ctx)
		if err != nil {
			failed++
			zlog.Warn().Msgf("provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			continue
		}

		added := 0
		for _, t := range tracks {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			all = append(all, t)
			added++
		}

		zlog.Info().Msgf("provider returned tracks: provider=%s count=%d added=%d total_so_far=%d",
			pm.DisplayName, len(tracks), added, len(all))
	}

	if len(c.providers) > 0 && failed == len(c.providers) {
		return nil, errors.New("all providers failed to return tracks")
	}

	return all, nil
}

// DisplayNames returns the display names of all providers.
func (c *ProviderChain) DisplayNames() []string {
	names := make([]string, len(c.providers))
	for i, pm := range c.providers {
		names[i] = pm.DisplayName
	}
	return names
}

// Name returns the chain name.
func (c *ProviderChain) Name() string {
	return "provider_chain"
}
