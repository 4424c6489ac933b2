package library

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/app/filter"
	"github.com/osa030/guessthatsong/internal/app/playback"
	"github.com/osa030/guessthatsong/internal/domain/playlist"
	"github.com/osa030/guessthatsong/internal/domain/track"
	"github.com/osa030/guessthatsong/internal/infra/config"
)

// Options configures a Library.
type Options struct {
	KeepOrder bool // Skip shuffling
	MaxTracks int  // 0 means no limit
}

// Library is the media library the game draws tracks from:
// provider chain, then filter chain, then shuffle.
type Library struct {
	providers *ProviderChain
	filters   *filter.Chain
	options   Options
	shuffle   func([]track.Track)
}

// New creates a library. A nil filter chain accepts every track.
func New(providers *ProviderChain, filters *filter.Chain, options Options) *Library {
	if filters == nil {
		filters = filter.NewChain()
	}
	return &Library{
		providers: providers,
		filters:   filters,
		options:   options,
		shuffle: func(tracks []track.Track) {
			rand.Shuffle(len(tracks), func(i, j int) {
				tracks[i], tracks[j] = tracks[j], tracks[i]
			})
		},
	}
}

// NewFromConfig builds the provider and filter chains from configuration.
func NewFromConfig(cfg *config.Config, deps Dependencies) (*Library, error) {
	providers, err := NewProviderChainFromConfig(cfg, deps)
	if err != nil {
		return nil, err
	}
	filters, err := filter.NewChainFromConfig(cfg.EnabledFilterSettings())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter chain")
	}
	return New(providers, filters, Options{
		KeepOrder: cfg.Library.KeepOrder,
		MaxTracks: cfg.Library.MaxTracks,
	}), nil
}

// ListTracks returns the playable tracks.
// Returns playback.ErrNoTracksAvailable when nothing survives filtering.
func (l *Library) ListTracks(ctx context.Context) ([]track.Track, error) {
	candidates, err := l.providers.Tracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load library")
	}

	accepted, rejected := l.filters.Apply(ctx, candidates)
	if len(rejected) > 0 {
		zlog.Info().Msgf("library: filtered tracks: candidates=%d accepted=%d rejected=%v",
			len(candidates), len(accepted), rejected)
	}

	if len(accepted) == 0 {
		return nil, playback.ErrNoTracksAvailable
	}

	if !l.options.KeepOrder {
		l.shuffle(accepted)
	}
	if l.options.MaxTracks > 0 && len(accepted) > l.options.MaxTracks {
		accepted = accepted[:l.options.MaxTracks]
	}
	return accepted, nil
}

// Catalog returns the playable tracks as a playlist.
func (l *Library) Catalog(ctx context.Context) (*playlist.Playlist, error) {
	tracks, err := l.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	return &playlist.Playlist{
		Name:     l.Name(),
		LoadedAt: time.Now(),
		Tracks:   tracks,
	}, nil
}

// Name returns the provider display names joined with " + ".
func (l *Library) Name() string {
	return strings.Join(l.providers.DisplayNames(), " + ")
}

// Filters returns the filter chain in use.
func (l *Library) Filters() *filter.Chain {
	return l.filters
}
