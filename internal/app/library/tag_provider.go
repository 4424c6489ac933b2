package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

type TagProviderConfig struct {
	Tags         []string `yaml:"tags" mapstructure:"tags" validate:"required,min=1,dive,required"`
	TracksPerTag int      `yaml:"tracks_per_tag" mapstructure:"tracks_per_tag" default:"20" validate:"gte=1,lte=100"`
}

// TagProvider provides the Last.fm top tracks of some tags (e.g. "80s", "disco"),
// resolved to Spotify tracks by search.
type TagProvider struct {
	lastfm  LastFmClient
	spotify SpotifyClient

	// Cache for Spotify search results
	searchCache map[string]*track.Track
	cacheMutex  sync.RWMutex

	config *TagProviderConfig
}

// NewTagProvider creates a new TagProvider.
func NewTagProvider(lastfm LastFmClient, spotify SpotifyClient, settings map[string]any) (*TagProvider, error) {
	if lastfm == nil {
		return nil, errors.New("last.fm client is required")
	}
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}

	var config TagProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}

	return &TagProvider{
		lastfm:      lastfm,
		spotify:     spotify,
		searchCache: make(map[string]*track.Track),
		config:      &config,
	}, nil
}

// Tracks fetches each tag's top tracks concurrently and resolves them on Spotify.
// Tags that fail are skipped.
func (p *TagProvider) Tracks(ctx context.Context) ([]track.Track, error) {
	results := make([][]track.Track, len(p.config.Tags))
	var wg sync.WaitGroup

	for i, tagName := range p.config.Tags {
		wg.Add(1)
		go func(i int, tag string) {
			defer wg.Done()
			lfmTracks, err := p.lastfm.GetTopTracks(ctx, tag, p.config.TracksPerTag)
			if err != nil {
				zlog.Warn().Msgf("tag provider: failed to get top tracks: tag=%s error=%v", tag, err)
				return
			}

			for _, lfmTrack := range lfmTracks {
				if t := p.searchOnSpotify(ctx, lfmTrack.Name, lfmTrack.Artist); t != nil {
					results[i] = append(results[i], *t)
				}
			}
		}(i, tagName)
	}
	wg.Wait()

	// Keep tag order so the result does not depend on goroutine scheduling
	var tracks []track.Track
	for _, r := range results {
		tracks = append(tracks, r...)
	}
	if len(tracks) == 0 {
		return nil, errors.Newf("no tracks resolved for tags %v", p.config.Tags)
	}
	return tracks, nil
}

// searchOnSpotify searches for a track on Spotify with caching.
func (p *TagProvider) searchOnSpotify(ctx context.Context, trackName, artistName string) *track.Track {
	key := fmt.Sprintf("%s:%s", trackName, artistName)

	p.cacheMutex.RLock()
	if cached, ok := p.searchCache[key]; ok {
		p.cacheMutex.RUnlock()
		return cached
	}
	p.cacheMutex.RUnlock()

	var found *track.Track
	query := fmt.Sprintf("track:%s artist:%s", trackName, artistName)
	results, err := p.spotify.Search(ctx, query, 1)
	if err == nil && len(results) > 0 {
		found = &results[0]
	}

	// Cache nil too, to avoid repeated failed searches
	p.cacheMutex.Lock()
	p.searchCache[key] = found
	p.cacheMutex.Unlock()

	return found
}

// Name returns the provider name.
func (p *TagProvider) Name() string {
	return "lastfm_tag"
}
