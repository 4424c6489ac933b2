// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	// Cache for tag tracks
	tagTracksCache map[string][]TopTrack
	// Cache for track info, nil entries are misses
	trackInfoCache map[string]*TrackInfo

	// Mutex for cache access
	cacheMu sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey            string
	RequestsPerSecond float64 // 0 means unlimited
}

// TopTrack represents a top track for a tag.
type TopTrack struct {
	Name   string
	Artist string
}

// TrackInfo represents the track.getInfo fields we use.
type TrackInfo struct {
	Name     string
	Artist   string
	Album    string
	ImageURL string // Largest album image, empty if none
}

// GetTopTracksResponse represents the response from tag.getTopTracks API.
type GetTopTracksResponse struct {
	Tracks struct {
		Track []struct {
			Name   string `json:"name"`
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"track"`
	} `json:"tracks"`
}

// GetInfoResponse represents the response from track.getInfo API.
type GetInfoResponse struct {
	Track struct {
		Name   string `json:"name"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album struct {
			Title string  `json:"title"`
			Image []image `json:"image"`
		} `json:"album"`
	} `json:"track"`
}

type image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// imageSizes orders Last.fm image sizes from smallest to largest.
var imageSizes = map[string]int{
	"small":      1,
	"medium":     2,
	"large":      3,
	"extralarge": 4,
	"mega":       5,
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        "https://ws.audioscrobbler.com/2.0/",
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		limiter:        rate.NewLimiter(limit, 1),
		tagTracksCache: make(map[string][]TopTrack),
		trackInfoCache: make(map[string]*TrackInfo),
	}, nil
}

// get calls an API method and returns the raw body, converting Last.fm error payloads.
func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		return nil, errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("last.fm API returned status %d", resp.StatusCode)
	}

	return body, nil
}

// GetTopTracks retrieves top tracks for a tag from Last.fm.
// Reference: https://www.last.fm/api/show/tag.getTopTracks
func (c *Client) GetTopTracks(ctx context.Context, tagName string, limit int) ([]TopTrack, error) {
	if tagName == "" {
		return nil, errors.New("tag name is required")
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	// Check cache first
	cacheKey := fmt.Sprintf("%s:%d", tagName, limit)
	c.cacheMu.RLock()
	if tracks, ok := c.tagTracksCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached top tracks for tag: %s", tagName)
		return tracks, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "tag.getTopTracks")
	params.Set("tag", tagName)
	params.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var response GetTopTracksResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	tracks := make([]TopTrack, 0, len(response.Tracks.Track))
	for _, t := range response.Tracks.Track {
		tracks = append(tracks, TopTrack{
			Name:   t.Name,
			Artist: t.Artist.Name,
		})
	}

	c.cacheMu.Lock()
	c.tagTracksCache[cacheKey] = tracks
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached top tracks for tag: %s (count: %d)", tagName, len(tracks))

	return tracks, nil
}

// GetTrackInfo retrieves track metadata including the largest album image.
// Reference: https://www.last.fm/api/show/track.getInfo
func (c *Client) GetTrackInfo(ctx context.Context, trackName, artistName string) (*TrackInfo, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track name and artist name are required")
	}

	cacheKey := strings.ToLower(artistName + "\x00" + trackName)
	c.cacheMu.RLock()
	if info, ok := c.trackInfoCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		return info, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "track.getInfo")
	params.Set("artist", artistName)
	params.Set("track", trackName)
	params.Set("autocorrect", "1")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var response GetInfoResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	info := &TrackInfo{
		Name:     response.Track.Name,
		Artist:   response.Track.Artist.Name,
		Album:    response.Track.Album.Title,
		ImageURL: largestImage(response.Track.Album.Image),
	}

	c.cacheMu.Lock()
	c.trackInfoCache[cacheKey] = info
	c.cacheMu.Unlock()

	return info, nil
}

// largestImage picks the biggest non-empty image URL.
func largestImage(images []image) string {
	best, bestSize := "", 0
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		if size := imageSizes[img.Size]; size >= bestSize {
			best, bestSize = img.URL, size
		}
	}
	return best
}
