// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Playback backends.
const (
	BackendLocal   = "local"
	BackendSpotify = "spotify"
)

// Speech engines.
const (
	EnginePiper = "piper"
	EngineGTTS  = "gtts"
	EngineNone  = "none"
)

// Config represents the application configuration.
type Config struct {
	Library  LibraryConfig           `yaml:"library"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Playback PlaybackConfig          `yaml:"playback"`
	Speech   SpeechConfig            `yaml:"speech"`
	Artwork  ArtworkConfig           `yaml:"artwork"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
}

// LibraryConfig represents where tracks come from.
type LibraryConfig struct {
	KeepOrder bool             `yaml:"keep_order"`                  // Play in provider order instead of shuffling
	MaxTracks int              `yaml:"max_tracks" validate:"gte=0"` // 0 means no limit
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single track provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	Backend        string    `yaml:"backend" default:"local" validate:"oneof=local spotify"`
	TickIntervalMs    int       `yaml:"tick_interval_ms" default:"200" validate:"gte=50,lte=1000"`
	PositionTimeoutMs int       `yaml:"position_timeout_ms" default:"1000" validate:"gte=50,lte=10000"`
	CallTimeoutMs     int       `yaml:"call_timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
	SegmentsSec       []float64 `yaml:"segments_sec" default:"[1,2,5,10,30]" validate:"min=1,max=9,dive,gt=0"`
	DuckPercent       int       `yaml:"duck_percent" default:"30" validate:"gte=0,lte=100"`
	SampleRate        int       `yaml:"sample_rate" default:"44100" validate:"oneof=22050 44100 48000"`
}

// SpeechConfig represents the announcer configuration.
type SpeechConfig struct {
	Engine string      `yaml:"engine" default:"none" validate:"oneof=piper gtts none"`
	Piper  PiperConfig `yaml:"piper"`
	GTTS   GTTSConfig  `yaml:"gtts"`
}

// PiperConfig represents the piper engine configuration.
type PiperConfig struct {
	Binary     string `yaml:"binary" default:"piper"`
	Model      string `yaml:"model"`
	Speaker    int    `yaml:"speaker" validate:"gte=0"`
	SampleRate int    `yaml:"sample_rate" default:"22050" validate:"gt=0"`
}

// GTTSConfig represents the gtts-cli engine configuration.
type GTTSConfig struct {
	Binary            string `yaml:"binary" default:"gtts-cli"`
	FFmpeg            string `yaml:"ffmpeg" default:"ffmpeg"`
	Language          string `yaml:"language" default:"en"`
	RequestsPerMinute int    `yaml:"requests_per_minute" default:"30" validate:"gt=0"`
}

// ArtworkConfig represents cover art lookup configuration.
type ArtworkConfig struct {
	LastFM LastFMConfig `yaml:"lastfm"`
}

// LastFMConfig represents Last.fm API configuration.
type LastFMConfig struct {
	Enabled           bool    `yaml:"enabled"`
	APIKey            string  `yaml:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second" default:"5" validate:"gt=0"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
	DeviceID     string `yaml:"device_id"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("SPOTIFY_DEVICE_ID"); v != "" {
		c.Spotify.DeviceID = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.Artwork.LastFM.APIKey = v
	}
	if v := os.Getenv("PIPER_MODEL"); v != "" {
		c.Speech.Piper.Model = v
	}
	if v := os.Getenv("GUESSTHATSONG_BACKEND"); v != "" {
		c.Playback.Backend = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.NeedsSpotify() {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify client_id, client_secret and refresh_token are required for the spotify backend")
		}
	}

	if c.Speech.Engine == EnginePiper && c.Speech.Piper.Model == "" {
		return errors.New("speech.piper.model is required when engine is piper")
	}

	if c.Artwork.LastFM.Enabled && c.Artwork.LastFM.APIKey == "" {
		return errors.New("artwork.lastfm.api_key is required when lastfm artwork is enabled")
	}

	for _, p := range c.Library.Providers {
		if p.Type == "lastfm_tag" && c.Artwork.LastFM.APIKey == "" {
			return errors.New("artwork.lastfm.api_key is required by the lastfm_tag provider")
		}
	}

	return nil
}

// NeedsSpotify reports whether any part of the configuration talks to Spotify.
func (c *Config) NeedsSpotify() bool {
	if c.Playback.Backend == BackendSpotify {
		return true
	}
	for _, p := range c.Library.Providers {
		if p.Type == "spotify_playlist" || p.Type == "lastfm_tag" {
			return true
		}
	}
	return false
}

// TickInterval returns the playback polling interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Playback.TickIntervalMs) * time.Millisecond
}

// PositionTimeout returns the deadline of a single position read.
func (c *Config) PositionTimeout() time.Duration {
	return time.Duration(c.Playback.PositionTimeoutMs) * time.Millisecond
}

// CallTimeout returns the deadline of other playback device calls.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Playback.CallTimeoutMs) * time.Millisecond
}

// Segments returns the configured segment lengths.
func (c *Config) Segments() []time.Duration {
	segments := make([]time.Duration, len(c.Playback.SegmentsSec))
	for i, s := range c.Playback.SegmentsSec {
		segments[i] = time.Duration(s * float64(time.Second))
	}
	return segments
}

// SegmentLabel formats a segment length in seconds, e.g. "2.5s".
func SegmentLabel(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// EnabledFilterSettings returns the settings of enabled filters keyed by name.
// The market filter falls back to the Spotify market.
func (c *Config) EnabledFilterSettings() map[string]map[string]any {
	result := make(map[string]map[string]any)
	for name, f := range c.Filters {
		if !f.Enabled {
			continue
		}
		settings := make(map[string]any, len(f.Settings))
		for k, v := range f.Settings {
			settings[k] = v
		}
		if name == "market_filter" {
			if _, ok := settings["market"]; !ok {
				settings["market"] = c.Spotify.Market
			}
		}
		result[name] = settings
	}
	return result
}
