package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseConfig returns a defaulted local-backend configuration.
func baseConfig(t *testing.T) Config {
	t.Helper()
	cfg := Config{
		Library: LibraryConfig{
			Providers: []ProviderConfig{
				{Type: "directory", DisplayName: "My Music", Settings: map[string]any{"root": "/music"}},
			},
		},
	}
	require.NoError(t, defaults.Set(&cfg))
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid local config",
			modify: func(c *Config) {},
		},
		{
			name: "valid spotify config",
			modify: func(c *Config) {
				c.Playback.Backend = BackendSpotify
				c.Spotify.ClientID = "test-client-id"
				c.Spotify.ClientSecret = "test-client-secret"
				c.Spotify.RefreshToken = "test-refresh-token"
			},
		},
		{
			name: "missing providers",
			modify: func(c *Config) {
				c.Library.Providers = nil
			},
			wantErr: true,
			errMsg:  "Providers",
		},
		{
			name: "provider without display name",
			modify: func(c *Config) {
				c.Library.Providers[0].DisplayName = ""
			},
			wantErr: true,
			errMsg:  "DisplayName",
		},
		{
			name: "unknown backend",
			modify: func(c *Config) {
				c.Playback.Backend = "cassette"
			},
			wantErr: true,
			errMsg:  "Backend",
		},
		{
			name: "spotify backend without credentials",
			modify: func(c *Config) {
				c.Playback.Backend = BackendSpotify
				c.Spotify.ClientID = "test-client-id"
			},
			wantErr: true,
			errMsg:  "refresh_token",
		},
		{
			name: "spotify playlist provider without credentials",
			modify: func(c *Config) {
				c.Library.Providers = append(c.Library.Providers, ProviderConfig{
					Type: "spotify_playlist", DisplayName: "Hits", Settings: map[string]any{"playlist_url": "x"},
				})
			},
			wantErr: true,
			errMsg:  "spotify",
		},
		{
			name: "invalid market length",
			modify: func(c *Config) {
				c.Spotify.Market = "JAPAN"
			},
			wantErr: true,
			errMsg:  "Market",
		},
		{
			name: "tick interval too small",
			modify: func(c *Config) {
				c.Playback.TickIntervalMs = 10
			},
			wantErr: true,
			errMsg:  "TickIntervalMs",
		},
		{
			name: "position timeout too small",
			modify: func(c *Config) {
				c.Playback.PositionTimeoutMs = 1
			},
			wantErr: true,
			errMsg:  "PositionTimeoutMs",
		},
		{
			name: "non-positive segment",
			modify: func(c *Config) {
				c.Playback.SegmentsSec = []float64{1, 0}
			},
			wantErr: true,
			errMsg:  "SegmentsSec",
		},
		{
			name: "too many segments for number keys",
			modify: func(c *Config) {
				c.Playback.SegmentsSec = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
			},
			wantErr: true,
			errMsg:  "SegmentsSec",
		},
		{
			name: "piper without model",
			modify: func(c *Config) {
				c.Speech.Engine = EnginePiper
			},
			wantErr: true,
			errMsg:  "piper.model",
		},
		{
			name: "lastfm enabled without key",
			modify: func(c *Config) {
				c.Artwork.LastFM.Enabled = true
			},
			wantErr: true,
			errMsg:  "api_key",
		},
		{
			name: "lastfm tag provider without key",
			modify: func(c *Config) {
				c.Playback.Backend = BackendSpotify
				c.Spotify.ClientID = "test-client-id"
				c.Spotify.ClientSecret = "test-client-secret"
				c.Spotify.RefreshToken = "test-refresh-token"
				c.Library.Providers = []ProviderConfig{
					{Type: "lastfm_tag", DisplayName: "Shoegaze", Settings: map[string]any{"tags": []any{"shoegaze"}}},
				}
			},
			wantErr: true,
			errMsg:  "lastfm_tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t)
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
library:
  providers:
    - type: spotify_playlist
      display_name: Hits
      settings:
        playlist_url: https://open.spotify.com/playlist/abc
filters:
  duration_limit_filter:
    enabled: true
    settings:
      min_seconds: 45
  market_filter:
    enabled: true
playback:
  backend: spotify
  segments_sec: [1, 2.5, 15]
spotify:
  client_id: file-id
  client_secret: file-secret
  refresh_token: file-token
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("LASTFM_API_KEY", "env-lastfm")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
	assert.Equal(t, "file-secret", cfg.Spotify.ClientSecret)
	assert.Equal(t, "env-lastfm", cfg.Artwork.LastFM.APIKey)
	assert.Equal(t, "JP", cfg.Spotify.Market)
	assert.Equal(t, 200*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, time.Second, cfg.PositionTimeout())
	assert.Equal(t, 5*time.Second, cfg.CallTimeout())
	assert.Equal(t, []time.Duration{time.Second, 2500 * time.Millisecond, 15 * time.Second}, cfg.Segments())
	assert.Equal(t, EngineNone, cfg.Speech.Engine)
	assert.Equal(t, 30, cfg.Playback.DuckPercent)
	assert.False(t, cfg.Library.KeepOrder)
	assert.True(t, cfg.NeedsSpotify())

	filters := cfg.EnabledFilterSettings()
	require.Len(t, filters, 2)
	assert.Equal(t, 45, filters["duration_limit_filter"]["min_seconds"])
	assert.Equal(t, "JP", filters["market_filter"]["market"])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("library: ["), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := baseConfig(t)

	assert.Equal(t, BackendLocal, cfg.Playback.Backend)
	assert.Equal(t, []float64{1, 2, 5, 10, 30}, cfg.Playback.SegmentsSec)
	assert.Equal(t, 44100, cfg.Playback.SampleRate)
	assert.Equal(t, "piper", cfg.Speech.Piper.Binary)
	assert.Equal(t, "en", cfg.Speech.GTTS.Language)
	assert.Equal(t, 5.0, cfg.Artwork.LastFM.RequestsPerSecond)
	assert.False(t, cfg.NeedsSpotify())
}

func TestConfig_IsFilterEnabled(t *testing.T) {
	cfg := &Config{
		Filters: map[string]FilterConfig{
			"duplicate_track_filter": {Enabled: true},
			"market_filter":          {Enabled: false},
		},
	}

	assert.True(t, cfg.IsFilterEnabled("duplicate_track_filter"))
	assert.False(t, cfg.IsFilterEnabled("market_filter"))
	assert.False(t, cfg.IsFilterEnabled("missing"))
	assert.Len(t, cfg.EnabledFilterSettings(), 1)
}

func TestSegmentLabel(t *testing.T) {
	assert.Equal(t, "1s", SegmentLabel(time.Second))
	assert.Equal(t, "2.5s", SegmentLabel(2500*time.Millisecond))
	assert.Equal(t, "30s", SegmentLabel(30*time.Second))
}
