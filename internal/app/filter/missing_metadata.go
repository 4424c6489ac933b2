package filter

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// MissingMetadataConfig represents the configuration for MissingMetadataFilter.
type MissingMetadataConfig struct {
	RequireTitle  bool `yaml:"require_title" mapstructure:"require_title" default:"true"`
	RequireArtist bool `yaml:"require_artist" mapstructure:"require_artist" default:"true"`
}

// MissingMetadataFilter rejects local files whose tags cannot be revealed.
type MissingMetadataFilter struct {
	config MissingMetadataConfig
}

// NewMissingMetadataFilter creates a filter requiring both title and artist.
func NewMissingMetadataFilter() *MissingMetadataFilter {
	return &MissingMetadataFilter{
		config: MissingMetadataConfig{RequireTitle: true, RequireArtist: true},
	}
}

func (f *MissingMetadataFilter) Name() string {
	return "missing_metadata_filter"
}

func (f *MissingMetadataFilter) Description() string {
	return "Rejects local files without a title or artist tag"
}

func (f *MissingMetadataFilter) ReturnCodes() []string {
	return []string{"missing_title", "missing_artist"}
}

func (f *MissingMetadataFilter) ValidateConfig(settings map[string]any) error {
	var config MissingMetadataConfig
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	f.config = config
	return nil
}

func (f *MissingMetadataFilter) AppliesTo(source track.Source) bool {
	// Spotify metadata is always present
	return source == track.SourceLocal
}

func (f *MissingMetadataFilter) Check(ctx context.Context, t track.Track, accepted []track.Track) Result {
	if f.config.RequireTitle && strings.TrimSpace(t.Title) == "" {
		return Reject("missing_title")
	}
	if f.config.RequireArtist && t.DisplayArtist() == track.Unknown {
		return Reject("missing_artist")
	}
	return Accept()
}

func init() {
	Register("missing_metadata_filter", func() Filter {
		return NewMissingMetadataFilter()
	})
}
