package library

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

type DirectoryProviderConfig struct {
	Root       string   `yaml:"root" mapstructure:"root" validate:"required"`
	Extensions []string `yaml:"extensions" mapstructure:"extensions" default:"[\".mp3\",\".flac\",\".wav\",\".ogg\"]" validate:"min=1,dive,startswith=."`
}

// DirectoryProvider provides the audio files found below a local directory.
type DirectoryProvider struct {
	scanner Scanner
	config  *DirectoryProviderConfig
}

// NewDirectoryProvider creates a new DirectoryProvider.
func NewDirectoryProvider(scanner Scanner, settings map[string]any) (*DirectoryProvider, error) {
	if scanner == nil {
		return nil, errors.New("scanner is required")
	}

	var config DirectoryProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	for i, ext := range config.Extensions {
		config.Extensions[i] = strings.ToLower(ext)
	}

	return &DirectoryProvider{
		scanner: scanner,
		config:  &config,
	}, nil
}

// Tracks scans the configured root.
func (p *DirectoryProvider) Tracks(ctx context.Context) ([]track.Track, error) {
	tracks, err := p.scanner.Scan(ctx, p.config.Root, p.config.Extensions)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", p.config.Root)
	}
	return tracks, nil
}

// Name returns the provider name.
func (p *DirectoryProvider) Name() string {
	return "directory"
}
