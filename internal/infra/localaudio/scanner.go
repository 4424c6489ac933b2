package localaudio

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// Scanner finds audio files and reads their tags.
// Files are decoded once to measure their duration.
type Scanner struct{}

// NewScanner creates a scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan walks root and returns a track for every file with a matching extension.
// Files that cannot be decoded are skipped.
func (s *Scanner) Scan(ctx context.Context, root string, extensions []string) ([]track.Track, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve root")
	}

	var tracks []track.Track
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !slices.Contains(extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		t, err := s.readTrack(path)
		if err != nil {
			zlog.Warn().Msgf("skipping audio file: path=%s error=%v", path, err)
			return nil
		}
		tracks = append(tracks, t)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", root)
	}

	zlog.Info().Msgf("scanned directory: root=%s tracks=%d", root, len(tracks))
	return tracks, nil
}

func (s *Scanner) readTrack(path string) (track.Track, error) {
	stream, format, err := Decode(path)
	if err != nil {
		return track.Track{}, err
	}
	duration := format.SampleRate.D(stream.Len())
	stream.Close()

	t := track.Track{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String(),
		Duration: duration,
		Source:   track.SourceLocal,
		Path:     path,
	}

	f, err := os.Open(path)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to open audio file")
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Untagged files are kept; the metadata filter decides
		zlog.Debug().Msgf("no tags: path=%s error=%v", path, err)
		return t, nil
	}

	t.Title = strings.TrimSpace(m.Title())
	t.Album = strings.TrimSpace(m.Album())
	if artist := strings.TrimSpace(m.Artist()); artist != "" {
		t.Artists = []string{artist}
	} else if artist := strings.TrimSpace(m.AlbumArtist()); artist != "" {
		t.Artists = []string{artist}
	}
	if p := m.Picture(); p != nil && len(p.Data) > 0 {
		t.Artwork = &track.Artwork{MIMEType: p.MIMEType, Data: p.Data}
	}
	return t, nil
}
