package lastfm

import (
	"context"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// maxArtworkBytes bounds downloaded cover images.
const maxArtworkBytes = 8 << 20

// ErrNoArtwork is returned when Last.fm has no album image for a track.
var ErrNoArtwork = errors.New("no artwork found")

// ArtworkResolver looks up album art for tracks that carry none.
type ArtworkResolver struct {
	client     *Client
	httpClient *http.Client
}

// NewArtworkResolver creates a resolver using the given client.
func NewArtworkResolver(client *Client) *ArtworkResolver {
	return &ArtworkResolver{
		client:     client,
		httpClient: client.httpClient,
	}
}

// Resolve returns the track's own artwork if present, otherwise the Last.fm album image.
// The image bytes are downloaded so renderers need no network access.
func (r *ArtworkResolver) Resolve(ctx context.Context, t track.Track) (*track.Artwork, error) {
	if t.HasArtwork() {
		return t.Artwork, nil
	}
	if len(t.Artists) == 0 || t.Title == "" {
		return nil, ErrNoArtwork
	}

	info, err := r.client.GetTrackInfo(ctx, t.Title, t.MainArtist())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up %q", t.Announcement())
	}
	if info.ImageURL == "" {
		return nil, ErrNoArtwork
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.ImageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to download artwork")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("artwork download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read artwork")
	}

	zlog.Debug().Msgf("resolved artwork: track=%s url=%s bytes=%d", t.ID, info.ImageURL, len(data))

	return &track.Artwork{
		MIMEType: resp.Header.Get("Content-Type"),
		Data:     data,
		URL:      info.ImageURL,
	}, nil
}
