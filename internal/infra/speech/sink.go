package speech

import (
	"bytes"
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/oto/v3"
	zlog "github.com/rs/zerolog/log"
)

// Sink plays s16le mono PCM. The returned channel is closed when playback ends.
type Sink interface {
	PlayPCM(ctx context.Context, pcm []byte, sampleRate int) (<-chan struct{}, error)
}

// OtoSink plays PCM on its own oto output, for backends without a local mixer.
type OtoSink struct {
	context    *oto.Context
	sampleRate int
}

// NewOtoSink opens an output at sampleRate. oto allows one context per process.
func NewOtoSink(sampleRate int) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create oto context")
	}
	<-ready

	return &OtoSink{context: ctx, sampleRate: sampleRate}, nil
}

// PlayPCM starts playback; cancelling ctx cuts the clip short.
func (s *OtoSink) PlayPCM(ctx context.Context, pcm []byte, sampleRate int) (<-chan struct{}, error) {
	if sampleRate != s.sampleRate {
		return nil, errors.Newf("sample rate %d does not match output rate %d", sampleRate, s.sampleRate)
	}

	// The player reads from pcm until it finishes, so pcm stays referenced
	player := s.context.NewPlayer(bytes.NewReader(pcm))
	player.Play()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		for player.IsPlaying() {
			select {
			case <-ctx.Done():
				player.Pause()
			case <-ticker.C:
			}
		}
		if err := player.Close(); err != nil {
			zlog.Warn().Msgf("failed to close oto player: %v", err)
		}
	}()
	return done, nil
}
