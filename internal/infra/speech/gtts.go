package speech

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

const (
	gttsTimeout   = 30 * time.Second
	ffmpegTimeout = 15 * time.Second
	gttsRate      = 44100
)

// GTTSConfig configures the gtts-cli engine.
type GTTSConfig struct {
	Binary            string
	FFmpeg            string
	Language          string
	RequestsPerMinute int
}

// GTTSEngine synthesizes speech with Google Translate TTS via gtts-cli,
// converting its MP3 output to PCM with ffmpeg.
type GTTSEngine struct {
	config  GTTSConfig
	limiter *rate.Limiter
}

// NewGTTSEngine creates a gtts engine.
func NewGTTSEngine(config GTTSConfig) *GTTSEngine {
	if config.Binary == "" {
		config.Binary = "gtts-cli"
	}
	if config.FFmpeg == "" {
		config.FFmpeg = "ffmpeg"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 30
	}

	return &GTTSEngine{
		config:  config,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}
}

// Synthesize fetches MP3 speech and decodes it to 44.1kHz mono PCM.
func (e *GTTSEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait cancelled")
	}

	mp3Data, err := runCommand(ctx, gttsTimeout, bytes.NewReader(nil),
		e.config.Binary, text, "-l", e.config.Language, "-o", "-")
	if err != nil {
		return nil, errors.Wrap(err, "mp3 generation failed")
	}

	pcm, err := runCommand(ctx, ffmpegTimeout, bytes.NewReader(mp3Data),
		e.config.FFmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(gttsRate),
		"-ac", "1",
		"pipe:1",
	)
	if err != nil {
		return nil, errors.Wrap(err, "mp3 to pcm conversion failed")
	}
	return pcm, nil
}

func (e *GTTSEngine) SampleRate() int {
	return gttsRate
}

func (e *GTTSEngine) Name() string {
	return "gtts"
}
