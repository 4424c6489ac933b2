package speech

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const piperTimeout = 10 * time.Second

// PiperConfig configures the piper engine.
type PiperConfig struct {
	Binary     string
	Model      string
	Speaker    int
	SampleRate int // Must match the model
}

// PiperEngine synthesizes speech offline with piper, one process per utterance.
type PiperEngine struct {
	config PiperConfig
}

// NewPiperEngine creates a piper engine. The model file must exist.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if config.Model == "" {
		return nil, errors.New("piper model is required")
	}
	if _, err := os.Stat(config.Model); err != nil {
		return nil, errors.Wrap(err, "piper model not found")
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}
	return &PiperEngine{config: config}, nil
}

// Synthesize runs piper with raw output.
func (e *PiperEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	args := []string{
		"--model", e.config.Model,
		"--output-raw",
	}
	if e.config.Speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(e.config.Speaker))
	}

	// Stdin is filled before start so piper never sees an empty pipe
	pcm, err := runCommand(ctx, piperTimeout, strings.NewReader(text+"\n"), e.config.Binary, args...)
	if err != nil {
		return nil, errors.Wrap(err, "piper synthesis failed")
	}
	return pcm, nil
}

func (e *PiperEngine) SampleRate() int {
	return e.config.SampleRate
}

func (e *PiperEngine) Name() string {
	return "piper"
}
