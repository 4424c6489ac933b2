package speech

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script standing in for a real binary.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRunCommand(t *testing.T) {
	ctx := context.Background()

	out, err := runCommand(ctx, time.Second, strings.NewReader("hello"), "sh", "-c", "cat")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	_, err = runCommand(ctx, time.Second, strings.NewReader(""), "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")

	_, err = runCommand(ctx, time.Second, strings.NewReader(""), "sh", "-c", "true")
	assert.Error(t, err, "empty output")

	_, err = runCommand(ctx, 50*time.Millisecond, strings.NewReader(""), "sleep", "5")
	assert.Error(t, err)

	_, err = runCommand(ctx, time.Second, nil, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestValidateText(t *testing.T) {
	assert.Error(t, validateText(""))
	assert.Error(t, validateText(strings.Repeat("a", maxTextSize+1)))
	assert.NoError(t, validateText("Song by Band"))
}

func TestPiperEngine(t *testing.T) {
	model := filepath.Join(t.TempDir(), "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o644))

	// Echoes its arguments and stdin so both can be checked
	piper := writeScript(t, "piper", `echo "$@"; cat`)

	e, err := NewPiperEngine(PiperConfig{Binary: piper, Model: model, Speaker: 2})
	require.NoError(t, err)
	assert.Equal(t, 22050, e.SampleRate())
	assert.Equal(t, "piper", e.Name())

	out, err := e.Synthesize(context.Background(), "Song by Band")
	require.NoError(t, err)
	assert.Contains(t, string(out), "--model "+model+" --output-raw --speaker 2")
	assert.Contains(t, string(out), "Song by Band")

	_, err = NewPiperEngine(PiperConfig{Model: filepath.Join(t.TempDir(), "missing.onnx")})
	assert.Error(t, err)
	_, err = NewPiperEngine(PiperConfig{})
	assert.Error(t, err)
}

func TestGTTSEngine(t *testing.T) {
	gtts := writeScript(t, "gtts-cli", `printf 'MP3:%s:%s' "$1" "$3"`)
	ffmpeg := writeScript(t, "ffmpeg", `cat`)

	e := NewGTTSEngine(GTTSConfig{Binary: gtts, FFmpeg: ffmpeg, Language: "ja", RequestsPerMinute: 600})
	assert.Equal(t, 44100, e.SampleRate())
	assert.Equal(t, "gtts", e.Name())

	out, err := e.Synthesize(context.Background(), "Song by Band")
	require.NoError(t, err)
	assert.Equal(t, "MP3:Song by Band:ja", string(out))

	_, err = e.Synthesize(context.Background(), "")
	assert.Error(t, err)
}
