// Package speech speaks announcements: text is synthesized to PCM by an
// external engine and played on a sink.
package speech

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
)

// maxTextSize bounds the text handed to an engine.
const maxTextSize = 1000

// Engine converts text to signed 16-bit little-endian mono PCM.
type Engine interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	SampleRate() int
	Name() string
}

func validateText(text string) error {
	if text == "" {
		return errors.New("text cannot be empty")
	}
	if len(text) > maxTextSize {
		return errors.Newf("text too long: %d characters (max %d)", len(text), maxTextSize)
	}
	return nil
}

// runCommand runs name with stdin pre-filled and returns stdout.
// On timeout the process is interrupted, then killed.
func runCommand(ctx context.Context, timeout time.Duration, stdin io.Reader, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", name)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, errors.Wrapf(err, "%s failed, stderr: %s", name, stderr.String())
		}

	case <-ctx.Done():
		cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			cmd.Process.Kill()
			<-done
		}
		return nil, errors.Wrapf(ctx.Err(), "%s timed out after %s", name, timeout)
	}

	if stdout.Len() == 0 {
		return nil, errors.Newf("%s produced no output, stderr: %s", name, stderr.String())
	}
	return stdout.Bytes(), nil
}
