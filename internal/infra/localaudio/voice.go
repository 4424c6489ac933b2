package localaudio

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
)

// pcmStreamer streams signed 16-bit little-endian mono PCM.
type pcmStreamer struct {
	pcm []byte
	pos int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) && p.pos+1 < len(p.pcm) {
		v := float64(int16(binary.LittleEndian.Uint16(p.pcm[p.pos:]))) / 32768
		samples[n] = [2]float64{v, v}
		p.pos += 2
		n++
	}
	return n, n > 0
}

func (p *pcmStreamer) Err() error {
	return nil
}

// PlayPCM mixes s16le mono PCM over the music on the voice channel.
// The returned channel is closed when the clip has played or ctx is done.
func (d *Device) PlayPCM(ctx context.Context, pcm []byte, sampleRate int) (<-chan struct{}, error) {
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate %d", sampleRate)
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, errors.New("device is closed")
	}

	done := make(chan struct{})
	clip := &pcmStreamer{pcm: pcm}
	voice := d.wrap(clip, beep.Format{SampleRate: beep.SampleRate(sampleRate), NumChannels: 1, Precision: 2})

	d.lock()
	d.mixer.Add(beep.Seq(voice, beep.Callback(func() {
		close(done)
	})))
	d.unlock()

	go func() {
		select {
		case <-done:
		case <-ctx.Done():
			// Exhaust the clip; the mixer drops it on its next pull
			d.lock()
			clip.pos = len(clip.pcm)
			d.unlock()
		}
	}()

	return done, nil
}
