package localaudio

import "github.com/gopxl/beep/v2"

// deck is the music channel's source slot. It plays silence while empty
// or after its source ends, so the mixer never drops it.
type deck struct {
	source beep.Streamer
}

func (d *deck) Stream(samples [][2]float64) (n int, ok bool) {
	if d.source != nil {
		n, ok = d.source.Stream(samples)
		if !ok {
			d.source = nil
		}
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (d *deck) Err() error {
	return nil
}
