// Package output hosts the engine inside the platform audio callback.
package output

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"
)

// Renderer fills an interleaved stereo buffer. *engine.Engine implements it.
type Renderer interface {
	Process(out []float32)
}

// Streamer adapts a Renderer to beep. The conversion buffer is allocated
// once; longer requests are rendered in chunks.
type Streamer struct {
	r   Renderer
	buf []float32
}

// NewStreamer returns a Streamer that renders up to frames frames per call
// to the Renderer.
func NewStreamer(r Renderer, frames int) *Streamer {
	return &Streamer{r: r, buf: make([]float32, max(frames, 1)*2)}
}

// Stream always fills samples; silence comes from the Renderer.
func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	chunk := len(s.buf) / 2
	for done := 0; done < len(samples); done += chunk {
		dst := samples[done:min(done+chunk, len(samples))]
		buf := s.buf[:len(dst)*2]
		s.r.Process(buf)
		for i := range dst {
			dst[i][0] = float64(buf[2*i])
			dst[i][1] = float64(buf[2*i+1])
		}
	}
	return len(samples), true
}

func (s *Streamer) Err() error { return nil }

// Host owns the speaker while it plays a Renderer.
type Host struct {
	log zerolog.Logger
}

// Start opens the default output device at rate with a buffer of the given
// length and starts calling r from the device callback.
func Start(rate int, buffer time.Duration, r Renderer, log zerolog.Logger) (*Host, error) {
	sr := beep.SampleRate(rate)
	frames := sr.N(buffer)
	if err := speaker.Init(sr, frames); err != nil {
		return nil, fmt.Errorf("initialize speaker: %w", err)
	}
	speaker.Play(NewStreamer(r, frames))

	h := &Host{log: log.With().Str("component", "output").Logger()}
	h.log.Info().Int("rate", rate).Dur("buffer", buffer).Int("frames", frames).Msg("audio output started")
	return h, nil
}

// Close stops the callback and releases the device.
func (h *Host) Close() {
	speaker.Clear()
	speaker.Close()
	h.log.Info().Msg("audio output closed")
}
