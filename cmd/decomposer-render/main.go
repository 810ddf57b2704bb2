// Command decomposer-render plays a track through the engine without an
// audio device and writes the output to a WAV file.
//
//	decomposer-render --in song.flac --out song.wav [--loop 2] [--volume 0.5] [--rate 48000]
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/decomposer/internal/engine"
	"github.com/llehouerou/decomposer/internal/errmsg"
	"github.com/llehouerou/decomposer/internal/logging"
	"github.com/llehouerou/decomposer/internal/stream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command. Logs go to the command's error stream.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "decomposer-render",
		Short:         "Render a track through the playback engine into a WAV file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			in, _ := flags.GetString("in")
			out, _ := flags.GetString("out")
			loops, _ := flags.GetInt("loop")
			volume, _ := flags.GetFloat32("volume")
			rate, _ := flags.GetInt("rate")
			level, _ := flags.GetString("log")

			if loops < 0 {
				return fmt.Errorf("--loop must not be negative, got %d", loops)
			}
			log := logging.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}, level)
			return render(in, out, loops, volume, rate, log)
		},
	}

	cmd.Flags().StringP("in", "i", "", "track to render")
	cmd.Flags().StringP("out", "o", "", "WAV file to write")
	cmd.Flags().IntP("loop", "l", 0, "extra passes over the track")
	cmd.Flags().Float32P("volume", "v", 1, "linear gain, 0 to 2")
	cmd.Flags().IntP("rate", "r", 0, "output sample rate (default: the track's)")
	cmd.Flags().String("log", "warn", "log level")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func render(in, out string, loops int, volume float32, rate int, log zerolog.Logger) error {
	s, err := stream.Open(in, stream.Options{OutputRate: rate}, &log)
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpTrackOpen, in, err))
	}
	info := s.Info()
	if rate == 0 {
		rate = info.SampleRate
	}

	// the cached start makes each loop seamless
	_, _ = s.Cache(0, 0)
	if err := s.Seek(0, stream.SeekAuto); err != nil {
		_ = s.Close()
		return errors.New(errmsg.FormatWith(errmsg.OpTrackSeek, in, err))
	}

	eng, ctl := engine.New(log)
	r := newRenderer(eng, ctl, info.NumFrames, loops)
	ctl.Send(engine.SetVolume(volume))
	ctl.Send(engine.SetLooping(loops > 0))
	ctl.Send(engine.StartNewTrack(s, 1))

	f, err := os.Create(out)
	if err != nil {
		_ = s.Close()
		return errors.New(errmsg.FormatWith(errmsg.OpRenderWrite, out, err))
	}
	defer f.Close()

	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: engine.OutputChannels, Precision: 2}
	if err := wav.Encode(f, r, format); err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpRenderWrite, out, err))
	}
	if r.err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpRenderWrite, in, r.err))
	}

	log.Info().Str("in", in).Str("out", out).Int("frames", r.written).Int("rate", rate).Msg("rendered")
	return nil
}

const (
	renderFrames = 4096
	bufferWait   = time.Millisecond
)

var errStopped = errors.New("playback stopped before the end of the track")

// renderer pulls frames from the engine the way the audio callback does.
// Only the frames the playhead moved over are written: a buffer rendered
// while the read-ahead lagged ends in silence, and that part is rendered
// again on the next call.
type renderer struct {
	eng       *engine.Engine
	ctl       engine.Controller
	buf       []float32
	trackLen  int
	remaining int
	loopsLeft int
	playhead  int
	written   int
	done      bool
	err       error
}

func newRenderer(eng *engine.Engine, ctl engine.Controller, trackLen, loops int) *renderer {
	return &renderer{
		eng:       eng,
		ctl:       ctl,
		buf:       make([]float32, renderFrames*engine.OutputChannels),
		trackLen:  trackLen,
		remaining: trackLen * (loops + 1),
		loopsLeft: loops,
	}
}

func (r *renderer) Stream(samples [][2]float64) (int, bool) {
	if r.done || r.remaining <= 0 {
		return 0, false
	}
	buf := r.buf[:min(len(samples), renderFrames)*engine.OutputChannels]

	var n int
	for n == 0 {
		r.eng.Process(buf)
		rep := r.poll()
		switch {
		case rep.buffering:
			time.Sleep(bufferWait)
		case rep.moved:
			n = r.advance(rep.playhead)
		case rep.finished:
			n = r.remaining
			r.done = true
		default:
			r.err = errStopped
			r.done = true
			return 0, false
		}
	}

	n = min(n, len(buf)/engine.OutputChannels, r.remaining)
	for i := range n {
		samples[i][0] = float64(buf[2*i])
		samples[i][1] = float64(buf[2*i+1])
	}
	r.remaining -= n
	r.written += n
	return n, true
}

// advance returns how many frames the playhead moved to reach p, counting
// a wrap to the start as one pass.
func (r *renderer) advance(p int) int {
	prev := r.playhead
	r.playhead = p
	if p >= prev {
		return p - prev
	}
	r.loopsLeft--
	if r.loopsLeft <= 0 {
		r.ctl.Send(engine.SetLooping(false))
	}
	return r.trackLen - prev + p
}

type report struct {
	buffering bool
	finished  bool
	moved     bool
	playhead  int
}

// poll reads the statuses of one Process call.
func (r *renderer) poll() report {
	var rep report
	for {
		st, ok := r.ctl.Poll()
		if !ok {
			return rep
		}
		switch st.Kind {
		case engine.StatusBuffering:
			rep.buffering = true
		case engine.StatusPlayheadPos:
			rep.moved = true
			rep.playhead = st.Frame
		case engine.StatusFinishedTrack:
			rep.finished = true
		case engine.StatusStop:
		}
	}
}

func (r *renderer) Err() error { return r.err }
