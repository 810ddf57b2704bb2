// Package engine renders the active track into the audio output buffer.
//
// The Engine runs on the audio callback. It never blocks, never allocates
// and never panics on bad input: it drains control messages, pulls frames
// from the active stream, and reports progress through a status queue.
// Everything it owns (the stream handle, volume, looping flag) is changed
// only through messages.
package engine

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/llehouerou/decomposer/internal/rtqueue"
	"github.com/llehouerou/decomposer/internal/stream"
)

// OutputChannels is the interleaved channel count of the output buffer.
const OutputChannels = 2

// Stream is the decoder handle the engine reads from. *stream.ReadStream
// implements it.
type Stream interface {
	IsReady() bool
	Read(frames int) (*stream.ReadData, error)
	Seek(frame int, mode stream.SeekMode) error
	Playhead() int
	Info() stream.Info
	Close() error
}

// playingState is the engine's view of playback. A nil track means Stopped.
type playingState struct {
	track   Stream
	seq     uint64
	playing bool
}

// Engine owns the active stream on the audio thread.
type Engine struct {
	commands *rtqueue.Consumer[Message]
	statuses *rtqueue.Producer[Status]

	state   playingState
	volume  float32
	looping bool

	log zerolog.Logger
}

// New creates an engine in the Stopped state at unit volume, together with
// the control-thread end of its queues.
func New(log zerolog.Logger) (*Engine, Controller) {
	cmdTx, cmdRx := rtqueue.New[Message](CommandQueueSize)
	stTx, stRx := rtqueue.New[Status](StatusQueueSize)
	e := &Engine{
		commands: cmdRx,
		statuses: stTx,
		volume:   1,
		log:      log.With().Str("component", "engine").Logger(),
	}
	return e, Controller{Commands: cmdTx, Statuses: stRx}
}

// Process fills out, interleaved stereo, with the next frames of the active
// track. It is the whole body of the audio callback.
func (e *Engine) Process(out []float32) {
	e.drain()

	t := e.state.track
	if t == nil {
		clear(out)
		return
	}
	if !t.IsReady() {
		clear(out)
		e.emit(StatusBuffering, 0)
		return
	}
	if !e.state.playing {
		clear(out)
		return
	}

	start := t.Playhead()
	rest := e.render(t, out)
	clear(rest)

	if e.state.track != nil {
		if p := t.Playhead(); p != start {
			e.emit(StatusPlayheadPos, p)
		}
	}
}

// render writes frames into out and returns the part it did not fill.
func (e *Engine) render(t Stream, out []float32) []float32 {
	total := t.Info().NumFrames
	looped := false

	for len(out) >= OutputChannels {
		data, err := t.Read(len(out) / OutputChannels)
		if err != nil {
			if errors.Is(err, stream.ErrEndOfFile) {
				if e.looping && !looped {
					looped = true
					if t.Seek(0, stream.SeekAuto) == nil {
						continue
					}
				}
				e.finish()
				return out
			}
			e.log.Error().Err(err).Uint64("seq", e.state.seq).Msg("decode failed, stopping")
			e.dropTrack()
			return out
		}

		read := data.NumFrames()
		if read == 0 {
			return out
		}
		looped = false

		write := read
		mustLoop := false
		if e.looping {
			if over := t.Playhead() - total; over >= 0 {
				mustLoop = true
				write = max(read-over, 0)
			}
		}

		e.mix(out, data, write)

		if mustLoop {
			// a failed seek leaves the stream at the end; the next read
			// reports end of file
			_ = t.Seek(0, stream.SeekAuto)
		}
		out = out[write*OutputChannels:]
	}
	return out
}

// mix copies frames of data into out, mapping to two channels and applying
// the volume.
func (e *Engine) mix(out []float32, data *stream.ReadData, frames int) {
	if data.NumChannels() == 0 {
		clear(out[:frames*OutputChannels])
		return
	}
	l := data.Channel(0)[:frames]
	r := l
	if data.NumChannels() > 1 {
		r = data.Channel(1)[:frames]
	}
	v := e.volume
	for i := range frames {
		out[i*OutputChannels] = l[i] * v
		out[i*OutputChannels+1] = r[i] * v
	}
}

func (e *Engine) drain() {
	for {
		m, ok := e.commands.Pop()
		if !ok {
			return
		}
		e.apply(m)
	}
}

func (e *Engine) apply(m Message) {
	switch m.Kind {
	case MsgStartNewTrack:
		if m.Stream == nil {
			return
		}
		e.closeTrack()
		e.state = playingState{track: m.Stream, seq: m.Seq, playing: true}
	case MsgResume:
		if e.state.track != nil {
			e.state.playing = true
		}
	case MsgPause:
		if e.state.track != nil {
			e.state.playing = false
		}
	case MsgStop:
		seq := e.state.seq
		e.dropTrack()
		e.emitSeq(StatusStop, seq, 0)
	case MsgSeekTo:
		if e.state.track != nil {
			_ = e.state.track.Seek(max(m.Frame, 0), stream.SeekAuto)
		}
	case MsgSetLooping:
		e.looping = m.Looping
	case MsgSetVolume:
		e.volume = m.Volume
	}
}

// finish ends the track at end of file and tells the control thread.
func (e *Engine) finish() {
	seq := e.state.seq
	e.dropTrack()
	e.emitSeq(StatusFinishedTrack, seq, 0)
}

func (e *Engine) dropTrack() {
	e.closeTrack()
	e.state = playingState{seq: e.state.seq}
}

func (e *Engine) closeTrack() {
	if e.state.track != nil {
		_ = e.state.track.Close()
	}
}

func (e *Engine) emit(kind StatusKind, frame int) {
	e.emitSeq(kind, e.state.seq, frame)
}

// emitSeq pushes a status. A full queue drops it.
func (e *Engine) emitSeq(kind StatusKind, seq uint64, frame int) {
	e.statuses.Push(Status{Kind: kind, Seq: seq, Frame: frame})
}
