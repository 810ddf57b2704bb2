package engine

import "github.com/llehouerou/decomposer/internal/rtqueue"

// Queue capacities for the two directions.
const (
	CommandQueueSize = 64
	StatusQueueSize  = 256
)

// MessageKind identifies a control message.
type MessageKind uint8

const (
	MsgStartNewTrack MessageKind = iota + 1
	MsgResume
	MsgPause
	MsgStop
	MsgSeekTo
	MsgSetLooping
	MsgSetVolume
)

func (k MessageKind) String() string {
	switch k {
	case MsgStartNewTrack:
		return "StartNewTrack"
	case MsgResume:
		return "Resume"
	case MsgPause:
		return "Pause"
	case MsgStop:
		return "Stop"
	case MsgSeekTo:
		return "SeekTo"
	case MsgSetLooping:
		return "SetLooping"
	case MsgSetVolume:
		return "SetVolume"
	default:
		return "Unknown"
	}
}

// Message is sent from the control thread to the engine. It is a plain value
// so that moving it through the ring never allocates. A StartNewTrack message
// carries the stream handle; the sender must not touch the handle afterwards.
type Message struct {
	Kind    MessageKind
	Stream  Stream
	Seq     uint64
	Frame   int
	Looping bool
	Volume  float32
}

func StartNewTrack(s Stream, seq uint64) Message {
	return Message{Kind: MsgStartNewTrack, Stream: s, Seq: seq}
}

func Resume() Message { return Message{Kind: MsgResume} }
func Pause() Message { return Message{Kind: MsgPause} }
func Stop() Message { return Message{Kind: MsgStop} }
func SeekTo(frame int) Message { return Message{Kind: MsgSeekTo, Frame: frame} }
func SetLooping(on bool) Message { return Message{Kind: MsgSetLooping, Looping: on} }
func SetVolume(v float32) Message { return Message{Kind: MsgSetVolume, Volume: v} }

// StatusKind identifies a report from the engine.
type StatusKind uint8

const (
	StatusFinishedTrack StatusKind = iota + 1
	StatusPlayheadPos
	StatusStop
	StatusBuffering
)

func (k StatusKind) String() string {
	switch k {
	case StatusFinishedTrack:
		return "FinishedTrack"
	case StatusPlayheadPos:
		return "PlayheadPos"
	case StatusStop:
		return "Stop"
	case StatusBuffering:
		return "Buffering"
	default:
		return "Unknown"
	}
}

// Status is sent from the engine to the control thread. Seq is the sequence
// number of the track that was active when the status was produced.
type Status struct {
	Kind  StatusKind
	Seq   uint64
	Frame int
}

// Controller is the control-thread end of the engine queues.
type Controller struct {
	Commands *rtqueue.Producer[Message]
	Statuses *rtqueue.Consumer[Status]
}

// Send pushes m without blocking and reports whether it was queued.
func (c Controller) Send(m Message) bool { return c.Commands.Push(m) }

// Poll pops the next status, if any.
func (c Controller) Poll() (Status, bool) { return c.Statuses.Pop() }
