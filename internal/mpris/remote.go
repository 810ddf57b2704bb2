// Package mpris exposes the player on D-Bus so desktop media keys and
// applets can control it. The D-Bus side never touches playback directly:
// it queues Commands for the UI loop and answers queries from the last
// published Snapshot.
package mpris

import (
	"time"

	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
)

const commandBufferSize = 16

// CommandKind identifies a remote request.
type CommandKind uint8

const (
	CmdToggle CommandKind = iota + 1
	CmdPlay
	CmdPause
	CmdStop
	CmdNext
	CmdSeekBy
	CmdSeekTo
	CmdSetVolume
	CmdSetLooping
)

// Command is a remote request for the UI loop to apply.
type Command struct {
	Kind    CommandKind
	Offset  time.Duration // CmdSeekBy, CmdSeekTo
	Volume  float64       // CmdSetVolume
	Looping bool          // CmdSetLooping
}

// Snapshot is the player state answered to remote queries.
type Snapshot struct {
	State    playback.State
	Track    playlist.Track // zero when stopped
	Position time.Duration
	Length   time.Duration
	Volume   float64
	Looping  bool
	Queued   int
}

// commandQueue is the non-blocking buffer between D-Bus and the UI loop.
type commandQueue chan Command

func newCommandQueue() commandQueue {
	return make(commandQueue, commandBufferSize)
}

// push queues c, dropping it when the UI loop is behind.
func (q commandQueue) push(c Command) {
	select {
	case q <- c:
	default:
	}
}
