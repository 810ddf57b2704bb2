package playback

import (
	"github.com/llehouerou/decomposer/internal/errmsg"
	"github.com/llehouerou/decomposer/internal/playlist"
)

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when a new track is handed to the engine.
//
// Emitted by:
//   - Advance: on startup, on Toggle from Stopped, on Next
//   - Update: when the engine reports the end of the current track
//
// Previous is nil when nothing was selected before. Current is never nil.
type TrackChange struct {
	Previous *playlist.Track
	Current  *playlist.Track
}

// ErrorEvent is emitted when a queued track is skipped.
type ErrorEvent struct {
	Operation errmsg.Op
	Path      string
	Err       error
}

// Message formats the error for display.
func (e ErrorEvent) Message() string {
	return errmsg.FormatWith(e.Operation, e.Path, e.Err)
}
