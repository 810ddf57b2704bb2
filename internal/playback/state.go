package playback

// State is the playback state as the control side sees it.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

// stateOf derives the state from the selected track.
func stateOf(now *NowPlaying) State {
	switch {
	case now == nil:
		return StateStopped
	case now.Playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive reports whether a track is selected, playing or paused.
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// Symbol is the glyph shown in front of the track title.
func (s State) Symbol() string {
	switch s {
	case StatePlaying:
		return "▶"
	case StatePaused:
		return "⏸"
	default:
		return "■"
	}
}
