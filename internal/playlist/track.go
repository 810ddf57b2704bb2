package playlist

import (
	"path/filepath"
	"strings"
	"time"
)

// Track is a file queued for playback. Descriptive fields are filled from
// tags when available and may be empty.
type Track struct {
	Path     string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// NewTrack creates a track for path with no metadata.
func NewTrack(path string) Track {
	return Track{Path: path}
}

// DisplayName returns "Artist - Title", the title alone, or the file name
// without extension when the track has no tags.
func (t Track) DisplayName() string {
	switch {
	case t.Title != "" && t.Artist != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	}
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
