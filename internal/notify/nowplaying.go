package notify

import (
	"strings"

	"github.com/llehouerou/decomposer/internal/mpris"
	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
)

// NowPlaying keeps one desktop notification for the current track and
// replaces it on every change.
type NowPlaying struct {
	n       Notifier
	timeout int32
	lastID  uint32
}

// NewNowPlaying sends through n. timeout is in milliseconds, -1 for the
// server default.
func NewNowPlaying(n Notifier, timeout int32) *NowPlaying {
	return &NowPlaying{n: n, timeout: timeout}
}

// Track announces t, using album art next to the file as the icon.
func (p *NowPlaying) Track(t playlist.Track) error {
	return p.send(Notification{
		Title:   trackTitle(t),
		Body:    trackBody(t),
		Icon:      mpris.FindAlbumArt(t.Path),
		Urgency:   UrgencyLow,
		Transient: true,
	})
}

// Skipped reports a track that could not be played.
func (p *NowPlaying) Skipped(e playback.ErrorEvent) error {
	return p.send(Notification{
		Title:   "Skipped track",
		Body:    e.Message(),
		Icon:    "dialog-warning",
		Urgency: UrgencyNormal,
	})
}

// Clear withdraws the last notification, as when playback stops.
func (p *NowPlaying) Clear() error {
	if p.lastID == 0 {
		return nil
	}
	id := p.lastID
	p.lastID = 0
	return p.n.Close(id)
}

func (p *NowPlaying) send(n Notification) error {
	n.Timeout = p.timeout
	n.ReplacesID = p.lastID
	id, err := p.n.Notify(n)
	if err != nil {
		return err
	}
	p.lastID = id
	return nil
}

func trackTitle(t playlist.Track) string {
	if t.Title != "" {
		return t.Title
	}
	return t.DisplayName()
}

// trackBody is "Artist · Album", or whichever of them is set.
func trackBody(t playlist.Track) string {
	var parts []string
	if t.Artist != "" {
		parts = append(parts, t.Artist)
	}
	if t.Album != "" {
		parts = append(parts, t.Album)
	}
	return strings.Join(parts, " · ")
}
