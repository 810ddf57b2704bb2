//go:build linux

package mpris

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/decomposer/internal/playback"
)

// Adapter serves the MPRIS interfaces on the session bus.
type Adapter struct {
	server *server.Server
	state  *shared
}

// shared is the state read by D-Bus handlers and written by the UI loop.
type shared struct {
	mu   sync.Mutex
	snap Snapshot
	cmds commandQueue
}

func (s *shared) get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// New creates and starts a new MPRIS adapter.
func New() (*Adapter, error) {
	st := &shared{cmds: newCommandQueue()}
	a := &Adapter{
		server: server.NewServer("decomposer", &rootAdapter{}, &playerAdapter{state: st}),
		state:  st,
	}

	// Start the server in background
	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Commands returns the queue of remote requests.
func (a *Adapter) Commands() <-chan Command { return a.state.cmds }

// Publish replaces the snapshot answered to remote queries.
func (a *Adapter) Publish(s Snapshot) {
	a.state.mu.Lock()
	a.state.snap = s
	a.state.mu.Unlock()
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Decomposer", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav", "audio/ogg", "audio/opus"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the loop
// status extension.
type playerAdapter struct {
	state *shared
}

func (p *playerAdapter) send(c Command) error {
	p.state.cmds.push(c)
	return nil
}

func (p *playerAdapter) Next() error { return p.send(Command{Kind: CmdNext}) }
func (p *playerAdapter) Previous() error { return nil } // the queue only moves forward
func (p *playerAdapter) Pause() error { return p.send(Command{Kind: CmdPause}) }
func (p *playerAdapter) PlayPause() error { return p.send(Command{Kind: CmdToggle}) }
func (p *playerAdapter) Stop() error { return p.send(Command{Kind: CmdStop}) }
func (p *playerAdapter) Play() error { return p.send(Command{Kind: CmdPlay}) }

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	return p.send(Command{Kind: CmdSeekBy, Offset: time.Duration(offset) * time.Microsecond})
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.send(Command{Kind: CmdSeekTo, Offset: time.Duration(position) * time.Microsecond})
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	return playbackStatus(p.state.get().State), nil
}

func playbackStatus(s playback.State) types.PlaybackStatus {
	switch s {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying
	case playback.StatePaused:
		return types.PlaybackStatusPaused
	case playback.StateStopped:
		return types.PlaybackStatusStopped
	}
	return types.PlaybackStatusStopped
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	return metadata(p.state.get()), nil
}

func metadata(s Snapshot) types.Metadata {
	if s.State == playback.StateStopped {
		return types.Metadata{}
	}
	t := s.Track
	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(t.Path)),
		Length:  types.Microseconds(s.Length.Microseconds()),
		Title:   t.DisplayName(),
		Album:   t.Album,
	}
	if t.Artist != "" {
		meta.Artist = []string{t.Artist}
	}
	if artPath := FindAlbumArt(t.Path); artPath != "" {
		meta.ArtUrl = "file://" + artPath
	}
	return meta
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.state.get().Volume, nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	return p.send(Command{Kind: CmdSetVolume, Volume: v})
}

func (p *playerAdapter) Position() (int64, error) {
	return p.state.get().Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.state.get().Queued > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	s := p.state.get()
	return s.State != playback.StateStopped || s.Queued > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.state.get().Looping {
		return types.LoopStatusTrack, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// Playlist looping is not supported and turns track looping off.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	return p.send(Command{Kind: CmdSetLooping, Looping: status == types.LoopStatusTrack})
}

func formatTrackID(path string) string {
	h := fnv.New64a()
	h.Write([]byte(path))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
