package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/decomposer/internal/engine"
	"github.com/llehouerou/decomposer/internal/mpris"
	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
	"github.com/llehouerou/decomposer/internal/state"
	"github.com/llehouerou/decomposer/internal/stream"
)

// stubStream is a ready track of a fixed length that is never read.
type stubStream struct {
	frames   int
	playhead int
	closed   bool
}

func (s *stubStream) IsReady() bool { return true }

func (s *stubStream) Read(int) (*stream.ReadData, error) { return nil, stream.ErrEndOfFile }

func (s *stubStream) Seek(frame int, _ stream.SeekMode) error {
	s.playhead = frame
	return nil
}

func (s *stubStream) Cache(int, int) (bool, error) { return false, nil }

func (s *stubStream) Playhead() int { return s.playhead }

func (s *stubStream) Close() error {
	s.closed = true
	return nil
}

func (s *stubStream) Info() stream.Info {
	return stream.Info{
		NumFrames:   s.frames,
		NumChannels: 2,
		SampleRate:  44100,
		TimeBase:    &stream.TimeBase{Numer: 1, Denom: 44100},
	}
}

type fakeStore struct {
	settings []state.Settings
	queue    []state.QueueTrack
}

func (f *fakeStore) SaveSettings(s state.Settings) { f.settings = append(f.settings, s) }

func (f *fakeStore) SaveQueue(tracks []state.QueueTrack) error {
	f.queue = tracks
	return nil
}

func newTestModel(t *testing.T, paths ...string) (Model, *fakeStore, tea.Model) {
	t.Helper()
	_, ctl := engine.New(zerolog.Nop())

	var tracks []playlist.Track
	for _, p := range paths {
		tracks = append(tracks, playlist.NewTrack(p))
	}
	open := func(path string) (playback.Stream, error) {
		if strings.HasPrefix(path, "bad") {
			return nil, errors.New("unsupported format")
		}
		return &stubStream{frames: 44100 * 60}, nil
	}
	c := playback.NewCoordinator(ctl, playlist.NewQueue(tracks...), open, zerolog.Nop())
	store := &fakeStore{}
	m := New(Deps{
		Coordinator: c,
		Store:       store,
		Stream:      stream.Options{NumCaches: 1, NumCacheBlocks: 2, BlockFrames: 1024, PrefetchBlocks: 2},
		Log:         zerolog.Nop(),
	})
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return m, store, sized
}

func press(t *testing.T, m tea.Model, keys ...string) tea.Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestSpaceStartsQueueWhenStopped(t *testing.T) {
	base, _, m := newTestModel(t, "a.flac", "b.flac")

	m = press(t, m, " ")

	now, ok := base.coord.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, "a.flac", now.Track.Path)
	assert.Equal(t, playback.StatePlaying, base.coord.State())
	assert.Equal(t, 1, base.coord.Queue().Len())

	press(t, m, " ")
	assert.Equal(t, playback.StatePaused, base.coord.State())
}

func TestVolumeKeysClampAndSave(t *testing.T) {
	base, store, m := newTestModel(t)

	m = press(t, m, "+", "+")
	assert.InDelta(t, 1.10, base.coord.Volume(), 1e-6)
	require.Len(t, store.settings, 2)
	assert.InDelta(t, 1.10, store.settings[1].Volume, 1e-6)

	for range 40 {
		m = press(t, m, "+")
	}
	assert.InDelta(t, playback.MaxVolume, base.coord.Volume(), 1e-6)

	saved := len(store.settings)
	press(t, m, "+")
	assert.Len(t, store.settings, saved, "no save when volume is unchanged")
}

func TestLoopKeyTogglesAndSaves(t *testing.T) {
	base, store, m := newTestModel(t)

	m = press(t, m, "L")
	assert.True(t, base.coord.Looping())
	press(t, m, "L")
	assert.False(t, base.coord.Looping())

	require.Len(t, store.settings, 2)
	assert.True(t, store.settings[0].Looping)
	assert.False(t, store.settings[1].Looping)
}

func TestQueueEditing(t *testing.T) {
	base, _, m := newTestModel(t, "a.mp3", "b.mp3", "c.mp3")

	m = press(t, m, "J") // a moves down
	assert.Equal(t, []string{"b.mp3", "a.mp3", "c.mp3"}, queuePaths(base))

	m = press(t, m, "d") // cursor follows a
	assert.Equal(t, []string{"b.mp3", "c.mp3"}, queuePaths(base))

	m = press(t, m, "down", "down", "down", "d")
	assert.Equal(t, []string{"b.mp3"}, queuePaths(base), "cursor clamps to the last row")

	m = press(t, m, "d", "d")
	assert.Empty(t, queuePaths(base))
	_ = m
}

func queuePaths(m Model) []string {
	var out []string
	for _, tr := range m.coord.Queue().Tracks() {
		out = append(out, tr.Path)
	}
	return out
}

func TestSkippedTrackErrorShownAfterTick(t *testing.T) {
	base, _, m := newTestModel(t, "bad.xyz", "good.wav")

	m = press(t, m, " ")
	m, _ = m.Update(TickMsg{})

	view := m.View()
	assert.Contains(t, view, "bad.xyz")
	assert.Contains(t, view, "Failed to open track")
	now, ok := base.coord.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, "good.wav", now.Track.Path)
}

func TestStderrLineShown(t *testing.T) {
	_, ctl := engine.New(zerolog.Nop())
	c := playback.NewCoordinator(ctl, playlist.NewQueue(), nil, zerolog.Nop())
	lines := make(chan string, 1)
	lines <- "ALSA underrun occurred"
	var m tea.Model = New(Deps{Coordinator: c, Stderr: lines, Log: zerolog.Nop()})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})

	m, _ = m.Update(TickMsg{})

	assert.Contains(t, m.View(), "ALSA underrun occurred")
}

func TestViewShowsPlayerBar(t *testing.T) {
	_, _, m := newTestModel(t, "/music/song.flac", "/music/next.flac")

	stopped := m.View()
	assert.Contains(t, stopped, "Stopped")
	assert.Contains(t, stopped, "Queue (2 tracks)")
	assert.Contains(t, stopped, "vol 100%")

	m = press(t, m, " ")
	playing := m.View()
	assert.Contains(t, playing, playback.StatePlaying.Symbol()+" song")
	assert.Contains(t, playing, "0:00/1:00")
	assert.Contains(t, playing, "next")
}

func TestMouseClickOnProgressBarSeeks(t *testing.T) {
	base, _, m := newTestModel(t, "a.flac")
	m = press(t, m, " ")

	now, ok := base.coord.NowPlaying()
	require.True(t, ok)
	g := base.withSize(80, 20).barGeometry(now)

	m, _ = m.Update(tea.MouseMsg{
		X:      g.x + g.width/2,
		Y:      g.row,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
	})

	now, _ = base.coord.NowPlaying()
	assert.InDelta(t, 0.5, now.Progress(), 0.05)

	// clicks elsewhere do nothing
	m.Update(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	after, _ := base.coord.NowPlaying()
	assert.Equal(t, now.Playhead, after.Playhead)
}

func (m Model) withSize(w, h int) Model {
	m.width, m.height = w, h
	return m
}

func TestQuitSavesQueueWithCurrentTrackFirst(t *testing.T) {
	base, store, m := newTestModel(t, "a.flac", "b.flac", "c.flac")
	m = press(t, m, " ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	require.Len(t, store.queue, 3)
	assert.Equal(t, "a.flac", store.queue[0].Path)
	assert.Equal(t, "c.flac", store.queue[2].Path)
	assert.Equal(t, playback.StateStopped, base.coord.State())
}

func TestFromQueueTrack(t *testing.T) {
	tr := FromQueueTrack(state.QueueTrack{Path: "/x.ogg", Title: "X", Artist: "Y", Album: "Z"})
	assert.Equal(t, playlist.Track{Path: "/x.ogg", Title: "X", Artist: "Y", Album: "Z"}, tr)
	assert.Equal(t, "Y - X", tr.DisplayName())
}

func TestTagDescriber_MissingFileKeepsTrack(t *testing.T) {
	d := TagDescriber(zerolog.Nop())
	in := playlist.Track{Path: "/does/not/exist.mp3", Title: "Saved"}
	assert.Equal(t, in, d(in))
}

type fakeRemote struct {
	cmds chan mpris.Command
	last mpris.Snapshot
}

func (f *fakeRemote) Commands() <-chan mpris.Command { return f.cmds }

func (f *fakeRemote) Publish(s mpris.Snapshot) { f.last = s }

type fakeAnnouncer struct {
	tracks  []string
	skipped []string
	cleared int
}

func (f *fakeAnnouncer) Track(t playlist.Track) error {
	f.tracks = append(f.tracks, t.Path)
	return nil
}

func (f *fakeAnnouncer) Skipped(e playback.ErrorEvent) error {
	f.skipped = append(f.skipped, e.Path)
	return nil
}

func (f *fakeAnnouncer) Clear() error {
	f.cleared++
	return nil
}

func newRemoteModel(t *testing.T, paths ...string) (*playback.Coordinator, *fakeRemote, *fakeAnnouncer, tea.Model) {
	t.Helper()
	_, ctl := engine.New(zerolog.Nop())
	var tracks []playlist.Track
	for _, p := range paths {
		tracks = append(tracks, playlist.NewTrack(p))
	}
	open := func(path string) (playback.Stream, error) {
		if strings.HasPrefix(path, "bad") {
			return nil, errors.New("unsupported format")
		}
		return &stubStream{frames: 44100 * 10}, nil
	}
	c := playback.NewCoordinator(ctl, playlist.NewQueue(tracks...), open, zerolog.Nop())
	r := &fakeRemote{cmds: make(chan mpris.Command, 8)}
	a := &fakeAnnouncer{}
	var m tea.Model = New(Deps{Coordinator: c, Remote: r, Announcer: a, Log: zerolog.Nop()})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return c, r, a, m
}

func TestRemoteCommandsAppliedOnTick(t *testing.T) {
	c, r, _, m := newRemoteModel(t, "a.flac", "b.flac")

	r.cmds <- mpris.Command{Kind: mpris.CmdPlay}
	r.cmds <- mpris.Command{Kind: mpris.CmdPlay} // already playing
	r.cmds <- mpris.Command{Kind: mpris.CmdSeekTo, Offset: 2 * time.Second}
	r.cmds <- mpris.Command{Kind: mpris.CmdSetVolume, Volume: 0.42}
	r.cmds <- mpris.Command{Kind: mpris.CmdSetLooping, Looping: true}
	m, _ = m.Update(TickMsg{})

	now, ok := c.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, "a.flac", now.Track.Path)
	assert.Equal(t, playback.StatePlaying, c.State())
	assert.Equal(t, 88200, now.Playhead)
	assert.InDelta(t, 0.42, c.Volume(), 1e-6)
	assert.True(t, c.Looping())

	assert.Equal(t, playback.StatePlaying, r.last.State)
	assert.Equal(t, "a.flac", r.last.Track.Path)
	assert.Equal(t, 2*time.Second, r.last.Position)
	assert.Equal(t, 10*time.Second, r.last.Length)
	assert.Equal(t, 1, r.last.Queued)

	r.cmds <- mpris.Command{Kind: mpris.CmdPause}
	m, _ = m.Update(TickMsg{})
	assert.Equal(t, playback.StatePaused, c.State())

	r.cmds <- mpris.Command{Kind: mpris.CmdStop}
	m.Update(TickMsg{})
	assert.Equal(t, playback.StateStopped, c.State())
	assert.Equal(t, playback.StateStopped, r.last.State)
}

func TestAnnouncerSeesTrackChangesAndSkips(t *testing.T) {
	_, _, a, m := newRemoteModel(t, "bad.xyz", "good.flac")

	m = press(t, m, " ")
	m.Update(TickMsg{})

	assert.Equal(t, []string{"bad.xyz"}, a.skipped)
	assert.Equal(t, []string{"good.flac"}, a.tracks)
}

func TestHelpListsBindings(t *testing.T) {
	_, _, m := newTestModel(t, "a.flac")

	m = press(t, m, "?")
	out := m.View()

	assert.Contains(t, out, "space")
	assert.Contains(t, out, "Toggle looping")

	m = press(t, m, "?")
	assert.NotContains(t, m.View(), "Toggle looping")
}

func TestAnnouncementClearedOnStopAndQuit(t *testing.T) {
	_, _, a, m := newRemoteModel(t, "a.flac", "b.flac")

	m = press(t, m, " ")
	m, _ = m.Update(TickMsg{})
	assert.Equal(t, 0, a.cleared)

	m = press(t, m, "s")
	m, _ = m.Update(TickMsg{})
	assert.Equal(t, 1, a.cleared)

	press(t, m, "q")
	assert.Equal(t, 2, a.cleared)
}
