// Package app is the terminal UI. It is the control thread of the player:
// every tick it drains the engine's reports through the coordinator and
// redraws the player bar and queue.
package app

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/llehouerou/decomposer/internal/keymap"
	"github.com/llehouerou/decomposer/internal/mpris"
	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
	"github.com/llehouerou/decomposer/internal/state"
	"github.com/llehouerou/decomposer/internal/stream"
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.05
)

// Store persists what the user changes. *state.Manager implements it.
type Store interface {
	SaveSettings(s state.Settings)
	SaveQueue(tracks []state.QueueTrack) error
}

// Remote is an external controller such as the MPRIS adapter.
type Remote interface {
	Commands() <-chan mpris.Command
	Publish(s mpris.Snapshot)
}

// Announcer tells the desktop about track changes. *notify.NowPlaying
// implements it.
type Announcer interface {
	Track(t playlist.Track) error
	Skipped(e playback.ErrorEvent) error
	// Clear withdraws the now-playing announcement.
	Clear() error
}

// Deps are the collaborators of the UI model. Optional ones may be nil.
type Deps struct {
	Coordinator *playback.Coordinator
	Store       Store
	Remote      Remote
	Announcer   Announcer
	Stream      stream.Options
	Stderr      <-chan string
	Log         zerolog.Logger
}

// Model is the bubbletea model.
type Model struct {
	coord     *playback.Coordinator
	keys      *keymap.Resolver
	store     Store
	remote    Remote
	announcer Announcer
	sub       *playback.Subscription
	stderr    <-chan string
	cache     uint64 // bytes of sample memory per opened track

	spinner  spinner.Model
	progress progress.Model

	width    int
	height   int
	cursor   int
	offset   int
	showHelp bool
	status   string // last error or captured stderr line
	quitting bool

	log zerolog.Logger
}

// New creates the UI model.
func New(d Deps) Model {
	opts := d.Stream
	blocks := opts.NumCacheBlocks*max(opts.NumCaches, 1) + opts.PrefetchBlocks
	return Model{
		coord:     d.Coordinator,
		keys:      keymap.NewResolver(keymap.All),
		store:     d.Store,
		remote:    d.Remote,
		announcer: d.Announcer,
		sub:       d.Coordinator.Subscribe(),
		stderr:    d.Stderr,
		cache:     uint64(max(blocks, 0)) * uint64(max(opts.BlockFrames, 0)) * 2 * 4,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		log:       d.Log.With().Str("component", "app").Logger(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()
		return m, nil

	case TickMsg:
		m.applyRemote()
		m.coord.Update()
		m.coord.Tick()
		m.drainEvents()
		m.publish()
		m.clampCursor()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.coord
	switch m.keys.Resolve(msg.String()) {
	case keymap.ActionQuit:
		m.quit()
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
	case keymap.ActionPlayPause:
		c.Toggle()
	case keymap.ActionNextTrack:
		c.Next()
	case keymap.ActionStop:
		c.Stop()
	case keymap.ActionSeekBack:
		c.SeekBy(-seekStep)
	case keymap.ActionSeekForward:
		c.SeekBy(seekStep)
	case keymap.ActionRestart:
		c.SeekTo(0)
	case keymap.ActionVolumeUp:
		m.setVolume(c.Volume() + volumeStep)
	case keymap.ActionVolumeDown:
		m.setVolume(c.Volume() - volumeStep)
	case keymap.ActionToggleLooping:
		if c.SetLooping(!c.Looping()) {
			m.saveSettings()
		}
	case keymap.ActionMoveDown:
		m.cursor++
	case keymap.ActionMoveUp:
		m.cursor--
	case keymap.ActionMoveItemDown:
		if c.Queue().Move(m.cursor, m.cursor+1) {
			m.cursor++
		}
	case keymap.ActionMoveItemUp:
		if c.Queue().Move(m.cursor, m.cursor-1) {
			m.cursor--
		}
	case keymap.ActionDelete:
		c.Queue().Remove(m.cursor)
	}
	m.clampCursor()
	return m, nil
}

// handleMouse seeks when the progress bar is clicked.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	now, ok := m.coord.NowPlaying()
	if !ok {
		return
	}
	g := m.barGeometry(now)
	if msg.Y != g.row || msg.X < g.x || msg.X >= g.x+g.width {
		return
	}
	m.coord.SeekFraction(float64(msg.X-g.x) / float64(g.width))
}

func (m *Model) setVolume(v float32) {
	// round to the step so repeated presses land on whole percents
	v = float32(int(v*100+0.5)) / 100
	if m.coord.SetVolume(v) {
		m.saveSettings()
	}
}

func (m *Model) saveSettings() {
	if m.store == nil {
		return
	}
	m.store.SaveSettings(state.Settings{
		Volume:  float64(m.coord.Volume()),
		Looping: m.coord.Looping(),
	})
}

// drainEvents applies coordinator events and captured stderr lines without
// blocking.
func (m *Model) drainEvents() {
	for {
		select {
		case e := <-m.sub.Error:
			m.status = e.Message()
			m.announce(func(a Announcer) error { return a.Skipped(e) })
		case e := <-m.sub.TrackChanged:
			if e.Current != nil {
				t := *e.Current
				m.log.Debug().Str("path", t.Path).Msg("now playing")
				m.announce(func(a Announcer) error { return a.Track(t) })
			}
		case e := <-m.sub.StateChanged:
			if e.Current == playback.StateStopped {
				m.announce(Announcer.Clear)
			}
		case line, ok := <-m.stderr:
			if !ok {
				m.stderr = nil
				continue
			}
			m.status = line
		default:
			return
		}
	}
}

func (m *Model) announce(fn func(Announcer) error) {
	if m.announcer == nil {
		return
	}
	if err := fn(m.announcer); err != nil {
		m.log.Debug().Err(err).Msg("desktop notification failed")
	}
}

// applyRemote applies the requests queued by the remote since the last tick.
func (m *Model) applyRemote() {
	if m.remote == nil {
		return
	}
	c := m.coord
	for {
		select {
		case cmd := <-m.remote.Commands():
			switch cmd.Kind {
			case mpris.CmdToggle:
				c.Toggle()
			case mpris.CmdPlay:
				if c.State() == playback.StatePlaying {
					continue
				}
				c.Toggle()
			case mpris.CmdPause:
				c.Pause()
			case mpris.CmdStop:
				c.Stop()
			case mpris.CmdNext:
				c.Next()
			case mpris.CmdSeekBy:
				c.SeekBy(cmd.Offset)
			case mpris.CmdSeekTo:
				if now, ok := c.NowPlaying(); ok && now.Info.SampleRate > 0 {
					c.SeekTo(int(cmd.Offset.Seconds() * float64(now.Info.SampleRate)))
				}
			case mpris.CmdSetVolume:
				m.setVolume(float32(cmd.Volume))
			case mpris.CmdSetLooping:
				if c.SetLooping(cmd.Looping) {
					m.saveSettings()
				}
			}
		default:
			return
		}
	}
}

// publish hands the current state to the remote.
func (m *Model) publish() {
	if m.remote == nil {
		return
	}
	snap := mpris.Snapshot{
		State:   m.coord.State(),
		Volume:  float64(m.coord.Volume()),
		Looping: m.coord.Looping(),
		Queued:  m.coord.Queue().Len(),
	}
	if now, ok := m.coord.NowPlaying(); ok {
		snap.Track = now.Track
		snap.Position = now.Position()
		snap.Length = now.Duration()
	}
	m.remote.Publish(snap)
}

// quit saves the remaining queue, with the current track first so it
// restarts on resume, and stops playback.
func (m *Model) quit() {
	if m.quitting {
		return
	}
	m.quitting = true

	if m.store != nil {
		var saved []state.QueueTrack
		if now, ok := m.coord.NowPlaying(); ok {
			saved = append(saved, queueTrack(now.Track))
		}
		for _, t := range m.coord.Queue().Tracks() {
			saved = append(saved, queueTrack(t))
		}
		if err := m.store.SaveQueue(saved); err != nil {
			m.log.Error().Err(err).Msg("saving queue failed")
		}
	}
	m.coord.Close()
	m.announce(Announcer.Clear)
}

func (m *Model) clampCursor() {
	n := m.coord.Queue().Len()
	m.cursor = min(max(m.cursor, 0), max(n-1, 0))

	rows := m.queueRows()
	if rows <= 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	m.offset = min(m.offset, max(n-rows, 0))
}
