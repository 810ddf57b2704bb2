// Package playback is the control-thread side of the player: it owns the
// track queue, hands opened streams to the engine, and mirrors what the
// engine reports for the UI.
package playback

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/decomposer/internal/engine"
	"github.com/llehouerou/decomposer/internal/errmsg"
	"github.com/llehouerou/decomposer/internal/playlist"
	"github.com/llehouerou/decomposer/internal/stream"
)

// BufferingCooldown is how many ticks the buffering indicator stays on after
// the last Buffering report.
const BufferingCooldown = 30

// Volume bounds.
const (
	MinVolume = 0
	MaxVolume = 2
)

// NowPlaying describes the selected track. It never holds the stream handle,
// which belongs to the engine once sent.
type NowPlaying struct {
	Track    playlist.Track
	Seq      uint64
	Playhead int
	Info     stream.Info
	Playing  bool
}

// Progress returns the playhead as a fraction of the track length.
func (n NowPlaying) Progress() float64 {
	if n.Info.NumFrames <= 0 {
		return 0
	}
	return min(float64(n.Playhead)/float64(n.Info.NumFrames), 1)
}

// Position returns the playhead as time, or 0 without a time base.
func (n NowPlaying) Position() time.Duration {
	if n.Info.TimeBase == nil {
		return 0
	}
	return n.Info.TimeBase.Duration(n.Playhead)
}

// Duration returns the track length, or 0 without a time base.
func (n NowPlaying) Duration() time.Duration {
	if n.Info.TimeBase == nil {
		return 0
	}
	return n.Info.TimeBase.Duration(n.Info.NumFrames)
}

// ProgressText formats the position as "m:ss/m:ss", or "xx:xx/xx:xx" when
// the stream has no time base.
func (n NowPlaying) ProgressText() string {
	if n.Info.TimeBase == nil {
		return "xx:xx/xx:xx"
	}
	return formatTime(n.Position()) + "/" + formatTime(n.Duration())
}

func formatTime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Describer fills descriptive fields of a track before it is shown.
type Describer func(playlist.Track) playlist.Track

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDescriber sets the function used to fill track metadata on advance.
func WithDescriber(d Describer) Option {
	return func(c *Coordinator) { c.describe = d }
}

// Coordinator drives the engine from the control thread. It is not safe for
// concurrent use; call it from the UI loop only.
type Coordinator struct {
	ctl      engine.Controller
	queue    *playlist.Queue
	open     Opener
	describe Describer

	now       *NowPlaying // nil when stopped
	seq       uint64
	buffering int
	volume    float32
	looping   bool

	subs []*Subscription
	log  zerolog.Logger
}

// NewCoordinator creates a stopped coordinator. The engine behind ctl starts
// at unit volume with looping off, and so does the coordinator.
func NewCoordinator(ctl engine.Controller, q *playlist.Queue, open Opener, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		ctl:    ctl,
		queue:  q,
		open:   open,
		volume: 1,
		log:    log.With().Str("component", "playback").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Queue returns the track queue.
func (c *Coordinator) Queue() *playlist.Queue { return c.queue }

// NowPlaying returns the selected track, or false when stopped.
func (c *Coordinator) NowPlaying() (NowPlaying, bool) {
	if c.now == nil {
		return NowPlaying{}, false
	}
	return *c.now, true
}

// State returns the playback state.
func (c *Coordinator) State() State { return stateOf(c.now) }

// Buffering reports whether the engine ran dry recently.
func (c *Coordinator) Buffering() bool { return c.buffering > 0 }

// Volume returns the last volume sent to the engine.
func (c *Coordinator) Volume() float32 { return c.volume }

// Looping returns the last looping flag sent to the engine.
func (c *Coordinator) Looping() bool { return c.looping }

// Advance pops tracks until one opens and hands it to the engine. Tracks that
// fail to open or seek are logged and dropped. It returns false and stops
// playback when the queue runs out.
func (c *Coordinator) Advance() bool {
	return c.advance(false)
}

func (c *Coordinator) advance(engineStopped bool) bool {
	prevState := c.State()
	var prev *playlist.Track
	if c.now != nil {
		t := c.now.Track
		prev = &t
	}

	for {
		tr, ok := c.queue.PopFront()
		if !ok {
			break
		}

		s, err := c.open(tr.Path)
		if err != nil {
			c.skip(errmsg.OpTrackOpen, tr.Path, err)
			continue
		}
		// priming is best effort; a cold cache only delays the first reads
		_, _ = s.Cache(0, 0)
		if err := s.Seek(0, stream.SeekAuto); err != nil {
			_ = s.Close()
			c.skip(errmsg.OpTrackSeek, tr.Path, err)
			continue
		}

		c.seq++
		info := s.Info()
		if !c.ctl.Send(engine.StartNewTrack(s, c.seq)) {
			_ = s.Close()
			c.log.Warn().Str("path", tr.Path).Msg("engine queue full, track dropped")
			break
		}

		if c.describe != nil {
			tr = c.describe(tr)
		}
		if info.TimeBase != nil {
			tr.Duration = info.TimeBase.Duration(info.NumFrames)
		}
		c.now = &NowPlaying{Track: tr, Seq: c.seq, Info: info, Playing: true}
		c.log.Info().Str("path", tr.Path).Uint64("seq", c.seq).Int("frames", info.NumFrames).Msg("track started")

		current := c.now.Track
		c.notify(func(s *Subscription) { s.sendTrack(TrackChange{Previous: prev, Current: &current}) })
		c.notifyState(prevState)
		return true
	}

	if c.now != nil && !engineStopped && !c.ctl.Send(engine.Stop()) {
		c.log.Warn().Str("path", c.now.Track.Path).Msg("engine queue full, still playing")
		return false
	}
	c.now = nil
	c.notifyState(prevState)
	return false
}

func (c *Coordinator) skip(op errmsg.Op, path string, err error) {
	c.log.Error().Err(err).Str("path", path).Str("op", string(op)).Msg("skipping track")
	e := ErrorEvent{Operation: op, Path: path, Err: err}
	c.notify(func(s *Subscription) { s.sendError(e) })
}

// Update applies every status the engine has reported since the last call.
func (c *Coordinator) Update() {
	for {
		st, ok := c.ctl.Poll()
		if !ok {
			return
		}
		c.handle(st)
	}
}

func (c *Coordinator) handle(st engine.Status) {
	switch st.Kind {
	case engine.StatusBuffering:
		if c.current(st) {
			c.buffering = BufferingCooldown
		}
	case engine.StatusPlayheadPos:
		if c.now == nil {
			c.log.Warn().Int("frame", st.Frame).Uint64("seq", st.Seq).Msg("playhead report while stopped")
			return
		}
		if c.current(st) {
			c.now.Playhead = st.Frame
		}
	case engine.StatusFinishedTrack:
		if c.current(st) {
			c.advance(true)
		}
	case engine.StatusStop:
		if c.current(st) {
			prev := c.State()
			c.now = nil
			c.notifyState(prev)
		}
	}
}

// current reports whether st belongs to the selected track.
func (c *Coordinator) current(st engine.Status) bool {
	if c.now == nil || c.now.Seq != st.Seq {
		c.log.Debug().Stringer("kind", st.Kind).Uint64("seq", st.Seq).Msg("stale status ignored")
		return false
	}
	return true
}

// Tick advances the buffering indicator by one UI frame.
func (c *Coordinator) Tick() {
	if c.buffering > 0 {
		c.buffering--
	}
}

// Toggle starts the queue when stopped and flips pause otherwise.
func (c *Coordinator) Toggle() {
	switch {
	case c.now == nil:
		c.Advance()
	case c.now.Playing:
		c.Pause()
	default:
		c.Resume()
	}
}

// Pause pauses the selected track.
func (c *Coordinator) Pause() {
	if c.now == nil || !c.now.Playing {
		return
	}
	if c.ctl.Send(engine.Pause()) {
		c.now.Playing = false
		c.notifyState(StatePlaying)
	}
}

// Resume resumes the selected track.
func (c *Coordinator) Resume() {
	if c.now == nil || c.now.Playing {
		return
	}
	if c.ctl.Send(engine.Resume()) {
		c.now.Playing = true
		c.notifyState(StatePaused)
	}
}

// Stop releases the selected track. The queue is left as is. Nothing
// changes when the engine queue is full.
func (c *Coordinator) Stop() {
	if c.now == nil {
		return
	}
	prev := c.State()
	if !c.ctl.Send(engine.Stop()) {
		c.log.Warn().Str("path", c.now.Track.Path).Msg("engine queue full, stop dropped")
		return
	}
	c.now = nil
	c.notifyState(prev)
}

// Next skips to the next queued track.
func (c *Coordinator) Next() bool {
	return c.Advance()
}

// SeekTo moves the playhead of the selected track to frame.
func (c *Coordinator) SeekTo(frame int) {
	if c.now == nil {
		return
	}
	frame = max(frame, 0)
	if c.ctl.Send(engine.SeekTo(frame)) {
		c.now.Playhead = min(frame, c.now.Info.NumFrames)
	}
}

// SeekFraction seeks to a fraction in [0, 1] of the track, as when clicking
// on a progress bar.
func (c *Coordinator) SeekFraction(f float64) {
	if c.now == nil {
		return
	}
	f = min(max(f, 0), 1)
	c.SeekTo(int(f * float64(c.now.Info.NumFrames)))
}

// SeekBy moves the playhead by d, which may be negative.
func (c *Coordinator) SeekBy(d time.Duration) {
	if c.now == nil || c.now.Info.SampleRate <= 0 {
		return
	}
	delta := int(d.Seconds() * float64(c.now.Info.SampleRate))
	c.SeekTo(c.now.Playhead + delta)
}

// SetVolume clamps v to [MinVolume, MaxVolume] and sends it to the engine if
// it changed. It reports whether a message was sent.
func (c *Coordinator) SetVolume(v float32) bool {
	v = min(max(v, MinVolume), MaxVolume)
	if v == c.volume {
		return false
	}
	if !c.ctl.Send(engine.SetVolume(v)) {
		return false
	}
	c.volume = v
	return true
}

// SetLooping sends the looping flag to the engine if it changed.
func (c *Coordinator) SetLooping(on bool) bool {
	if on == c.looping {
		return false
	}
	if !c.ctl.Send(engine.SetLooping(on)) {
		return false
	}
	c.looping = on
	return true
}

// Subscribe returns a new event subscription.
func (c *Coordinator) Subscribe() *Subscription {
	s := newSubscription()
	c.subs = append(c.subs, s)
	return s
}

// Close stops playback and ends all subscriptions.
func (c *Coordinator) Close() {
	c.Stop()
	for _, s := range c.subs {
		s.close()
	}
	c.subs = nil
}

func (c *Coordinator) notify(fn func(*Subscription)) {
	for _, s := range c.subs {
		fn(s)
	}
}

func (c *Coordinator) notifyState(prev State) {
	cur := c.State()
	if cur == prev {
		return
	}
	c.notify(func(s *Subscription) { s.sendState(StateChange{Previous: prev, Current: cur}) })
}
