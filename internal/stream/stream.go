// Package stream reads audio files through a background decoder so that the
// real-time side never waits on disk or codec work.
//
// A ReadStream is owned by one goroutine at a time. Its methods never block
// and never allocate; all buffers are allocated by Open. Decoding happens on
// a server goroutine that fills fixed-size blocks ahead of the playhead and
// hands them over through lock-free rings. Cache regions hold a pinned span
// of decoded audio (usually the start of the file) so that a seek into them
// is served immediately.
package stream

import (
	"fmt"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"

	"github.com/llehouerou/decomposer/internal/decoder"
	"github.com/llehouerou/decomposer/internal/rtqueue"
)

// requestSlack is how many control requests may be queued on top of block
// recycles.
const requestSlack = 16

type cacheState int

const (
	cacheEmpty cacheState = iota
	cacheFilling
	cacheReady
)

type cacheRegion struct {
	blocks []*block
	start  int
	frames int
	state  cacheState
}

// ReadStream is a handle to an opened file.
type ReadStream struct {
	info     Info
	prefetch int
	bf       int

	toServer   *rtqueue.Producer[request]
	fromServer *rtqueue.Consumer[*block]
	notices    *rtqueue.Consumer[cacheNotice]
	wake       chan struct{}
	done       chan struct{}
	closed     bool

	epoch    uint64
	playhead int
	cur      *block
	curOff   int

	caches    []cacheRegion
	active    int // cache region being read, -1 for the read-ahead
	activeOff int

	// read-ahead position of the current epoch
	streamStart int
	consumed    bool
	streamEOF   bool
	pending     error

	out *ReadData
}

// Open decodes path in the background and returns a handle positioned at
// frame 0. The handle is not ready until the first block is decoded.
func Open(path string, opts Options, log *zerolog.Logger) (*ReadStream, error) {
	src, format, err := decoder.Open(path)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	lg := zerolog.Nop()
	if log != nil {
		lg = *log
	}
	lg = lg.With().Str("component", "stream").Str("path", path).Logger()

	srcRate := format.SampleRate
	if srcRate <= 0 {
		_ = src.Close()
		return nil, fmt.Errorf("stream: invalid sample rate %d", srcRate)
	}
	outRate := srcRate
	if opts.OutputRate > 0 {
		outRate = beep.SampleRate(opts.OutputRate)
	}
	frames := src.Len()
	if outRate != srcRate {
		frames = int(int64(frames) * int64(outRate) / int64(srcRate))
	}
	channels := min(max(format.NumChannels, 1), 2)

	reqTx, reqRx := rtqueue.New[request](opts.PrefetchBlocks + requestSlack)
	blkTx, blkRx := rtqueue.New[*block](opts.PrefetchBlocks)
	noteTx, noteRx := rtqueue.New[cacheNotice](opts.NumCaches)

	s := &ReadStream{
		info: Info{
			NumFrames:   frames,
			NumChannels: channels,
			SampleRate:  int(outRate),
			TimeBase:    &TimeBase{Numer: 1, Denom: uint32(outRate)}, //nolint:gosec // rate is positive
		},
		prefetch:   opts.PrefetchBlocks,
		bf:         opts.BlockFrames,
		toServer:   reqTx,
		fromServer: blkRx,
		notices:    noteRx,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		caches:     make([]cacheRegion, opts.NumCaches),
		active:     -1,
		out:        NewReadData(channels, opts.BlockFrames),
	}

	srv := &server{
		src:      src,
		play:     src,
		srcRate:  srcRate,
		outRate:  outRate,
		channels: channels,
		frames:   frames,
		bf:       opts.BlockFrames,
		requests: reqRx,
		blocks:   blkTx,
		notices:  noteTx,
		wake:     s.wake,
		done:     s.done,
		scratch:  make([][2]float64, opts.BlockFrames),
		regions:  make([][]*block, opts.NumCaches),
		log:      lg,
	}
	for range opts.PrefetchBlocks {
		srv.free = append(srv.free, newBlock(channels, opts.BlockFrames))
	}
	for i := range s.caches {
		blocks := make([]*block, opts.NumCacheBlocks)
		for j := range blocks {
			blocks[j] = newBlock(channels, opts.BlockFrames)
		}
		s.caches[i].blocks = blocks
		srv.regions[i] = blocks
	}

	lg.Debug().
		Int("frames", frames).
		Int("channels", channels).
		Int("rate", int(outRate)).
		Int("source_rate", int(srcRate)).
		Msg("opened")

	go func() {
		srv.seek(0, 0)
		srv.run()
	}()
	return s, nil
}

// Info returns the stream format.
func (s *ReadStream) Info() Info { return s.info }

// Playhead returns the frame the next Read starts at.
func (s *ReadStream) Playhead() int { return s.playhead }

// IsReady reports whether Read can deliver data (or a definite end or error)
// without a cache miss.
func (s *ReadStream) IsReady() bool {
	if s.closed {
		return false
	}
	s.pollNotices()
	if s.pending != nil || s.streamEOF || s.playhead >= s.info.NumFrames {
		return true
	}
	if s.active >= 0 || s.cur != nil {
		return true
	}
	for {
		b, ok := s.fromServer.Peek()
		if !ok {
			return false
		}
		if b.epoch == s.epoch {
			return true
		}
		s.fromServer.Pop()
		s.recycle(b)
	}
}

// Read returns up to frames frames starting at the playhead and advances it.
// The result is only valid until the next call. Zero frames with a nil
// error means the decoder has not caught up yet. ErrEndOfFile is returned
// once there is nothing left.
func (s *ReadStream) Read(frames int) (*ReadData, error) {
	if s.closed {
		return nil, ErrClosed
	}
	s.pollNotices()
	s.out.reset()

	if s.pending != nil {
		return s.out, s.pending
	}
	if s.playhead >= s.info.NumFrames {
		return s.out, ErrEndOfFile
	}
	want := min(frames, s.out.Cap(), s.info.NumFrames-s.playhead)

	for s.out.frames < want {
		if s.active >= 0 {
			s.readCache(want - s.out.frames)
			continue
		}
		if s.cur == nil && !s.nextBlock() {
			break
		}
		b := s.cur
		if avail := b.frames - s.curOff; avail > 0 {
			n := min(avail, want-s.out.frames)
			s.out.appendFrom(b.data, s.curOff, n)
			s.curOff += n
			s.playhead += n
			s.consumed = true
			if s.curOff == b.frames && b.err == nil && !b.eof {
				s.dropCurrent()
			}
			continue
		}
		err, eof := b.err, b.eof
		s.dropCurrent()
		if err != nil {
			s.pending = err
			if s.out.frames > 0 {
				return s.out, nil
			}
			return s.out, err
		}
		if eof {
			s.streamEOF = true
			break
		}
	}

	if s.out.frames == 0 && s.streamEOF {
		return s.out, ErrEndOfFile
	}
	return s.out, nil
}

func (s *ReadStream) readCache(n int) {
	c := &s.caches[s.active]
	avail := c.frames - s.activeOff
	if avail <= 0 {
		s.active = -1
		return
	}
	n = min(n, avail)
	for n > 0 {
		b := c.blocks[s.activeOff/s.bf]
		off := s.activeOff % s.bf
		take := min(n, b.frames-off)
		if take <= 0 {
			s.active = -1
			return
		}
		s.out.appendFrom(b.data, off, take)
		s.activeOff += take
		s.playhead += take
		n -= take
	}
	if s.activeOff >= c.frames {
		s.active = -1
	}
}

// nextBlock takes the next block of the current epoch, recycling stale ones.
func (s *ReadStream) nextBlock() bool {
	for {
		b, ok := s.fromServer.Pop()
		if !ok {
			return false
		}
		if b.epoch != s.epoch {
			s.recycle(b)
			continue
		}
		s.cur = b
		s.curOff = 0
		return true
	}
}

func (s *ReadStream) dropCurrent() {
	s.recycle(s.cur)
	s.cur = nil
	s.curOff = 0
}

// recycle returns a block to the server. There is always room: Seek and
// Cache leave space for every block in circulation.
func (s *ReadStream) recycle(b *block) {
	s.toServer.Push(request{kind: reqRecycle, blk: b})
	s.wakeServer()
}

func (s *ReadStream) wakeServer() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *ReadStream) canRequest() bool {
	return s.toServer.Free() > s.prefetch
}

func (s *ReadStream) pollNotices() {
	for {
		n, ok := s.notices.Pop()
		if !ok {
			return
		}
		c := &s.caches[n.region]
		if n.err != nil && n.frames == 0 {
			c.state = cacheEmpty
			c.frames = 0
			continue
		}
		c.start = n.start
		c.frames = n.frames
		c.state = cacheReady
	}
}

// Seek moves the playhead to frame. With SeekAuto a ready cache region
// covering frame serves the following reads while the read-ahead restarts
// after the end of the region. Seeking past the end clamps to the end.
func (s *ReadStream) Seek(frame int, mode SeekMode) error {
	if s.closed {
		return ErrClosed
	}
	if frame < 0 {
		return ErrInvalidFrame
	}
	frame = min(frame, s.info.NumFrames)
	s.pollNotices()

	if mode == SeekAuto {
		for i := range s.caches {
			c := &s.caches[i]
			if c.state != cacheReady || frame < c.start || frame >= c.start+c.frames {
				continue
			}
			if err := s.restart(c.start + c.frames); err != nil {
				return err
			}
			s.active = i
			s.activeOff = frame - c.start
			s.playhead = frame
			return nil
		}
	}

	if err := s.restart(frame); err != nil {
		return err
	}
	s.active = -1
	s.playhead = frame
	return nil
}

// restart points the read-ahead at frame under a new epoch, unless it is
// already there with nothing consumed.
func (s *ReadStream) restart(frame int) error {
	if s.streamStart == frame && !s.consumed && s.pending == nil && s.cur == nil {
		return nil
	}
	if !s.canRequest() {
		return ErrRequestQueueFull
	}
	s.epoch++
	s.toServer.Push(request{kind: reqSeek, epoch: s.epoch, frame: frame})
	s.wakeServer()
	if s.cur != nil {
		s.dropCurrent()
	}
	s.streamStart = frame
	s.consumed = false
	s.streamEOF = false
	s.pending = nil
	return nil
}

// Cache asks the server to fill region with the audio starting at frame. It
// reports true when the region already holds exactly that span. Filling
// happens in the background; a later Seek uses the region once it is ready.
func (s *ReadStream) Cache(region, frame int) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	if region < 0 || region >= len(s.caches) {
		return false, ErrCacheRegion
	}
	if frame < 0 || frame >= s.info.NumFrames {
		return false, ErrInvalidFrame
	}
	s.pollNotices()

	c := &s.caches[region]
	if c.state == cacheReady && c.start == frame {
		return true, nil
	}
	if c.state == cacheFilling || s.active == region {
		return false, ErrCacheInUse
	}
	if !s.canRequest() {
		return false, ErrRequestQueueFull
	}
	c.state = cacheFilling
	c.start = frame
	c.frames = 0
	s.toServer.Push(request{kind: reqCache, frame: frame, region: region})
	s.wakeServer()
	return false, nil
}

// Close stops the server, which releases the decoder. It is safe to call
// more than once.
func (s *ReadStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}
