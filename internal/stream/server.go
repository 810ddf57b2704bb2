package stream

import (
	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"

	"github.com/llehouerou/decomposer/internal/rtqueue"
)

const resampleQuality = 4

// block is a unit of decoded audio passed between server and client. Only
// the side currently holding the pointer may touch it.
type block struct {
	data   [][]float32
	start  int
	frames int
	epoch  uint64
	eof    bool
	err    error
}

func newBlock(channels, frames int) *block {
	b := &block{data: make([][]float32, channels)}
	for i := range b.data {
		b.data[i] = make([]float32, frames)
	}
	return b
}

type requestKind int

const (
	reqRecycle requestKind = iota
	reqSeek
	reqCache
)

type request struct {
	kind   requestKind
	blk    *block
	epoch  uint64
	frame  int
	region int
}

type cacheNotice struct {
	region int
	start  int
	frames int
	err    error
}

// server decodes ahead of the client on its own goroutine.
type server struct {
	src      beep.StreamSeekCloser
	play     beep.Streamer
	srcRate  beep.SampleRate
	outRate  beep.SampleRate
	channels int
	frames   int // total frames at the output rate
	bf       int // frames per block

	requests *rtqueue.Consumer[request]
	blocks   *rtqueue.Producer[*block]
	notices  *rtqueue.Producer[cacheNotice]
	wake     <-chan struct{}
	done     <-chan struct{}

	free    []*block
	regions [][]*block
	scratch [][2]float64

	epoch   uint64
	pos     int
	eof     bool
	pending error // decode or seek error waiting for a block to carry it

	log zerolog.Logger
}

func (s *server) run() {
	defer func() {
		if err := s.src.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close decoder")
		}
	}()

	for {
		if s.closed() {
			return
		}
		s.handleRequests()
		for s.fillOne() {
			if s.closed() {
				return
			}
		}
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
	}
}

func (s *server) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *server) handleRequests() {
	for {
		req, ok := s.requests.Pop()
		if !ok {
			return
		}
		switch req.kind {
		case reqRecycle:
			s.free = append(s.free, req.blk)
		case reqSeek:
			s.seek(req.epoch, req.frame)
		case reqCache:
			s.fillCache(req.region, req.frame)
		}
	}
}

// seek restarts the read-ahead at frame under a new epoch.
func (s *server) seek(epoch uint64, frame int) {
	s.epoch = epoch
	s.pos = frame
	s.pending = nil
	s.eof = frame >= s.frames
	if s.eof {
		return
	}
	if err := s.seekSource(frame); err != nil {
		s.log.Error().Err(err).Int("frame", frame).Msg("seek failed")
		s.pending = err
	}
}

func (s *server) seekSource(frame int) error {
	p := frame
	if s.srcRate != s.outRate {
		p = int(int64(frame) * int64(s.srcRate) / int64(s.outRate))
	}
	if err := s.src.Seek(min(p, s.src.Len())); err != nil {
		return err
	}
	s.play = s.src
	if s.srcRate != s.outRate {
		s.play = beep.Resample(resampleQuality, s.srcRate, s.outRate, s.src)
	}
	return nil
}

// fillOne decodes one read-ahead block and hands it to the client. It
// reports whether there may be more work to do.
func (s *server) fillOne() bool {
	if (s.eof && s.pending == nil) || len(s.free) == 0 {
		return false
	}
	b := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	b.epoch = s.epoch
	b.start = s.pos
	b.err = nil
	b.eof = false
	b.frames = 0

	if s.pending != nil {
		b.err = s.pending
		b.eof = true
		s.pending = nil
		s.eof = true
	} else {
		n, err := s.decode(b.data, min(s.bf, s.frames-s.pos))
		b.frames = n
		s.pos += n
		if err != nil {
			s.log.Error().Err(err).Int("frame", s.pos).Msg("decode failed")
			b.err = err
		}
		if err != nil || n < s.bf || s.pos >= s.frames {
			b.eof = true
			s.eof = true
		}
	}

	if !s.blocks.Push(b) {
		s.free = append(s.free, b)
		return false
	}
	return true
}

// fillCache decodes a cache region starting at frame, then puts the source
// back where the read-ahead left off.
func (s *server) fillCache(region, frame int) {
	note := cacheNotice{region: region, start: frame}

	if err := s.seekSource(frame); err != nil {
		note.err = err
	} else {
		pos := frame
		for _, b := range s.regions[region] {
			n, err := s.decode(b.data, min(s.bf, s.frames-pos))
			b.start = pos
			b.frames = n
			pos += n
			note.frames += n
			if err != nil {
				note.err = err
				break
			}
			if n < s.bf {
				break
			}
		}
	}
	if note.err != nil {
		s.log.Warn().Err(note.err).Int("region", region).Int("frame", frame).Msg("cache fill failed")
	}

	if !s.eof {
		if err := s.seekSource(s.pos); err != nil {
			s.pending = err
		}
	}
	if !s.notices.Push(note) {
		s.log.Warn().Int("region", region).Msg("cache notice dropped")
	}
}

// decode reads up to n frames into dst. A short count without error means
// the source ended.
func (s *server) decode(dst [][]float32, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	filled := 0
	for filled < n {
		got, ok := s.play.Stream(s.scratch[filled:n])
		filled += got
		if !ok {
			break
		}
	}
	for i := range filled {
		dst[0][i] = float32(s.scratch[i][0])
		if s.channels > 1 {
			dst[1][i] = float32(s.scratch[i][1])
		}
	}
	if filled < n {
		return filled, s.src.Err()
	}
	return filled, nil
}
