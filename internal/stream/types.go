package stream

import (
	"errors"
	"time"
)

var (
	// ErrEndOfFile is returned by Read once the playhead reaches the end.
	ErrEndOfFile = errors.New("stream: end of file")
	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("stream: closed")
	// ErrInvalidFrame is returned for negative seek or cache positions.
	ErrInvalidFrame = errors.New("stream: invalid frame")
	// ErrCacheRegion is returned for a cache index outside the configured range.
	ErrCacheRegion = errors.New("stream: no such cache region")
	// ErrCacheInUse is returned when refilling a cache that is being read or filled.
	ErrCacheInUse = errors.New("stream: cache region in use")
	// ErrRequestQueueFull is returned when the I/O server has too many
	// requests pending. The caller may retry later.
	ErrRequestQueueFull = errors.New("stream: request queue full")
)

// SeekMode selects whether Seek may serve reads from a cache region.
type SeekMode int

const (
	// SeekAuto reads from a ready cache covering the target when there is one.
	SeekAuto SeekMode = iota
	// SeekStreamOnly always restarts the read-ahead at the target.
	SeekStreamOnly
)

// Options configures the read-ahead and cache buffers of a stream. Zero
// fields take the defaults below.
type Options struct {
	NumCaches      int // cache regions (default 1)
	NumCacheBlocks int // blocks per cache region (default 20)
	BlockFrames    int // frames per block (default 16384)
	PrefetchBlocks int // read-ahead blocks (default 8)
	// OutputRate resamples the file to this rate when non-zero.
	OutputRate int
}

const (
	DefaultNumCaches      = 1
	DefaultNumCacheBlocks = 20
	DefaultBlockFrames    = 16384
	DefaultPrefetchBlocks = 8
)

func (o Options) withDefaults() Options {
	if o.NumCaches <= 0 {
		o.NumCaches = DefaultNumCaches
	}
	if o.NumCacheBlocks <= 0 {
		o.NumCacheBlocks = DefaultNumCacheBlocks
	}
	if o.BlockFrames <= 0 {
		o.BlockFrames = DefaultBlockFrames
	}
	if o.PrefetchBlocks <= 0 {
		o.PrefetchBlocks = DefaultPrefetchBlocks
	}
	return o
}

// TimeBase converts frame counts to time: one frame lasts Numer/Denom seconds.
type TimeBase struct {
	Numer uint32
	Denom uint32
}

// Duration returns the time spanned by frames.
func (tb TimeBase) Duration(frames int) time.Duration {
	if tb.Denom == 0 {
		return 0
	}
	return time.Duration(float64(frames) * float64(tb.Numer) / float64(tb.Denom) * float64(time.Second))
}

// Info is the format of an opened stream, fixed at open time.
type Info struct {
	NumFrames   int
	NumChannels int
	SampleRate  int
	TimeBase    *TimeBase // nil when the rate is unknown
}

// ReadData holds the frames returned by one Read, one slice per channel.
// It is reused by the next Read.
type ReadData struct {
	chans  [][]float32
	frames int
}

// NewReadData allocates room for capacity frames of numChannels channels.
func NewReadData(numChannels, capacity int) *ReadData {
	d := &ReadData{chans: make([][]float32, numChannels)}
	for i := range d.chans {
		d.chans[i] = make([]float32, capacity)
	}
	return d
}

// NumFrames returns how many frames were delivered.
func (d *ReadData) NumFrames() int { return d.frames }

// NumChannels returns the channel count.
func (d *ReadData) NumChannels() int { return len(d.chans) }

// Channel returns the delivered samples of channel i.
func (d *ReadData) Channel(i int) []float32 { return d.chans[i][:d.frames] }

// Cap returns the most frames d can hold.
func (d *ReadData) Cap() int {
	if len(d.chans) == 0 {
		return 0
	}
	return len(d.chans[0])
}

// Set replaces the contents with the first frames samples of each source
// channel. Extra sources are ignored, missing ones leave silence.
func (d *ReadData) Set(frames int, chans ...[]float32) {
	frames = min(frames, d.Cap())
	for i, dst := range d.chans {
		if i < len(chans) {
			copy(dst[:frames], chans[i][:frames])
		} else {
			clear(dst[:frames])
		}
	}
	d.frames = frames
}

func (d *ReadData) reset() { d.frames = 0 }

func (d *ReadData) appendFrom(src [][]float32, off, n int) {
	for i, dst := range d.chans {
		copy(dst[d.frames:d.frames+n], src[i][off:off+n])
	}
	d.frames += n
}
