package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMusicFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/music/a.mp3", true},
		{"/music/a.FLAC", true},
		{"/music/a.wav", true},
		{"/music/a.ogg", true},
		{"/music/a.oga", true},
		{"/music/a.opus", true},
		{"/music/a.m4a", false},
		{"/music/cover.jpg", false},
		{"/music/noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsMusicFile(tt.path); got != tt.want {
				t.Errorf("IsMusicFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestOpen_Unsupported(t *testing.T) {
	_, _, err := Open("/music/cover.jpg")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOpen_MissingFile(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o600))

	_, _, err := Open(path)
	assert.Error(t, err)
}

// writeWAV encodes frames (one [2]float64 per frame) into a WAV file.
func writeWAV(t *testing.T, channels int, frames [][2]float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 44100, NumChannels: channels, Precision: 2}
	pos := 0
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(frames) {
			return 0, false
		}
		n := copy(samples, frames[pos:])
		pos += n
		return n, true
	})
	require.NoError(t, wav.Encode(f, src, format))
	return path
}

func TestOpen_WAV(t *testing.T) {
	frames := make([][2]float64, 1000)
	for i := range frames {
		frames[i] = [2]float64{0.5, -0.5}
	}
	path := writeWAV(t, 2, frames)

	s, format, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, beep.SampleRate(44100), format.SampleRate)
	assert.Equal(t, 2, format.NumChannels)
	assert.Equal(t, 1000, s.Len())

	buf := make([][2]float64, 10)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 10, n)
	assert.InDelta(t, 0.5, buf[0][0], 1e-3)
	assert.InDelta(t, -0.5, buf[0][1], 1e-3)

	require.NoError(t, s.Seek(990))
	assert.Equal(t, 990, s.Position())
}

func TestOpen_CloseReleasesFile(t *testing.T) {
	path := writeWAV(t, 1, make([][2]float64, 10))
	s, _, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, os.Remove(path))
}

func TestSkipID3v2(t *testing.T) {
	t.Run("no tag rewinds", func(t *testing.T) {
		r := bytes.NewReader([]byte("fLaC0123456789"))
		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, io.SeekCurrent)
		assert.Equal(t, int64(0), pos)
	})

	t.Run("tag is skipped", func(t *testing.T) {
		// size 0x81 in syncsafe form: 0x00 0x00 0x01 0x01
		data := append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 1, 1}, make([]byte, 0x81)...)
		data = append(data, []byte("fLaC")...)
		r := bytes.NewReader(data)

		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, io.SeekCurrent)
		assert.Equal(t, int64(10+0x81), pos)
	})

	t.Run("short file rewinds", func(t *testing.T) {
		r := bytes.NewReader([]byte("ID3"))
		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, io.SeekCurrent)
		assert.Equal(t, int64(0), pos)
	})
}

// oggPageBytes builds a page whose body is the given segments. A segment
// that is a multiple of 255 bytes long continues on the next page.
func oggPageBytes(flags byte, granule int64, segments ...[]byte) []byte {
	var lacing, body []byte
	for _, seg := range segments {
		n := len(seg)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		if len(seg)%255 != 0 || len(seg) == 0 {
			lacing = append(lacing, byte(n))
		}
		body = append(body, seg...)
	}
	hdr := make([]byte, oggHeaderLen)
	copy(hdr, "OggS")
	hdr[5] = flags
	binary.LittleEndian.PutUint64(hdr[6:14], uint64(granule)) //nolint:gosec // test data
	hdr[26] = byte(len(lacing))
	out := append(hdr, lacing...)
	return append(out, body...)
}

func TestOggReader_Packets(t *testing.T) {
	long := bytes.Repeat([]byte{'x'}, 255)
	var stream []byte
	stream = append(stream, oggPageBytes(0, 0, []byte("one"), []byte("two"))...)
	// "long" fills the page exactly and continues on the next one
	stream = append(stream, oggPageBytes(0, 100, long)...)
	stream = append(stream, oggPageBytes(oggFlagCont, 200, []byte("tail"), []byte("three"))...)

	o := newOggReader(bytes.NewReader(stream))

	var got []string
	for {
		pkt, err := o.nextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, string(pkt))
	}

	require.Len(t, got, 4)
	assert.Equal(t, "one", got[0])
	assert.Equal(t, "two", got[1])
	assert.Equal(t, string(long)+"tail", got[2])
	assert.Equal(t, "three", got[3])
}

func TestOggReader_SkipsContinuationAfterSeek(t *testing.T) {
	page := oggPageBytes(oggFlagCont, 10, []byte("rest"), []byte("whole"))
	o := newOggReader(bytes.NewReader(page))
	require.NoError(t, o.seekPage(0))

	pkt, err := o.nextPacket()
	require.NoError(t, err)
	assert.Equal(t, "whole", string(pkt))
}

func TestReadOggHeader_BadMagic(t *testing.T) {
	var hdr [oggHeaderLen]byte
	var lacing [255]byte
	data := make([]byte, oggHeaderLen)
	copy(data, "NotS")

	_, err := readOggHeader(bytes.NewReader(data), &hdr, lacing[:])
	assert.ErrorIs(t, err, errOggMagic)
}

func TestLastGranule(t *testing.T) {
	var stream []byte
	stream = append(stream, oggPageBytes(0, 0, []byte("a"))...)
	stream = append(stream, oggPageBytes(0, 4800, []byte("b"))...)
	stream = append(stream, oggPageBytes(0, 9600, []byte("c"))...)

	g, err := lastGranule(bytes.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, int64(9600), g)
}

func TestOggReader_FindPageBefore(t *testing.T) {
	p1 := oggPageBytes(0, 1000, []byte("a"))
	p2 := oggPageBytes(0, 2000, []byte("b"))
	p3 := oggPageBytes(0, 3000, []byte("c"))
	stream := append(append(append([]byte{}, p1...), p2...), p3...)
	o := newOggReader(bytes.NewReader(stream))

	off, granule, err := o.findPageBefore(0, 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(len(p1)+len(p2)), off)
	assert.Equal(t, int64(2000), granule)

	off, granule, err = o.findPageBefore(0, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)
	assert.Equal(t, int64(0), granule)
}

func TestNewOggCodec_Unknown(t *testing.T) {
	_, err := newOggCodec([]byte("FishHead"))
	assert.ErrorIs(t, err, errOggCodec)
}

func TestNewOpusCodec_Header(t *testing.T) {
	head := make([]byte, 19)
	copy(head, "OpusHead")
	head[8] = 1
	head[9] = 2
	binary.LittleEndian.PutUint16(head[10:12], 312)

	c, err := newOggCodec(head)
	require.NoError(t, err)
	assert.Equal(t, 2, c.channels())
	assert.Equal(t, 312, c.preSkip())
	assert.Equal(t, opusSampleRate, c.sampleRate())

	head[8] = 2
	_, err = newOggCodec(head)
	assert.ErrorIs(t, err, errOpusVersion)
}
