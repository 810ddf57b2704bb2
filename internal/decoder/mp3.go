package decoder

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

// mp3Decoder adapts llehouerou/go-mp3 to beep.StreamSeekCloser.
type mp3Decoder struct {
	dec *mp3.Decoder
	err error
	buf []byte
}

func decodeMP3(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if dec.SampleRate() == 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(dec.SampleRate()),
		NumChannels: 2, // go-mp3 always outputs 16-bit stereo
		Precision:   2,
	}
	return &mp3Decoder{dec: dec, buf: make([]byte, 4096*4)}, format, nil
}

func (d *mp3Decoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}

	need := len(samples) * 4
	if len(d.buf) < need {
		d.buf = make([]byte, need)
	}

	got, err := io.ReadFull(d.dec, d.buf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = err
		return 0, false
	}

	n = got / 4
	for i := range n {
		l := int16(binary.LittleEndian.Uint16(d.buf[i*4:]))   //nolint:gosec // pcm
		r := int16(binary.LittleEndian.Uint16(d.buf[i*4+2:])) //nolint:gosec // pcm
		samples[i][0] = float64(l) / 32768
		samples[i][1] = float64(r) / 32768
	}
	return n, n > 0
}

func (d *mp3Decoder) Err() error { return d.err }

func (d *mp3Decoder) Len() int {
	return max(int(d.dec.SampleCount()), 0)
}

func (d *mp3Decoder) Position() int { return int(d.dec.SamplePosition()) }

func (d *mp3Decoder) Seek(p int) error {
	p = min(max(p, 0), d.Len())
	if err := d.dec.SeekToSample(int64(p)); err != nil {
		return err
	}
	d.err = nil
	return nil
}

// Close is a no-op; the file is owned by fileStreamer.
func (d *mp3Decoder) Close() error { return nil }
