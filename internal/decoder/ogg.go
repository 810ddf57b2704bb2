package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
)

const (
	oggHeaderLen   = 27
	oggMaxPageLen  = oggHeaderLen + 255 + 255*255
	oggFlagCont    = 0x01
	oggTailScanLen = 2 * oggMaxPageLen
)

var (
	errOggMagic     = errors.New("ogg: invalid capture pattern")
	errOggVersion   = errors.New("ogg: unsupported version")
	errOggNoPackets = errors.New("ogg: stream has no packets")
	errOggNoEnd     = errors.New("ogg: cannot find last page")
)

// oggPage is one parsed Ogg page. Granule is the sample position at the end
// of the last packet completed on the page (-1 if none completes).
type oggPage struct {
	granule int64
	flags   byte
	lacing  []byte
	body    []byte
}

// bodyLen sums the lacing values.
func bodyLen(lacing []byte) int {
	n := 0
	for _, v := range lacing {
		n += int(v)
	}
	return n
}

// readOggHeader reads the fixed header and lacing table of the next page.
func readOggHeader(r io.Reader, hdr *[oggHeaderLen]byte, lacing []byte) (oggPage, error) {
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return oggPage{}, err
	}
	if string(hdr[0:4]) != "OggS" {
		return oggPage{}, errOggMagic
	}
	if hdr[4] != 0 {
		return oggPage{}, errOggVersion
	}
	lacing = lacing[:hdr[26]]
	if _, err := io.ReadFull(r, lacing); err != nil {
		return oggPage{}, err
	}
	return oggPage{
		granule: int64(binary.LittleEndian.Uint64(hdr[6:14])), //nolint:gosec // granule is signed on the wire
		flags:   hdr[5],
		lacing:  lacing,
	}, nil
}

// oggReader splits an Ogg bitstream into packets.
type oggReader struct {
	rs      io.ReadSeeker
	hdr     [oggHeaderLen]byte
	lacing  [255]byte
	body    []byte
	packets [][]byte
	partial []byte
	// skipCont drops a continued packet at the first page read after a seek.
	skipCont bool
	// lastGranule is the granule of the most recently read page.
	lastGranule int64
}

func newOggReader(rs io.ReadSeeker) *oggReader {
	return &oggReader{rs: rs, body: make([]byte, 0, 255*255)}
}

func (o *oggReader) readPage() error {
	page, err := readOggHeader(o.rs, &o.hdr, o.lacing[:])
	if err != nil {
		return err
	}
	o.body = o.body[:bodyLen(page.lacing)]
	if _, err := io.ReadFull(o.rs, o.body); err != nil {
		return err
	}
	o.lastGranule = page.granule

	cont := page.flags&oggFlagCont != 0
	dropFirst := cont && o.skipCont
	o.skipCont = false
	if !cont {
		o.partial = o.partial[:0]
	}

	off, start := 0, 0
	for _, l := range page.lacing {
		off += int(l)
		if l == 255 {
			continue
		}
		seg := o.body[start:off]
		start = off
		if dropFirst {
			dropFirst = false
			o.partial = o.partial[:0]
			continue
		}
		pkt := make([]byte, 0, len(o.partial)+len(seg))
		pkt = append(pkt, o.partial...)
		pkt = append(pkt, seg...)
		o.partial = o.partial[:0]
		o.packets = append(o.packets, pkt)
	}
	if start < off && !dropFirst {
		o.partial = append(o.partial, o.body[start:off]...)
	}
	return nil
}

// nextPacket returns the next complete packet, reading pages as needed.
func (o *oggReader) nextPacket() ([]byte, error) {
	for len(o.packets) == 0 {
		if err := o.readPage(); err != nil {
			return nil, err
		}
	}
	pkt := o.packets[0]
	o.packets = o.packets[1:]
	return pkt, nil
}

// seekPage moves to the page at offset and forgets buffered packets.
func (o *oggReader) seekPage(offset int64) error {
	if _, err := o.rs.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	o.packets = o.packets[:0]
	o.partial = o.partial[:0]
	o.skipCont = true
	return nil
}

// findPageBefore scans page headers from dataStart and returns the offset of
// the first page that may contain samples at or after target, along with the
// granule reached before that page.
func (o *oggReader) findPageBefore(dataStart, target int64) (offset, granule int64, err error) {
	if _, err := o.rs.Seek(dataStart, io.SeekStart); err != nil {
		return 0, 0, err
	}
	offset = dataStart
	granule = 0
	for {
		page, err := readOggHeader(o.rs, &o.hdr, o.lacing[:])
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return offset, granule, nil
			}
			return 0, 0, err
		}
		n := bodyLen(page.lacing)
		if page.granule >= target {
			return offset, granule, nil
		}
		if page.granule >= 0 {
			granule = page.granule
		}
		next, err := o.rs.Seek(int64(n), io.SeekCurrent)
		if err != nil {
			return 0, 0, err
		}
		offset = next
	}
}

// lastGranule finds the granule of the final page by scanning the tail.
func lastGranule(rs io.ReadSeeker) (int64, error) {
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	start := max(end-oggTailScanLen, 0)
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	tail := make([]byte, end-start)
	if _, err := io.ReadFull(rs, tail); err != nil {
		return 0, err
	}

	for i := bytes.LastIndex(tail, []byte("OggS")); i >= 0; i = bytes.LastIndex(tail[:i], []byte("OggS")) {
		if len(tail)-i < oggHeaderLen || tail[i+4] != 0 {
			continue
		}
		g := int64(binary.LittleEndian.Uint64(tail[i+6 : i+14])) //nolint:gosec // granule is signed on the wire
		if g >= 0 {
			return g, nil
		}
	}
	return 0, errOggNoEnd
}

// oggCodec decodes the packets of one logical stream.
type oggCodec interface {
	channels() int
	sampleRate() int
	preSkip() int
	// header feeds a header packet and reports whether all headers are read.
	header(pkt []byte) (done bool, err error)
	// decode returns interleaved samples, valid until the next call.
	decode(pkt []byte) ([]float32, error)
	reset()
}

// oggDecoder implements beep.StreamSeekCloser over an Ogg Vorbis or Opus file.
type oggDecoder struct {
	ogg       *oggReader
	codec     oggCodec
	dataStart int64
	total     int

	pcm   []float32
	pos   int // frames delivered
	skip  int // frames still to drop before delivering
	err   error
	ended bool
}

func decodeOgg(rs io.ReadSeeker) (beep.StreamSeekCloser, beep.Format, error) {
	o := newOggReader(rs)

	first, err := o.nextPacket()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errOggNoPackets
		}
		return nil, beep.Format{}, err
	}
	codec, err := newOggCodec(first)
	if err != nil {
		return nil, beep.Format{}, err
	}
	for done := false; !done; {
		pkt, err := o.nextPacket()
		if err != nil {
			return nil, beep.Format{}, err
		}
		if done, err = codec.header(pkt); err != nil {
			return nil, beep.Format{}, err
		}
	}
	if len(o.packets) > 0 {
		// audio shares a page with the last header; cannot restart cleanly
		return nil, beep.Format{}, errors.New("ogg: audio data on header page")
	}

	dataStart, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, beep.Format{}, err
	}
	end, err := lastGranule(rs)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if err := o.seekPage(dataStart); err != nil {
		return nil, beep.Format{}, err
	}
	o.skipCont = false

	d := &oggDecoder{
		ogg:       o,
		codec:     codec,
		dataStart: dataStart,
		total:     max(int(end)-codec.preSkip(), 0),
		skip:      codec.preSkip(),
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(codec.sampleRate()),
		NumChannels: min(codec.channels(), 2),
		Precision:   2,
	}
	return d, format, nil
}

func (d *oggDecoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil || d.ended {
		return 0, false
	}
	ch := d.codec.channels()

	for n < len(samples) {
		if len(d.pcm) == 0 {
			pkt, err := d.ogg.nextPacket()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
					d.err = err
				}
				d.ended = true
				break
			}
			pcm, err := d.codec.decode(pkt)
			if err != nil {
				continue // corrupt packet, drop it
			}
			d.pcm = pcm
			continue
		}

		frames := len(d.pcm) / ch
		if d.skip > 0 {
			drop := min(d.skip, frames)
			d.pcm = d.pcm[drop*ch:]
			d.skip -= drop
			continue
		}
		if d.pos >= d.total {
			d.ended = true
			break
		}

		take := min(frames, len(samples)-n, d.total-d.pos)
		for i := range take {
			l := float64(d.pcm[i*ch])
			r := l
			if ch > 1 {
				r = float64(d.pcm[i*ch+1])
			}
			samples[n+i] = [2]float64{l, r}
		}
		d.pcm = d.pcm[take*ch:]
		n += take
		d.pos += take
	}
	return n, n > 0
}

func (d *oggDecoder) Err() error { return d.err }

func (d *oggDecoder) Len() int { return d.total }

func (d *oggDecoder) Position() int { return d.pos }

// Seek lands on the page boundary before p and decodes forward, discarding
// samples until p.
func (d *oggDecoder) Seek(p int) error {
	p = min(max(p, 0), d.total)
	target := int64(p + d.codec.preSkip())

	offset, granule, err := d.ogg.findPageBefore(d.dataStart, target)
	if err != nil {
		return err
	}
	if err := d.ogg.seekPage(offset); err != nil {
		return err
	}
	if offset == d.dataStart {
		d.ogg.skipCont = false
	}

	d.codec.reset()
	d.pcm = nil
	d.err = nil
	d.ended = false
	d.skip = int(target - granule)
	d.pos = p
	return nil
}

// Close is a no-op; the file is owned by fileStreamer.
func (d *oggDecoder) Close() error { return nil }
