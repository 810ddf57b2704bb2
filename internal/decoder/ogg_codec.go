package decoder

import (
	"encoding/binary"
	"errors"

	"github.com/jfreymuth/vorbis"
	"github.com/jj11hh/opus"
)

const (
	opusSampleRate   = 48000
	opusMaxFrameSize = 5760 // 120ms at 48kHz
)

var (
	errOggCodec    = errors.New("ogg: unknown codec (not Opus or Vorbis)")
	errOpusHead    = errors.New("opus: invalid OpusHead packet")
	errOpusVersion = errors.New("opus: unsupported version")
	errVorbisIdent = errors.New("vorbis: invalid identification header")
)

// newOggCodec picks the codec from the identification packet.
func newOggCodec(first []byte) (oggCodec, error) {
	switch {
	case len(first) >= 8 && string(first[:8]) == "OpusHead":
		return newOpusCodec(first)
	case len(first) >= 7 && first[0] == 0x01 && string(first[1:7]) == "vorbis":
		return newVorbisCodec(first)
	}
	return nil, errOggCodec
}

type opusCodec struct {
	dec  *opus.Decoder
	ch   int
	skip int
	pcm  []float32
}

func newOpusCodec(head []byte) (*opusCodec, error) {
	if len(head) < 19 {
		return nil, errOpusHead
	}
	if head[8] != 1 {
		return nil, errOpusVersion
	}
	ch := int(head[9])
	if ch < 1 {
		return nil, errOpusHead
	}
	dec, err := opus.NewDecoder(opusSampleRate, ch)
	if err != nil {
		return nil, err
	}
	return &opusCodec{
		dec:  dec,
		ch:   ch,
		skip: int(binary.LittleEndian.Uint16(head[10:12])),
		pcm:  make([]float32, opusMaxFrameSize*ch),
	}, nil
}

func (c *opusCodec) channels() int   { return c.ch }
func (c *opusCodec) sampleRate() int { return opusSampleRate }
func (c *opusCodec) preSkip() int    { return c.skip }

// header takes the OpusTags packet, the only header after OpusHead.
func (c *opusCodec) header(_ []byte) (bool, error) { return true, nil }

func (c *opusCodec) decode(pkt []byte) ([]float32, error) {
	n, err := c.dec.DecodeFloat32(pkt, c.pcm)
	if err != nil {
		return nil, err
	}
	return c.pcm[:n*c.ch], nil
}

// reset is a no-op: the Opus decoder converges on its own after a jump.
func (c *opusCodec) reset() {}

type vorbisCodec struct {
	dec     vorbis.Decoder
	ch      int
	rate    int
	headers int
}

func newVorbisCodec(ident []byte) (*vorbisCodec, error) {
	// [7:11] version, [11] channels, [12:16] sample rate
	if len(ident) < 16 || binary.LittleEndian.Uint32(ident[7:11]) != 0 {
		return nil, errVorbisIdent
	}
	c := &vorbisCodec{
		ch:   int(ident[11]),
		rate: int(binary.LittleEndian.Uint32(ident[12:16])),
	}
	if c.ch < 1 || c.rate <= 0 {
		return nil, errVorbisIdent
	}
	if err := c.dec.ReadHeader(ident); err != nil {
		return nil, err
	}
	c.headers = 1
	return c, nil
}

func (c *vorbisCodec) channels() int   { return c.ch }
func (c *vorbisCodec) sampleRate() int { return c.rate }
func (c *vorbisCodec) preSkip() int    { return 0 }

// header takes the comment and setup packets.
func (c *vorbisCodec) header(pkt []byte) (bool, error) {
	if err := c.dec.ReadHeader(pkt); err != nil {
		return false, err
	}
	c.headers++
	return c.headers >= 3, nil
}

func (c *vorbisCodec) decode(pkt []byte) ([]float32, error) {
	return c.dec.Decode(pkt)
}

func (c *vorbisCodec) reset() { c.dec.Clear() }
