package decoder

import (
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"
)

func decodeFLAC(rs io.ReadSeeker) (beep.StreamSeekCloser, beep.Format, error) {
	// Some taggers prepend an ID3v2 block the FLAC decoder cannot parse.
	if err := skipID3v2(rs); err != nil {
		return nil, beep.Format{}, err
	}
	return flac.Decode(rs)
}

func decodeWAV(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(r)
}

// skipID3v2 positions rs after a leading ID3v2 tag, or back at the start
// when there is none.
func skipID3v2(rs io.ReadSeeker) error {
	var hdr [10]byte
	n, err := io.ReadFull(rs, hdr[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	if n < len(hdr) || string(hdr[:3]) != "ID3" {
		_, err = rs.Seek(0, io.SeekStart)
		return err
	}

	// syncsafe integer: 7 bits per byte
	size := int64(hdr[6])<<21 | int64(hdr[7])<<14 | int64(hdr[8])<<7 | int64(hdr[9])
	_, err = rs.Seek(int64(len(hdr))+size, io.SeekStart)
	return err
}
