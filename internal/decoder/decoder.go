// Package decoder opens audio files as beep streamers.
//
// Every decoder returns a beep.StreamSeekCloser whose samples are stereo
// frames; Format.NumChannels tells whether the file was mono (both channels
// equal) or had two or more channels (the first two are kept).
package decoder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
	extOGG  = ".ogg"
	extOGA  = ".oga"
	extOPUS = ".opus"
)

// ErrUnsupported is returned for files whose extension has no decoder.
var ErrUnsupported = errors.New("unsupported format")

// IsMusicFile reports whether path has an extension Open can decode.
func IsMusicFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extMP3, extFLAC, extWAV, extOGG, extOGA, extOPUS:
		return true
	}
	return false
}

// Open opens path and returns a seekable streamer over its samples. Closing
// the streamer closes the file.
func Open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsMusicFile(path) {
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case extMP3:
		streamer, format, err = decodeMP3(f)
	case extFLAC:
		streamer, format, err = decodeFLAC(f)
	case extWAV:
		streamer, format, err = decodeWAV(f)
	default:
		streamer, format, err = decodeOgg(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if format.NumChannels < 1 {
		streamer.Close()
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: no audio channels", filepath.Base(path))
	}

	return &fileStreamer{StreamSeekCloser: streamer, file: f}, format, nil
}

// fileStreamer makes sure the file is closed even when the wrapped decoder
// does not close its reader.
type fileStreamer struct {
	beep.StreamSeekCloser
	file *os.File
}

func (s *fileStreamer) Close() error {
	err := s.StreamSeekCloser.Close()
	if cerr := s.file.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}
