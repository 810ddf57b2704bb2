package playback

import (
	"github.com/rs/zerolog"

	"github.com/llehouerou/decomposer/internal/engine"
	"github.com/llehouerou/decomposer/internal/stream"
)

// Stream is an opened track as seen by the coordinator: the engine's handle
// plus cache priming.
type Stream interface {
	engine.Stream
	Cache(region, frame int) (bool, error)
}

// Opener opens the track at path.
type Opener func(path string) (Stream, error)

// StreamOpener opens tracks with stream.Open using opts.
func StreamOpener(opts stream.Options, log *zerolog.Logger) Opener {
	return func(path string) (Stream, error) {
		s, err := stream.Open(path, opts, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
