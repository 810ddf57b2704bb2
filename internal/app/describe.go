package app

import (
	"github.com/rs/zerolog"

	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
	"github.com/llehouerou/decomposer/internal/tags"
)

// TagDescriber fills track fields from file tags. Fields already set, as on
// a restored queue, are kept when the file has no value for them.
func TagDescriber(log zerolog.Logger) playback.Describer {
	return func(t playlist.Track) playlist.Track {
		tag, err := tags.Read(t.Path)
		if err != nil {
			log.Debug().Err(err).Str("path", t.Path).Msg("no tags")
			return t
		}
		if tag.Title != "" {
			t.Title = tag.Title
		}
		if tag.Artist != "" {
			t.Artist = tag.Artist
		}
		if tag.Album != "" {
			t.Album = tag.Album
		}
		return t
	}
}
