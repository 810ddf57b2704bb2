package tags

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// Read reads tag metadata from a music file. Artist falls back to the album
// artist when empty. Title stays empty when the file has none so callers can
// pick their own fallback.
func Read(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		switch strings.ToLower(filepath.Ext(path)) {
		case ExtMP3:
			// dhowden/tag has issues with some UTF-16 encoded ID3 tags
			return readMP3WithID3v2(path)
		case ExtFLAC, ExtOPUS, ExtOGG, ExtOGA:
			return readWithTaglib(path)
		}
		return nil, err
	}

	track, total := m.Track()
	t := &Tag{
		Path:        path,
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
		Genre:       m.Genre(),
		TrackNumber: track,
		TotalTracks: total,
		Year:        m.Year(),
	}
	t.fillArtist()
	return t, nil
}

func (t *Tag) fillArtist() {
	if t.Artist == "" {
		t.Artist = t.AlbumArtist
	}
	if t.AlbumArtist == "" {
		t.AlbumArtist = t.Artist
	}
}

func readMP3WithID3v2(path string) (*Tag, error) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer id3tag.Close()

	track, total := parseNumberPair(id3TextFrame(id3tag, "TRCK"))
	year := 0
	if y := id3tag.Year(); len(y) >= 4 {
		year, _ = strconv.Atoi(y[:4])
	}
	t := &Tag{
		Path:        path,
		Title:       id3tag.Title(),
		Artist:      id3tag.Artist(),
		AlbumArtist: id3TextFrame(id3tag, "TPE2"),
		Album:       id3tag.Album(),
		Genre:       id3tag.Genre(),
		TrackNumber: track,
		TotalTracks: total,
		Year:        year,
	}
	t.fillArtist()
	return t, nil
}

// id3TextFrame reads a text frame value from an ID3v2 tag.
func id3TextFrame(id3tag *id3v2.Tag, frameID string) string {
	frames := id3tag.GetFrames(frameID)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}

// readWithTaglib reads Vorbis comments when dhowden/tag gives up.
func readWithTaglib(path string) (*Tag, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	tags := taglibTags(raw)

	track, total := parseNumberPair(tags.get(taglib.TrackNumber))
	if total == 0 {
		total, _ = strconv.Atoi(tags.get("TOTALTRACKS", "TRACKTOTAL"))
	}
	year := 0
	if d := tags.get(taglib.Date); len(d) >= 4 {
		year, _ = strconv.Atoi(d[:4])
	}
	t := &Tag{
		Path:        path,
		Title:       tags.get(taglib.Title),
		Artist:      tags.get(taglib.Artist),
		AlbumArtist: tags.get(taglib.AlbumArtist),
		Album:       tags.get(taglib.Album),
		Genre:       tags.get(taglib.Genre),
		TrackNumber: track,
		TotalTracks: total,
		Year:        year,
	}
	t.fillArtist()
	return t, nil
}
