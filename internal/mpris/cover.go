package mpris

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// coverNames lists album art file names, lowercase, best first.
var coverNames = []string{
	"cover.jpg", "cover.png", "cover.jpeg",
	"folder.jpg", "folder.png", "folder.jpeg",
	"album.jpg", "album.png", "album.jpeg",
	"front.jpg", "front.png", "front.jpeg",
}

// discDir matches per-disc folders of multi-disc albums ("CD1", "Disc 2").
var discDir = regexp.MustCompile(`(?i)^(cd|disc|disk)\s*\d+$`)

// FindAlbumArt returns the album art next to a track, or "" when there is
// none. Names match case-insensitively. Tracks in a disc folder fall back to
// the album folder above it.
func FindAlbumArt(trackPath string) string {
	dir := filepath.Dir(trackPath)
	if art := coverIn(dir); art != "" {
		return art
	}
	if discDir.MatchString(filepath.Base(dir)) {
		return coverIn(filepath.Dir(dir))
	}
	return ""
}

func coverIn(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	found := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			found[strings.ToLower(e.Name())] = e.Name()
		}
	}
	for _, name := range coverNames {
		if real, ok := found[name]; ok {
			return filepath.Join(dir, real)
		}
	}
	return ""
}
