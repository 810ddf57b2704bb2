package mpris

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("fake"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindAlbumArt(t *testing.T) {
	tests := []struct {
		name  string
		files []string // relative to the album dir
		track string
		want  string // "" for none
	}{
		{"cover next to track", []string{"cover.jpg"}, "track.mp3", "cover.jpg"},
		{"none", []string{"notes.txt"}, "track.mp3", ""},
		{"priority", []string{"folder.jpg", "cover.jpg"}, "track.mp3", "cover.jpg"},
		{"case insensitive", []string{"Folder.JPG"}, "track.mp3", "Folder.JPG"},
		{"disc folder falls back to album", []string{"front.png"}, "CD2/track.flac", "front.png"},
		{"disc folder art wins", []string{"cover.jpg", "Disc 1/cover.png"}, "Disc 1/track.flac", "Disc 1/cover.png"},
		{"other subfolder does not fall back", []string{"cover.jpg"}, "bonus/track.flac", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(dir, f))
			}
			want := ""
			if tt.want != "" {
				want = filepath.Join(dir, tt.want)
			}
			if got := FindAlbumArt(filepath.Join(dir, tt.track)); got != want {
				t.Errorf("FindAlbumArt() = %q, want %q", got, want)
			}
		})
	}
}

func TestFindAlbumArt_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "cover.jpg"), 0o750); err != nil {
		t.Fatal(err)
	}
	if got := FindAlbumArt(filepath.Join(dir, "track.mp3")); got != "" {
		t.Errorf("FindAlbumArt() = %q, want empty", got)
	}
}
