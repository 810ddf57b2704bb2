package notify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/llehouerou/decomposer/internal/errmsg"
	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
)

// mockNotifier records notifications for testing.
type mockNotifier struct {
	notifications []Notification
	closed        []uint32
	lastID        uint32
	err           error
}

func (m *mockNotifier) Notify(n Notification) (uint32, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.lastID++
	m.notifications = append(m.notifications, n)
	return m.lastID, nil
}

func (m *mockNotifier) Close(id uint32) error {
	m.closed = append(m.closed, id)
	return nil
}

func trackFixture(title string) playlist.Track {
	t := playlist.NewTrack("/music/" + title + ".flac")
	t.Title = title
	return t
}

func TestNowPlaying_Track(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "folder.jpg")
	if err := os.WriteFile(cover, []byte("fake"), 0o600); err != nil {
		t.Fatal(err)
	}
	mock := &mockNotifier{}
	p := NewNowPlaying(mock, 5000)

	track := playlist.Track{
		Path:   filepath.Join(dir, "song.mp3"),
		Title:  "Test Song",
		Artist: "Test Artist",
		Album:  "Test Album",
	}
	if err := p.Track(track); err != nil {
		t.Fatalf("Track() error: %v", err)
	}

	if len(mock.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(mock.notifications))
	}
	n := mock.notifications[0]
	if n.Title != "Test Song" {
		t.Errorf("Title = %q, want %q", n.Title, "Test Song")
	}
	if n.Body != "Test Artist · Test Album" {
		t.Errorf("Body = %q, want %q", n.Body, "Test Artist · Test Album")
	}
	if n.Icon != cover {
		t.Errorf("Icon = %q, want %q", n.Icon, cover)
	}
	if n.Timeout != 5000 {
		t.Errorf("Timeout = %d, want 5000", n.Timeout)
	}
	if n.ReplacesID != 0 {
		t.Errorf("first ReplacesID = %d, want 0", n.ReplacesID)
	}
}

func TestNowPlaying_ReplacesPrevious(t *testing.T) {
	mock := &mockNotifier{}
	p := NewNowPlaying(mock, -1)

	_ = p.Track(playlist.NewTrack("/music/one.flac"))
	_ = p.Skipped(playback.ErrorEvent{Operation: errmsg.OpTrackOpen, Path: "/music/two.xyz", Err: errors.New("unsupported format")})

	if len(mock.notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(mock.notifications))
	}
	first, second := mock.notifications[0], mock.notifications[1]
	if first.Title != "one" {
		t.Errorf("untagged Title = %q, want file name %q", first.Title, "one")
	}
	if second.ReplacesID != 1 {
		t.Errorf("ReplacesID = %d, want 1", second.ReplacesID)
	}
	if second.Urgency != UrgencyNormal {
		t.Errorf("Urgency = %d, want UrgencyNormal", second.Urgency)
	}
	want := "Failed to open track '/music/two.xyz': unsupported format"
	if second.Body != want {
		t.Errorf("Body = %q, want %q", second.Body, want)
	}
}

func TestNowPlaying_ErrorKeepsLastID(t *testing.T) {
	mock := &mockNotifier{}
	p := NewNowPlaying(mock, -1)
	_ = p.Track(playlist.NewTrack("/a.flac"))

	mock.err = errors.New("bus gone")
	if err := p.Track(playlist.NewTrack("/b.flac")); err == nil {
		t.Fatal("expected error")
	}

	mock.err = nil
	_ = p.Track(playlist.NewTrack("/c.flac"))
	if got := mock.notifications[1].ReplacesID; got != 1 {
		t.Errorf("ReplacesID after failure = %d, want 1", got)
	}
}

func TestTrackBody(t *testing.T) {
	tests := []struct {
		name     string
		track    playlist.Track
		expected string
	}{
		{"artist and album", playlist.Track{Artist: "A", Album: "B"}, "A · B"},
		{"artist only", playlist.Track{Artist: "A"}, "A"},
		{"album only", playlist.Track{Album: "B"}, "B"},
		{"nothing", playlist.Track{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trackBody(tt.track); got != tt.expected {
				t.Errorf("trackBody() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNowPlaying_TrackIsTransient(t *testing.T) {
	mock := &mockNotifier{}
	p := NewNowPlaying(mock, -1)

	_ = p.Track(trackFixture("Song"))
	_ = p.Skipped(playback.ErrorEvent{Operation: errmsg.OpTrackOpen, Path: "/x.xyz", Err: errors.New("bad")})

	if !mock.notifications[0].Transient {
		t.Error("track notification should be transient")
	}
	if mock.notifications[1].Transient {
		t.Error("skip notification should stay in history")
	}
}

func TestNowPlaying_Clear(t *testing.T) {
	mock := &mockNotifier{}
	p := NewNowPlaying(mock, -1)

	if err := p.Clear(); err != nil {
		t.Fatalf("Clear() with nothing shown: %v", err)
	}
	if len(mock.closed) != 0 {
		t.Errorf("closed %v with nothing shown", mock.closed)
	}

	_ = p.Track(trackFixture("Song"))
	if err := p.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if len(mock.closed) != 1 || mock.closed[0] != 1 {
		t.Errorf("closed = %v, want [1]", mock.closed)
	}

	_ = p.Clear()
	if len(mock.closed) != 1 {
		t.Errorf("second Clear closed again: %v", mock.closed)
	}

	_ = p.Track(trackFixture("Next"))
	if got := mock.notifications[1].ReplacesID; got != 0 {
		t.Errorf("ReplacesID after Clear = %d, want 0", got)
	}
}
