//go:build linux

package notify

import (
	"os"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestHints(t *testing.T) {
	tests := []struct {
		name      string
		n         Notification
		wantImage string
		transient bool
	}{
		{"theme icon", Notification{Icon: "dialog-warning", Urgency: UrgencyNormal}, "", false},
		{"cover file", Notification{Icon: "/music/a/cover.jpg", Transient: true}, "file:///music/a/cover.jpg", true},
		{"no icon", Notification{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hints(tt.n)
			if got := h["urgency"].Value(); got != byte(tt.n.Urgency) {
				t.Errorf("urgency = %v, want %d", got, tt.n.Urgency)
			}
			if got := h["desktop-entry"].Value(); got != appName {
				t.Errorf("desktop-entry = %v, want %q", got, appName)
			}
			img, ok := h["image-path"]
			if tt.wantImage == "" && ok {
				t.Errorf("image-path = %v, want none", img.Value())
			}
			if tt.wantImage != "" && (!ok || img.Value() != tt.wantImage) {
				t.Errorf("image-path = %v, want %q", img, tt.wantImage)
			}
			_, ok = h["transient"]
			if ok != tt.transient {
				t.Errorf("transient present = %v, want %v", ok, tt.transient)
			}
		})
	}
}

func TestAppIcon(t *testing.T) {
	if got := appIcon("dialog-warning"); got != "dialog-warning" {
		t.Errorf("appIcon(name) = %q", got)
	}
	if got := appIcon("/a/cover.png"); got != "file:///a/cover.png" {
		t.Errorf("appIcon(path) = %q", got)
	}
}

func TestNotifyAndClose(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}
	if _, err := dbus.SessionBus(); err != nil {
		t.Skip("session bus unreachable")
	}

	n, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	p := NewNowPlaying(n, 1000)

	if err := p.Track(trackFixture("Song 1")); err != nil {
		t.Fatalf("Track() error: %v", err)
	}
	first := p.lastID
	if err := p.Track(trackFixture("Song 2")); err != nil {
		t.Fatalf("Track() error: %v", err)
	}
	if first != 0 && p.lastID != first {
		t.Errorf("second track got id=%d, want replaced id=%d", p.lastID, first)
	}
	if err := p.Clear(); err != nil {
		t.Errorf("Clear() error: %v", err)
	}
}
