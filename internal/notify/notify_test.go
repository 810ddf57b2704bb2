package notify

import "testing"

func TestUrgencyValues(t *testing.T) {
	// freedesktop urgency levels
	if UrgencyLow != 0 {
		t.Errorf("UrgencyLow = %d, want 0", UrgencyLow)
	}
	if UrgencyNormal != 1 {
		t.Errorf("UrgencyNormal = %d, want 1", UrgencyNormal)
	}
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = noopNotifier{}
	id, err := n.Notify(Notification{Title: "Song"})
	if err != nil || id != 0 {
		t.Errorf("Notify() = %d, %v; want 0, nil", id, err)
	}
	if err := n.Close(7); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
