// Package notify shows desktop notifications for the player: the track that
// just started, and tracks that were skipped because they could not be
// played.
package notify

// Urgency is the freedesktop urgency hint. The player only uses two levels.
type Urgency byte

const (
	UrgencyLow    Urgency = 0 // track changes
	UrgencyNormal Urgency = 1 // skipped tracks
)

// Notification is one desktop notification.
type Notification struct {
	Title      string
	Body       string
	Icon       string // file path or theme icon name
	Timeout    int32  // ms, -1 = server default, 0 = never expire
	ReplacesID uint32 // 0 = new notification
	Urgency    Urgency
	Transient  bool // skip the notification history
}

// Notifier sends and withdraws desktop notifications.
type Notifier interface {
	// Notify shows n and returns its ID, or 0 when nothing was shown.
	Notify(n Notification) (uint32, error)
	// Close withdraws a notification shown earlier.
	Close(id uint32) error
}

// noopNotifier is used when no notification service is reachable.
type noopNotifier struct{}

func (noopNotifier) Notify(Notification) (uint32, error) { return 0, nil }

func (noopNotifier) Close(uint32) error { return nil }
