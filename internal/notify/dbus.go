//go:build linux

package notify

import (
	"path/filepath"

	"github.com/godbus/dbus/v5"
)

const (
	appName             = "decomposer"
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"
)

// dbusNotifier talks to the session notification service.
type dbusNotifier struct {
	obj dbus.BusObject
}

// New connects to the session bus. Without one it returns a notifier that
// shows nothing, so the player runs the same either way.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return noopNotifier{}, nil //nolint:nilerr // no session bus means no notifications
	}
	return &dbusNotifier{obj: conn.Object(dbusNotifyDest, dbusNotifyPath)}, nil
}

// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout) -> id
func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	call := n.obj.Call(
		dbusNotifyInterface+".Notify",
		0,
		appName,
		notif.ReplacesID,
		appIcon(notif.Icon),
		notif.Title,
		notif.Body,
		[]string{},
		hints(notif),
		notif.Timeout,
	)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (n *dbusNotifier) Close(id uint32) error {
	if id == 0 {
		return nil
	}
	return n.obj.Call(dbusNotifyInterface+".CloseNotification", 0, id).Err
}

// hints builds the notification hints. Album art files go in image-path so
// servers that scale icons by name still show the cover.
func hints(n Notification) map[string]dbus.Variant {
	h := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
	}
	if n.Transient {
		h["transient"] = dbus.MakeVariant(true)
	}
	if filepath.IsAbs(n.Icon) {
		h["image-path"] = dbus.MakeVariant("file://" + n.Icon)
	}
	return h
}

// appIcon returns the icon argument: theme names as is, files as URIs.
func appIcon(icon string) string {
	if filepath.IsAbs(icon) {
		return "file://" + icon
	}
	return icon
}
