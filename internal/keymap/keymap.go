// Package keymap defines key bindings for the application.
package keymap

// Binding describes a single key binding.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "playback", "queue"
}

// All contains all key bindings.
var All = []Binding{
	// Global
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},
	{ActionHelp, []string{"?"}, "Toggle help", "global"},

	// Playback
	{ActionPlayPause, []string{" "}, "Play/pause", "playback"},
	{ActionNextTrack, []string{"n", "pgdown"}, "Next track", "playback"},
	{ActionStop, []string{"s"}, "Stop", "playback"},
	{ActionSeekBack, []string{"left", "h"}, "Seek -5s", "playback"},
	{ActionSeekForward, []string{"right", "l"}, "Seek +5s", "playback"},
	{ActionRestart, []string{"home"}, "Restart track", "playback"},
	{ActionVolumeUp, []string{"+", "="}, "Volume up", "playback"},
	{ActionVolumeDown, []string{"-"}, "Volume down", "playback"},
	{ActionToggleLooping, []string{"L"}, "Toggle looping", "playback"},

	// Queue
	{ActionMoveDown, []string{"j", "down"}, "Move down", "queue"},
	{ActionMoveUp, []string{"k", "up"}, "Move up", "queue"},
	{ActionMoveItemDown, []string{"J"}, "Move track down", "queue"},
	{ActionMoveItemUp, []string{"K"}, "Move track up", "queue"},
	{ActionDelete, []string{"d", "delete"}, "Remove track", "queue"},
}

// Contexts lists the binding contexts in display order.
var Contexts = []string{"global", "playback", "queue"}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range All {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}

// Label returns the key as shown in help.
func Label(key string) string {
	if key == " " {
		return "space"
	}
	return key
}
