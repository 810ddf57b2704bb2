// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Playback operations
	OpTrackOpen   Op = "open track"
	OpTrackSeek   Op = "seek track"
	OpAudioOutput Op = "start audio output"

	// Library operations
	OpLibraryScan Op = "scan library"

	// Settings
	OpConfigLoad Op = "load configuration"
	OpStateLoad  Op = "load saved state"
	OpStateSave  Op = "save state"

	// Rendering
	OpRenderWrite Op = "write rendered audio"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
