//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpTrackOpen,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpTrackOpen,
			err:      errors.New("file not found"),
			expected: "Failed to open track: file not found",
		},
		{
			name:     "library scan operation",
			op:       OpLibraryScan,
			err:      errors.New("permission denied"),
			expected: "Failed to scan library: permission denied",
		},
		{
			name:     "audio output operation",
			op:       OpAudioOutput,
			err:      errors.New("no audio device"),
			expected: "Failed to start audio output: no audio device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpTrackSeek,
			context:  "song.mp3",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpTrackSeek,
			context:  "song.mp3",
			err:      errors.New("invalid frame"),
			expected: "Failed to seek track 'song.mp3': invalid frame",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpTrackSeek,
			context:  "",
			err:      errors.New("invalid frame"),
			expected: "Failed to seek track: invalid frame",
		},
		{
			name:     "config load with path context",
			op:       OpConfigLoad,
			context:  "/home/user/.config/decomposer/config.toml",
			err:      errors.New("bad toml"),
			expected: "Failed to load configuration '/home/user/.config/decomposer/config.toml': bad toml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestOpConstants(t *testing.T) {
	ops := []Op{
		OpTrackOpen, OpTrackSeek, OpAudioOutput,
		OpLibraryScan,
		OpConfigLoad, OpStateLoad, OpStateSave,
		OpRenderWrite,
		OpInitialize,
	}

	testErr := errors.New("test error")

	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			if op == "" {
				t.Error("Op constant should not be empty")
			}

			expected := "Failed to " + string(op) + ": test error"
			if result := Format(op, testErr); result != expected {
				t.Errorf("Format = %q, want %q", result, expected)
			}
		})
	}
}
