package stderr

import (
	"bufio"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Messages receives stderr lines captured from C libraries, for display in
// the UI. Lines are dropped when nobody reads it.
var Messages = make(chan string, 100)

// forward logs each non-empty line of r as a warning and offers it to out
// without blocking. It returns when r is closed.
func forward(r io.Reader, log zerolog.Logger, out chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		log.Warn().Str("source", "stderr").Msg(line)
		select {
		case out <- line:
		default:
			// Channel full, drop message to avoid blocking
		}
	}
}
