package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickInterval is the period of the control loop. Each tick drains the
// engine's status queue once.
const TickInterval = 16 * time.Millisecond

// TickMsg drives the control loop.
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
