package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/llehouerou/decomposer/internal/keymap"
	"github.com/llehouerou/decomposer/internal/playback"
	"github.com/llehouerou/decomposer/internal/playlist"
	"github.com/llehouerou/decomposer/internal/state"
)

const (
	playerBarHeight = 4 // border + title + progress + border
	headerHeight    = 2 // title + separator
	statusHeight    = 1

	loopSymbol = "⟳"
)

var (
	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a78bfa"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#303030")).Foreground(lipgloss.Color("#c0c0c0"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c0c0c0"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f1a208"))
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 || m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.renderQueue())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderPlayerBar())
	return b.String()
}

func (m Model) queueRows() int {
	return max(m.height-headerHeight-statusHeight-playerBarHeight, 0)
}

func (m Model) renderHeader() string {
	q := m.coord.Queue()
	left := fmt.Sprintf("Queue (%s tracks)", humanize.Comma(int64(q.Len())))
	right := "cache " + humanize.Bytes(m.cache) + "/track"
	return row(headerStyle.Render(left), mutedStyle.Render(right), m.width)
}

func (m Model) renderQueue() string {
	tracks := m.coord.Queue().Tracks()
	rows := m.queueRows()
	lines := make([]string, 0, rows)
	for i := range rows {
		idx := i + m.offset
		if idx >= len(tracks) {
			lines = append(lines, strings.Repeat(" ", m.width))
			continue
		}
		text := fmt.Sprintf(" %3d  %s", idx+1, tracks[idx].DisplayName())
		text = fit(text, m.width)
		if idx == m.cursor {
			text = cursorStyle.Render(text)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	rows := m.queueRows()
	lines := make([]string, 0, rows)
	for _, ctx := range keymap.Contexts {
		for _, kb := range keymap.ByContext(ctx) {
			keys := strings.Join(m.keys.KeysFor(kb.Action), ", ")
			lines = append(lines, fit(fmt.Sprintf("  %-16s %s", keys, kb.Description), m.width))
		}
	}
	for len(lines) < rows {
		lines = append(lines, strings.Repeat(" ", m.width))
	}
	return strings.Join(lines[:rows], "\n")
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return mutedStyle.Render(fit(" ? help", m.width))
	}
	return errorStyle.Render(fit(" "+m.status, m.width))
}

func (m Model) renderPlayerBar() string {
	inner := max(m.width-4, 0)
	now, playing := m.coord.NowPlaying()

	st := m.coord.State()
	title := st.Symbol() + " " + st.String()
	if st.IsActive() {
		title = st.Symbol() + " " + describe(now.Track)
	}
	if m.coord.Buffering() {
		spin := m.spinner.View()
		title = fit(title, max(inner-lipgloss.Width(spin), 0)) + spin
	} else {
		title = fit(title, inner)
	}

	right := m.rightText(now, playing)
	var line string
	if playing {
		g := m.barGeometry(now)
		p := m.progress
		p.Width = g.width
		line = "  " + p.ViewAs(now.Progress()) + right
	} else {
		line = row("", right, inner)
	}

	return barStyle.Width(max(m.width-2, 0)).Render(titleStyle.Render(title) + "\n" + line)
}

// rightText is the part of the progress line after the bar.
func (m Model) rightText(now playback.NowPlaying, playing bool) string {
	var b strings.Builder
	b.WriteString(" ")
	if playing {
		b.WriteString(now.ProgressText())
		b.WriteString("  ")
	}
	fmt.Fprintf(&b, "vol %3d%%", int(m.coord.Volume()*100+0.5))
	if m.coord.Looping() {
		b.WriteString(" " + loopSymbol)
	} else {
		b.WriteString("  ")
	}
	return b.String()
}

type geometry struct {
	x, row, width int
}

// barGeometry locates the progress bar on screen for mouse seeking.
func (m Model) barGeometry(now playback.NowPlaying) geometry {
	inner := max(m.width-4, 0)
	right := lipgloss.Width(m.rightText(now, true))
	return geometry{
		x:     4, // border, padding, two spaces
		row:   m.height - 2,
		width: max(inner-2-right, 1),
	}
}

func describe(t playlist.Track) string {
	s := t.DisplayName()
	if t.Album != "" {
		s += " · " + t.Album
	}
	return s
}

// fit truncates s to width cells and pads it to exactly width.
func fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func row(left, right string, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func queueTrack(t playlist.Track) state.QueueTrack {
	return state.QueueTrack{Path: t.Path, Title: t.Title, Artist: t.Artist, Album: t.Album}
}

// FromQueueTrack converts a saved queue entry back into a track.
func FromQueueTrack(q state.QueueTrack) playlist.Track {
	return playlist.Track{Path: q.Path, Title: q.Title, Artist: q.Artist, Album: q.Album}
}
