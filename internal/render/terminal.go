package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	cellTrack  = "─"
	cellPlayed = "━"
	cellMarker = "◆"
	cellHead   = "●"
)

var (
	trackStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	playedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	markerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	headStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	overlayStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	tipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Terminal draws a View as a scrub bar with marker glyphs.
type Terminal struct {
	Width int
}

// NewTerminal returns a renderer for a bar of the given width in cells.
func NewTerminal(width int) *Terminal {
	return &Terminal{Width: max(width, 10)}
}

// Render draws v with the playhead at now seconds.
func (r *Terminal) Render(v View, now float64) string {
	var b strings.Builder

	if v.Overlay.Visible {
		b.WriteString(overlayStyle.Render(v.Overlay.Text))
	}
	b.WriteString("\n")

	b.WriteString(r.bar(v, now))
	b.WriteString("\n")

	b.WriteString(helpStyle.Render(fmt.Sprintf("%s / %s", Clock(now), Clock(v.Duration))))
	b.WriteString("\n")

	if v.Tips {
		for _, g := range v.Glyphs {
			line := fmt.Sprintf("%s %s  %s", cellMarker, Clock(g.Time), g.Text)
			if g.Active {
				b.WriteString(activeStyle.Render(line))
			} else {
				b.WriteString(tipStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r *Terminal) bar(v View, now float64) string {
	cells := make([]string, r.Width)
	head := -1
	if v.Duration > 0 && !math.IsNaN(v.Duration) {
		head = r.column(now / v.Duration * 100)
	}

	for i := range cells {
		if i <= head {
			cells[i] = playedStyle.Render(cellPlayed)
		} else {
			cells[i] = trackStyle.Render(cellTrack)
		}
	}
	for _, g := range v.Glyphs {
		if !g.Positioned || g.Position < 0 || g.Position > 100 {
			continue
		}
		style := markerStyle
		if g.Active {
			style = activeStyle
		}
		cells[r.column(g.Position)] = style.Render(cellMarker)
	}
	if head >= 0 {
		cells[head] = headStyle.Render(cellHead)
	}
	return strings.Join(cells, "")
}

// column maps a percentage to a cell.
func (r *Terminal) column(percent float64) int {
	col := int(math.Round(percent / 100 * float64(r.Width-1)))
	return min(max(col, 0), r.Width-1)
}

// Clock formats seconds as m:ss or h:mm:ss.
func Clock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "--:--"
	}
	s := int(seconds)
	h, m := s/3600, (s%3600)/60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s%60)
	}
	return fmt.Sprintf("%d:%02d", m, s%60)
}
