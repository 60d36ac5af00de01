// Package render turns timeline events into something that can be drawn.
//
// A Layout subscribes to a timeline.Controller and keeps a view model of the scrub
// bar: where each marker glyph sits, which one is active, and what the overlay shows.
// Terminal draws a View with lipgloss.
package render

import (
	"slices"
	"sync"

	"github.com/listenupapp/markertrack/internal/timeline"
)

// View is a snapshot of a Layout.
type View struct {
	Duration    float64               `json:"duration"`
	Tips        bool                  `json:"tips"`
	Glyphs      []timeline.Placement  `json:"glyphs"`
	Active      timeline.Index        `json:"active"`
	Overlay     timeline.OverlayState `json:"overlay"`
	LastReached string                `json:"last_reached,omitempty"`
	// Moved lists the keys whose glyphs changed time in the last re-sort.
	Moved   []string `json:"moved,omitempty"`
	Version uint64   `json:"version"`
}

// Layout is a view model maintained from timeline events. Safe for concurrent use.
type Layout struct {
	mu   sync.RWMutex
	view View
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{}
}

// Attach subscribes the layout to c and returns the unsubscribe function.
func (l *Layout) Attach(c *timeline.Controller) func() {
	return c.Subscribe(l.Apply)
}

// Apply updates the layout for one event. It satisfies timeline.Listener.
func (l *Layout) Apply(ev timeline.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := &l.view
	switch data := ev.Data.(type) {
	case timeline.InitializedData:
		*v = View{
			Duration: data.Duration,
			Tips:     data.Tips,
			Glyphs:   data.Placements,
			Version:  v.Version,
		}
	case timeline.MarkersChangedData:
		v.Moved = nil
		if data.Reason == timeline.ReasonTimesUpdated {
			v.Moved = moved(v.Glyphs, data.Placements)
		}
		v.Duration = data.Duration
		v.Glyphs = data.Placements
		v.Active = timeline.None
		for i, g := range v.Glyphs {
			if g.Active {
				v.Active = timeline.At(i)
			}
		}
	case timeline.ActiveChangedData:
		v.Active = data.Current
		v.Glyphs = slices.Clone(v.Glyphs)
		pos, ok := data.Current.Get()
		for i := range v.Glyphs {
			v.Glyphs[i].Active = ok && i == pos
		}
	case timeline.MarkerReachedData:
		v.LastReached = data.Key
	case timeline.OverlayState:
		v.Overlay = data
	case timeline.DestroyedData:
		*v = View{Version: v.Version}
	default:
		return
	}
	v.Version++
}

// View returns a copy of the current view.
func (l *Layout) View() View {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v := l.view
	v.Glyphs = slices.Clone(l.view.Glyphs)
	v.Moved = slices.Clone(l.view.Moved)
	return v
}

// moved returns the keys placed at a different time than before.
func moved(before, after []timeline.Placement) []string {
	old := make(map[string]float64, len(before))
	for _, g := range before {
		old[g.Key] = g.Time
	}
	var keys []string
	for _, g := range after {
		if t, ok := old[g.Key]; ok && t != g.Time {
			keys = append(keys, g.Key)
		}
	}
	return keys
}
