// Package timeline keeps a set of time-indexed markers synchronized with media playback.
//
// A Controller is attached to one Player. It owns a sorted Store of markers, a Tracker
// that maps playback time to the marker whose window contains it, and an Overlay that
// shows a message for a short time after a marker is reached. Presentation is left to
// subscribers of the Controller's events.
package timeline

// Marker is a point of interest on the media timeline.
//
// Markers are shared by pointer: callers may change Time in place and then call
// Controller.UpdateTimes to re-sort.
type Marker struct {
	Key         string         `json:"key"`
	Time        float64        `json:"time"`
	Text        string         `json:"text"`
	Class       string         `json:"class,omitempty"`
	OverlayText string         `json:"overlay_text,omitempty"`
	Attrs       map[string]any `json:"attrs,omitempty"`
}

// TimeAccessor reads the time in seconds of a marker.
type TimeAccessor interface {
	MarkerTime(m *Marker) float64
}

// TextAccessor reads a display string for a marker.
type TextAccessor interface {
	MarkerText(m *Marker) string
}

// TimeFunc adapts a function to TimeAccessor.
type TimeFunc func(m *Marker) float64

// MarkerTime calls f(m).
func (f TimeFunc) MarkerTime(m *Marker) float64 { return f(m) }

// TextFunc adapts a function to TextAccessor.
type TextFunc func(m *Marker) string

// MarkerText calls f(m).
func (f TextFunc) MarkerText(m *Marker) string { return f(m) }

// Default accessors.
var (
	// FieldTime reads Marker.Time.
	FieldTime TimeAccessor = TimeFunc(func(m *Marker) float64 { return m.Time })

	// DefaultTipText renders the tooltip shown over a marker glyph.
	DefaultTipText TextAccessor = TextFunc(func(m *Marker) string { return "Break: " + m.Text })

	// DefaultOverlayText renders the overlay message shown after a marker is reached.
	DefaultOverlayText TextAccessor = TextFunc(func(m *Marker) string { return "Break overlay: " + m.OverlayText })
)
