package timeline

import (
	"math"

	"github.com/listenupapp/markertrack/internal/errors"
)

// ErrDurationUnknown is returned when a position is requested before the media
// reports a usable duration.
var ErrDurationUnknown = errors.NotReady("media duration unknown")

// Position converts a time in seconds to a percentage of duration.
func Position(t, duration float64) (float64, error) {
	if !validDuration(duration) {
		return 0, ErrDurationUnknown
	}
	return t / duration * 100, nil
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// Placement is what a renderer needs to draw one marker.
type Placement struct {
	Key   string  `json:"key"`
	Time  float64 `json:"time"`
	Text  string  `json:"text"`
	Class string  `json:"class,omitempty"`

	// Position is the offset along the timeline in percent. Only meaningful when
	// Positioned is true.
	Position   float64 `json:"position"`
	Positioned bool    `json:"positioned"`
	Active     bool    `json:"active"`
}

// Placements resolves placements for markers in order. active is the position of the
// active marker, if any.
func Placements(markers []*Marker, times TimeAccessor, tip TextAccessor, duration float64, active Index) []Placement {
	if times == nil {
		times = FieldTime
	}
	if tip == nil {
		tip = DefaultTipText
	}

	activePos, hasActive := active.Get()
	out := make([]Placement, len(markers))
	for i, m := range markers {
		t := times.MarkerTime(m)
		p := Placement{
			Key:    m.Key,
			Time:   t,
			Text:   tip.MarkerText(m),
			Class:  m.Class,
			Active: hasActive && i == activePos,
		}
		if pos, err := Position(t, duration); err == nil {
			p.Position = pos
			p.Positioned = true
		}
		out[i] = p
	}
	return out
}
