package session

import (
	"time"

	"github.com/samber/lo"

	"github.com/listenupapp/markertrack/internal/player"
	"github.com/listenupapp/markertrack/internal/render"
	"github.com/listenupapp/markertrack/internal/timeline"
)

// MarkerInput is a marker as supplied by a client. Keys are always assigned by
// the session.
type MarkerInput struct {
	Time        float64        `json:"time" validate:"gte=0,finite"`
	Text        string         `json:"text,omitempty" validate:"max=500"`
	Class       string         `json:"class,omitempty" validate:"max=64"`
	OverlayText string         `json:"overlay_text,omitempty" validate:"max=2000"`
	Attrs       map[string]any `json:"attrs,omitempty"`
}

func (in MarkerInput) marker() *timeline.Marker {
	return &timeline.Marker{
		Time:        in.Time,
		Text:        in.Text,
		Class:       in.Class,
		OverlayText: in.OverlayText,
		Attrs:       in.Attrs,
	}
}

// MarkerPatch changes some fields of a marker. Nil fields are left alone.
type MarkerPatch struct {
	Time        *float64 `json:"time,omitempty" validate:"omitnil,gte=0,finite"`
	Text        *string  `json:"text,omitempty" validate:"omitnil,max=500"`
	Class       *string  `json:"class,omitempty" validate:"omitnil,max=64"`
	OverlayText *string  `json:"overlay_text,omitempty" validate:"omitnil,max=2000"`
}

// CreateRequest describes a new session.
type CreateRequest struct {
	// Duration of the simulated media in seconds. May be zero when Source
	// provides one.
	Duration float64       `json:"duration,omitempty" validate:"gte=0,finite"`
	Markers  []MarkerInput `json:"markers,omitempty" validate:"dive"`
	// Source is a marker file path relative to the configured source directory.
	Source string `json:"source,omitempty" validate:"max=1024"`
	Watch  bool   `json:"watch,omitempty"`

	DisableTips     bool     `json:"disable_tips,omitempty"`
	DisableTipClick bool     `json:"disable_tip_click,omitempty"`
	Overlay         *bool    `json:"overlay,omitempty"`
	OverlayTime     float64  `json:"overlay_time,omitempty" validate:"gte=0,finite"`
	Rate            float64  `json:"rate,omitempty" validate:"gte=0,lte=16,finite"`
	Autoplay        bool     `json:"autoplay,omitempty"`
	Start           *float64 `json:"start,omitempty" validate:"omitnil,gte=0,finite"`
}

// Summary is the list form of a session.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source,omitempty"`
	Markers   int       `json:"markers"`
	Duration  float64   `json:"duration"`
	Position  float64   `json:"position"`
	Playing   bool      `json:"playing"`
}

// Snapshot is the full state of a session.
type Snapshot struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Source    string            `json:"source,omitempty"`
	Watching  bool              `json:"watching"`
	Player    player.Status     `json:"player"`
	Timeline  timeline.State    `json:"timeline"`
	View      render.View       `json:"view"`
	Markers   []timeline.Marker `json:"markers"`
}

// copyMarkers detaches markers from the controller so they can be read
// without the session lock.
func copyMarkers(markers []*timeline.Marker) []timeline.Marker {
	return lo.Map(markers, func(m *timeline.Marker, _ int) timeline.Marker {
		return *m
	})
}

func inputsToMarkers(in []MarkerInput) []*timeline.Marker {
	return lo.Map(in, func(m MarkerInput, _ int) *timeline.Marker {
		return m.marker()
	})
}
