package timeline

// EventType identifies what changed in a timeline.
type EventType string

// Event types published by a Controller.
const (
	EventInitialized    EventType = "timeline.initialized"
	EventDestroyed      EventType = "timeline.destroyed"
	EventMarkersChanged EventType = "markers.changed"
	EventActiveChanged  EventType = "marker.active_changed"
	EventMarkerReached  EventType = "marker.reached"
	EventOverlayChanged EventType = "overlay.changed"
)

// Event is a notification from a Controller. Data holds one of the *Data types below.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Listener receives events synchronously, in the order they happen.
type Listener func(Event)

// ChangeReason says why the marker set changed.
type ChangeReason string

// Change reasons.
const (
	ReasonAdded        ChangeReason = "added"
	ReasonRemoved      ChangeReason = "removed"
	ReasonCleared      ChangeReason = "cleared"
	ReasonReset        ChangeReason = "reset"
	ReasonTimesUpdated ChangeReason = "times_updated"
)

// InitializedData is sent when metadata loaded and the timeline was (re)built.
type InitializedData struct {
	Duration   float64     `json:"duration"`
	Tips       bool        `json:"tips"`
	Placements []Placement `json:"placements"`
}

// MarkersChangedData carries the full marker layout after a change.
type MarkersChangedData struct {
	Reason     ChangeReason `json:"reason"`
	Keys       []string     `json:"keys,omitempty"` // added or removed keys
	Duration   float64      `json:"duration"`
	Placements []Placement  `json:"placements"`
}

// ActiveChangedData is sent when the active marker changes.
type ActiveChangedData struct {
	Previous Index  `json:"previous"`
	Current  Index  `json:"current"`
	Key      string `json:"key,omitempty"`
}

// MarkerReachedData is sent when playback enters a marker's window.
type MarkerReachedData struct {
	Index  Index   `json:"index"`
	Key    string  `json:"key"`
	Time   float64 `json:"time"`
	Text   string  `json:"text"`
	Marker *Marker `json:"-"`
}

// OverlayChangedData is the new overlay state.
type OverlayChangedData = OverlayState

// DestroyedData is sent once when a Controller is destroyed.
type DestroyedData struct{}
