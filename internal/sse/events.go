// Package sse streams timeline events to HTTP clients as Server-Sent Events.
package sse

import (
	"time"

	"github.com/listenupapp/markertrack/internal/player"
	"github.com/listenupapp/markertrack/internal/timeline"
)

// EventType is the SSE event name.
type EventType string

const (
	// Timeline events, forwarded as published by a session's controller.
	EventInitialized    = EventType(timeline.EventInitialized)
	EventDestroyed      = EventType(timeline.EventDestroyed)
	EventMarkersChanged = EventType(timeline.EventMarkersChanged)
	EventActiveChanged  = EventType(timeline.EventActiveChanged)
	EventMarkerReached  = EventType(timeline.EventMarkerReached)
	EventOverlayChanged = EventType(timeline.EventOverlayChanged)

	// EventSessionCreated is sent to firehose clients when a session starts.
	EventSessionCreated EventType = "session.created"
	// EventSessionDeleted is sent when a session is destroyed.
	EventSessionDeleted EventType = "session.deleted"
	// EventPlayerState is sent after play, pause, seek or rate changes.
	EventPlayerState EventType = "player.state"
	// EventMarkersReloaded is sent when a watched marker file was read again.
	EventMarkersReloaded EventType = "markers.reloaded"

	// EventHeartbeat keeps idle connections open.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message on the stream.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	// SessionID scopes the event. Empty means every client receives it.
	SessionID string `json:"session_id,omitempty"`
}

// FromTimeline wraps a controller event for sessionID.
func FromTimeline(sessionID string, ev timeline.Event) Event {
	return Event{
		Type:      EventType(ev.Type),
		SessionID: sessionID,
		Data:      ev.Data,
		Timestamp: time.Now(),
	}
}

// SessionCreatedData describes a new session.
type SessionCreatedData struct {
	SessionID string  `json:"session_id"`
	Markers   int     `json:"markers"`
	Duration  float64 `json:"duration"`
	Source    string  `json:"source,omitempty"`
}

// NewSessionCreatedEvent creates a session.created event.
func NewSessionCreatedEvent(data SessionCreatedData) Event {
	return Event{
		Type:      EventSessionCreated,
		SessionID: data.SessionID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewSessionDeletedEvent creates a session.deleted event.
func NewSessionDeletedEvent(sessionID string) Event {
	return Event{
		Type:      EventSessionDeleted,
		SessionID: sessionID,
		Data:      map[string]string{"session_id": sessionID},
		Timestamp: time.Now(),
	}
}

// NewPlayerStateEvent creates a player.state event.
func NewPlayerStateEvent(sessionID string, st player.Status) Event {
	return Event{
		Type:      EventPlayerState,
		SessionID: sessionID,
		Data:      st,
		Timestamp: time.Now(),
	}
}

// MarkersReloadedData reports a marker file reload.
type MarkersReloadedData struct {
	Path    string `json:"path"`
	Markers int    `json:"markers"`
	Error   string `json:"error,omitempty"`
}

// NewMarkersReloadedEvent creates a markers.reloaded event.
func NewMarkersReloadedEvent(sessionID string, data MarkersReloadedData) Event {
	return Event{
		Type:      EventMarkersReloaded,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      map[string]any{},
		Timestamp: time.Now(),
	}
}
