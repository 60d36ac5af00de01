package watcher

import "time"

// EventType is the kind of change seen on a watched file.
type EventType int

const (
	// EventAdded fires when a watched path appears after settling.
	EventAdded EventType = iota
	// EventModified fires when a known file changed and settled.
	EventModified
	// EventRemoved fires when a watched file is gone.
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a settled change to a watched file.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
