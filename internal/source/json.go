package source

import (
	"bytes"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/markertrack/internal/timeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// File is the JSON document form of a marker set. A bare array of markers is also
// accepted.
type File struct {
	Duration float64       `json:"duration,omitempty"`
	Markers  []MarkerEntry `json:"markers"`
}

// MarkerEntry is one marker in a JSON file.
type MarkerEntry struct {
	Time        float64        `json:"time"`
	Text        string         `json:"text"`
	Class       string         `json:"class,omitempty"`
	OverlayText string         `json:"overlay_text,omitempty"`
	Attrs       map[string]any `json:"attrs,omitempty"`
}

// Marker converts the entry to a timeline marker without a key.
func (e MarkerEntry) Marker() *timeline.Marker {
	return &timeline.Marker{
		Time:        e.Time,
		Text:        e.Text,
		Class:       e.Class,
		OverlayText: e.OverlayText,
		Attrs:       e.Attrs,
	}
}

// DecodeJSON reads a File or a bare array of MarkerEntry.
func DecodeJSON(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markers: %w", err)
	}

	var doc File
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &doc.Markers)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode markers: %w", err)
	}

	set := &Set{Format: FormatJSON, Duration: doc.Duration}
	for _, e := range doc.Markers {
		set.Markers = append(set.Markers, e.Marker())
	}
	return set, nil
}

// EncodeJSON writes markers in the File form.
func EncodeJSON(w io.Writer, duration float64, markers []*timeline.Marker) error {
	doc := File{Duration: duration, Markers: make([]MarkerEntry, len(markers))}
	for i, m := range markers {
		doc.Markers[i] = MarkerEntry{
			Time:        m.Time,
			Text:        m.Text,
			Class:       m.Class,
			OverlayText: m.OverlayText,
			Attrs:       m.Attrs,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
