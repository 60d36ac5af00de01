package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/asticode/go-astisub"

	"github.com/listenupapp/markertrack/internal/timeline"
)

// Cue classes set on markers read from subtitle files.
const ClassCue = "cue"

// DecodeWebVTT turns each WebVTT cue into a marker at the cue start.
func DecodeWebVTT(r io.Reader) (*Set, error) {
	subs, err := astisub.ReadFromWebVTT(r)
	if err != nil {
		return nil, fmt.Errorf("decode webvtt: %w", err)
	}
	return fromSubtitles(FormatWebVTT, subs), nil
}

// DecodeSRT turns each SubRip cue into a marker at the cue start.
func DecodeSRT(r io.Reader) (*Set, error) {
	subs, err := astisub.ReadFromSRT(r)
	if err != nil {
		return nil, fmt.Errorf("decode srt: %w", err)
	}
	return fromSubtitles(FormatSRT, subs), nil
}

// fromSubtitles keeps the first cue line as marker text and the rest as overlay text.
func fromSubtitles(format Format, subs *astisub.Subtitles) *Set {
	set := &Set{Format: format}
	for _, item := range subs.Items {
		lines := make([]string, 0, len(item.Lines))
		for _, l := range item.Lines {
			if s := strings.TrimSpace(l.String()); s != "" {
				lines = append(lines, s)
			}
		}

		m := &timeline.Marker{
			Time:  item.StartAt.Seconds(),
			Class: ClassCue,
			Attrs: map[string]any{"end": item.EndAt.Seconds()},
		}
		if len(lines) > 0 {
			m.Text = lines[0]
			m.OverlayText = strings.Join(lines[1:], " ")
		}
		set.Markers = append(set.Markers, m)
	}
	return set
}
