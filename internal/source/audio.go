package source

import (
	"context"
	"fmt"

	"github.com/simonhull/audiometa"

	"github.com/listenupapp/markertrack/internal/timeline"
)

// ClassChapter is set on markers read from audio chapters.
const ClassChapter = "chapter"

// LoadAudio reads the chapters of an audio file as markers. The set carries the
// audio duration.
func LoadAudio(ctx context.Context, path string) (*Set, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	set := &Set{
		Format:   FormatAudio,
		Duration: file.Audio.Duration.Seconds(),
	}
	for _, ch := range file.Chapters {
		set.Markers = append(set.Markers, &timeline.Marker{
			Time:  ch.StartTime.Seconds(),
			Text:  ch.Title,
			Class: ClassChapter,
			Attrs: map[string]any{
				"index":       ch.Index,
				"end":         ch.EndTime.Seconds(),
				"format":      file.Format.String(),
				"placeholder": IsPlaceholderTitle(ch.Title),
			},
		})
	}

	if err := check(set); err != nil {
		return nil, err
	}
	return set, nil
}
