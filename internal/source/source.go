// Package source reads marker sets from files: JSON marker lists, WebVTT and SRT cue
// files, and chapters embedded in audio files.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/listenupapp/markertrack/internal/timeline"
	"github.com/listenupapp/markertrack/internal/validation"
)

// Format is a marker file format.
type Format string

const (
	FormatJSON   Format = "json"
	FormatWebVTT Format = "webvtt"
	FormatSRT    Format = "srt"
	FormatAudio  Format = "audio"
)

// Set is the result of reading a marker source.
type Set struct {
	Format  Format
	Markers []*timeline.Marker
	// Duration of the media in seconds, when the source knows it. Zero otherwise.
	Duration float64
}

var audioExtensions = map[string]bool{
	".m4b":  true,
	".m4a":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".json":
		return FormatJSON, nil
	case ext == ".vtt":
		return FormatWebVTT, nil
	case ext == ".srt":
		return FormatSRT, nil
	case audioExtensions[ext]:
		return FormatAudio, nil
	default:
		return "", fmt.Errorf("unsupported marker source %q", ext)
	}
}

// Load reads the markers in the file at path.
func Load(ctx context.Context, path string) (*Set, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == FormatAudio {
		return LoadAudio(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open marker source: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode reads markers in a text format from r.
func Decode(r io.Reader, format Format) (*Set, error) {
	var (
		set *Set
		err error
	)
	switch format {
	case FormatJSON:
		set, err = DecodeJSON(r)
	case FormatWebVTT:
		set, err = DecodeWebVTT(r)
	case FormatSRT:
		set, err = DecodeSRT(r)
	default:
		return nil, fmt.Errorf("format %q cannot be decoded from a stream", format)
	}
	if err != nil {
		return nil, err
	}
	if err := check(set); err != nil {
		return nil, err
	}
	return set, nil
}

type checkedSet struct {
	Duration float64        `json:"duration" validate:"gte=0,finite"`
	Markers  []checkedEntry `json:"markers" validate:"dive"`
}

type checkedEntry struct {
	Time float64 `json:"time" validate:"gte=0,finite"`
}

var validator = validation.New()

// check rejects negative or non-finite times.
func check(set *Set) error {
	in := checkedSet{Duration: set.Duration, Markers: make([]checkedEntry, len(set.Markers))}
	for i, m := range set.Markers {
		in.Markers[i] = checkedEntry{Time: m.Time}
	}
	return validator.Validate(in)
}
