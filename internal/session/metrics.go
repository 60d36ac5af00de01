package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/listenupapp/markertrack/internal/timeline"
)

const instrumentationName = "github.com/listenupapp/markertrack/internal/session"

// metrics are recorded on the global meter provider, a no-op unless one is
// installed.
type metrics struct {
	ticks       metric.Int64Counter
	reached     metric.Int64Counter
	transitions metric.Int64Counter
	active      metric.Int64UpDownCounter
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)

	out.ticks, err = m.Int64Counter(
		"markertrack.ticks",
		metric.WithDescription("Time updates delivered to timelines"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	out.reached, err = m.Int64Counter(
		"markertrack.markers.reached",
		metric.WithDescription("Markers reached during playback"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reached counter: %w", err)
	}

	out.transitions, err = m.Int64Counter(
		"markertrack.transitions",
		metric.WithDescription("Active marker changes, including to none"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	out.active, err = m.Int64UpDownCounter(
		"markertrack.sessions.active",
		metric.WithDescription("Open playback sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions gauge: %w", err)
	}

	return &out, nil
}

// observe records counters for one timeline event.
func (m *metrics) observe(ev timeline.Event) {
	ctx := context.Background()
	switch data := ev.Data.(type) {
	case timeline.ActiveChangedData:
		m.transitions.Add(ctx, 1)
	case timeline.MarkerReachedData:
		class := ""
		if data.Marker != nil {
			class = data.Marker.Class
		}
		m.reached.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
	}
}
