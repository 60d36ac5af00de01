package render

import (
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/markertrack/internal/timeline"
)

// stubPlayer is a minimal timeline.Player driven by the test.
type stubPlayer struct {
	now, duration float64
	timeFns       []func()
	metaFns       []func()
}

func (p *stubPlayer) CurrentTime() float64 { return p.now }
func (p *stubPlayer) Duration() float64    { return p.duration }
func (p *stubPlayer) Seek(t float64)       { p.now = t }

func (p *stubPlayer) OnTimeUpdate(fn func()) func() {
	p.timeFns = append(p.timeFns, fn)
	return func() { p.timeFns = nil }
}

func (p *stubPlayer) OnLoadedMetadata(fn func()) func() {
	p.metaFns = append(p.metaFns, fn)
	return func() { p.metaFns = nil }
}

func (p *stubPlayer) load(d float64) {
	p.duration = d
	for _, fn := range p.metaFns {
		fn()
	}
}

func (p *stubPlayer) tick(t float64) {
	p.now = t
	for _, fn := range p.timeFns {
		fn()
	}
}

func newAttached(t *testing.T, opts timeline.Options) (*timeline.Controller, *stubPlayer, *Layout) {
	t.Helper()
	p := &stubPlayer{duration: math.NaN()}
	c := timeline.New(p, opts)
	l := NewLayout()
	l.Attach(c)
	return c, p, l
}

func TestLayout_FollowsController(t *testing.T) {
	c, p, l := newAttached(t, timeline.Options{
		Markers: []*timeline.Marker{
			{Time: 10, Text: "intro", OverlayText: "skip intro"},
			{Time: 30, Text: "credits"},
		},
		Overlay: timeline.OverlayOptions{Display: true},
	})

	assert.Empty(t, l.View().Glyphs, "nothing placed before metadata")

	p.load(40)
	v := l.View()
	require.Len(t, v.Glyphs, 2)
	assert.InDelta(t, 25.0, v.Glyphs[0].Position, 1e-9)
	assert.InDelta(t, 75.0, v.Glyphs[1].Position, 1e-9)
	assert.True(t, v.Tips)

	p.tick(11)
	v = l.View()
	assert.Equal(t, timeline.At(0), v.Active)
	assert.True(t, v.Glyphs[0].Active)
	assert.False(t, v.Glyphs[1].Active)
	assert.True(t, v.Overlay.Visible)
	assert.Equal(t, "Break overlay: skip intro", v.Overlay.Text)
	assert.Equal(t, c.Markers()[0].Key, v.LastReached)

	c.Remove(c.Markers()[0].Key)
	v = l.View()
	require.Len(t, v.Glyphs, 1)
	assert.Equal(t, timeline.None, v.Active)
	assert.False(t, v.Overlay.Visible)
	assert.False(t, v.Glyphs[0].Active)

	c.Destroy()
	v = l.View()
	assert.Empty(t, v.Glyphs)
	assert.Greater(t, v.Version, uint64(0))
}

func TestLayout_UpdateTimesMovesGlyph(t *testing.T) {
	c, p, l := newAttached(t, timeline.Options{
		Markers: []*timeline.Marker{{Time: 10}, {Time: 20}},
	})
	p.load(100)

	m := c.Markers()[0]
	m.Time = 50
	c.UpdateTimes()

	v := l.View()
	assert.Equal(t, m.Key, v.Glyphs[1].Key)
	assert.InDelta(t, 50.0, v.Glyphs[1].Position, 1e-9)
	assert.Equal(t, []string{m.Key}, v.Moved)

	c.UpdateTimes()
	assert.Empty(t, l.View().Moved)
}

func TestLayout_ViewIsACopy(t *testing.T) {
	_, p, l := newAttached(t, timeline.Options{
		Markers: []*timeline.Marker{{Time: 10}},
	})
	p.load(40)

	v := l.View()
	v.Glyphs[0].Text = "changed"
	assert.NotEqual(t, "changed", l.View().Glyphs[0].Text)
}

func TestTerminal_Render(t *testing.T) {
	v := View{
		Duration: 40,
		Tips:     true,
		Glyphs: []timeline.Placement{
			{Key: "a", Time: 10, Position: 25, Positioned: true, Text: "Break: intro", Active: true},
			{Key: "b", Time: 30, Position: 75, Positioned: true, Text: "Break: credits"},
		},
		Active:  timeline.At(0),
		Overlay: timeline.OverlayState{Visible: true, Index: timeline.At(0), Text: "Break overlay: now"},
	}

	r := NewTerminal(41)
	out := r.Render(v, 12)
	lines := strings.Split(out, "\n")

	require.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, lines[0], "Break overlay: now")
	assert.Equal(t, 41, lipgloss.Width(lines[1]))
	assert.Equal(t, 2, strings.Count(lines[1], cellMarker))
	assert.Contains(t, lines[2], "0:12 / 0:40")
	assert.Contains(t, lines[3], "Break: intro")
	assert.Contains(t, lines[4], "Break: credits")
}

func TestTerminal_UnknownDuration(t *testing.T) {
	v := View{
		Duration: math.NaN(),
		Glyphs:   []timeline.Placement{{Key: "a", Time: 10}},
	}

	out := NewTerminal(20).Render(v, 0)
	assert.NotContains(t, out, cellMarker)
	assert.Contains(t, out, "--:--")
}

func TestClock(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{65.9, "1:05"},
		{3725, "1:02:05"},
		{-1, "--:--"},
		{math.NaN(), "--:--"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clock(tt.in))
	}
}
