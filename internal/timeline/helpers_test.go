package timeline

import "slices"

// fakePlayer delivers callbacks synchronously when the test advances it.
type fakePlayer struct {
	now      float64
	duration float64
	seeks    []float64

	nextID  int
	timeFns []callback
	metaFns []callback
}

type callback struct {
	id int
	fn func()
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{}
}

func (p *fakePlayer) CurrentTime() float64 { return p.now }
func (p *fakePlayer) Duration() float64    { return p.duration }

func (p *fakePlayer) Seek(t float64) {
	p.seeks = append(p.seeks, t)
	p.now = t
}

func (p *fakePlayer) OnTimeUpdate(fn func()) func() {
	return p.subscribe(&p.timeFns, fn)
}

func (p *fakePlayer) OnLoadedMetadata(fn func()) func() {
	return p.subscribe(&p.metaFns, fn)
}

func (p *fakePlayer) subscribe(list *[]callback, fn func()) func() {
	p.nextID++
	id := p.nextID
	*list = append(*list, callback{id: id, fn: fn})
	return func() {
		*list = slices.DeleteFunc(*list, func(c callback) bool { return c.id == id })
	}
}

// load sets the duration and fires loaded metadata.
func (p *fakePlayer) load(duration float64) {
	p.duration = duration
	for _, c := range slices.Clone(p.metaFns) {
		c.fn()
	}
}

// tick moves playback to t and fires a time update.
func (p *fakePlayer) tick(t float64) {
	p.now = t
	for _, c := range slices.Clone(p.timeFns) {
		c.fn()
	}
}

func markersAt(times ...float64) []*Marker {
	out := make([]*Marker, len(times))
	for i, t := range times {
		out[i] = &Marker{Time: t, Text: "m"}
	}
	return out
}

func timesOf(markers []*Marker) []float64 {
	out := make([]float64, len(markers))
	for i, m := range markers {
		out[i] = m.Time
	}
	return out
}

// recorder collects events of a controller.
type recorder struct {
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(typ EventType) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.events = nil
}
