// Package player provides a headless media player that advances playback on a
// ticker and reports time updates the way a browser media element does.
package player

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"
)

// DefaultInterval is how often a playing Simulated reports a time update.
const DefaultInterval = 250 * time.Millisecond

// Status is a snapshot of a Simulated player.
type Status struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Playing  bool    `json:"playing"`
	Rate     float64 `json:"rate"`
	Loaded   bool    `json:"loaded"`
	Ended    bool    `json:"ended"`
}

// Simulated is a media player without media. Callbacks run on the goroutine that
// calls Run, never while the player's lock is held.
type Simulated struct {
	mu       sync.Mutex
	position float64
	duration float64
	playing  bool
	ended    bool
	rate     float64
	loaded   bool
	lastTick time.Time

	pendingTime bool
	pendingMeta bool
	notify      chan struct{}

	nextID  int
	timeFns []handler
	metaFns []handler

	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type handler struct {
	id int
	fn func()
}

// Option configures a Simulated player.
type Option func(*Simulated)

// WithInterval sets the time update interval.
func WithInterval(d time.Duration) Option {
	return func(p *Simulated) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Simulated) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Simulated) { p.logger = logger }
}

// NewSimulated creates a player with no media loaded. Its duration is NaN until Load.
func NewSimulated(opts ...Option) *Simulated {
	p := &Simulated{
		duration: math.NaN(),
		rate:     1,
		notify:   make(chan struct{}, 1),
		interval: DefaultInterval,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentTime returns the playback position in seconds.
func (p *Simulated) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Duration returns the media duration in seconds, NaN before Load.
func (p *Simulated) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Status returns a snapshot of the player.
func (p *Simulated) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Position: p.position,
		Duration: p.duration,
		Playing:  p.playing,
		Rate:     p.rate,
		Loaded:   p.loaded,
		Ended:    p.ended,
	}
}

// Load replaces the media with one of the given duration, rewinds, pauses and
// reports loaded metadata.
func (p *Simulated) Load(duration float64) {
	p.mu.Lock()
	p.duration = duration
	p.position = 0
	p.playing = false
	p.ended = false
	p.loaded = true
	p.pendingMeta = true
	p.mu.Unlock()

	p.logger.Debug("media loaded", "duration", duration)
	p.wake()
}

// Play starts advancing playback. Does nothing before Load.
func (p *Simulated) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded || p.playing {
		return
	}
	if p.ended {
		p.position = 0
		p.ended = false
	}
	p.playing = true
	p.lastTick = p.now()
}

// Pause stops advancing playback.
func (p *Simulated) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.advanceLocked()
	p.playing = false
}

// SetRate sets the playback rate. Non-positive rates are ignored.
func (p *Simulated) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rate <= 0 {
		return
	}
	if p.playing {
		p.advanceLocked()
	}
	p.rate = rate
}

// Seek moves playback to t, clamped to the media. The time update is reported
// asynchronously by Run.
func (p *Simulated) Seek(t float64) {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return
	}
	p.position = clamp(t, p.duration)
	p.ended = false
	p.lastTick = p.now()
	p.pendingTime = true
	p.mu.Unlock()

	p.wake()
}

// OnTimeUpdate registers fn for time updates.
func (p *Simulated) OnTimeUpdate(fn func()) func() {
	return p.subscribe(&p.timeFns, fn)
}

// OnLoadedMetadata registers fn for loaded metadata.
func (p *Simulated) OnLoadedMetadata(fn func()) func() {
	return p.subscribe(&p.metaFns, fn)
}

func (p *Simulated) subscribe(list *[]handler, fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	*list = append(*list, handler{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		*list = slices.DeleteFunc(*list, func(h handler) bool { return h.id == id })
	}
}

// Run delivers callbacks until ctx is cancelled.
func (p *Simulated) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.step()
		case <-p.notify:
			p.flush()
		}
	}
}

// step advances a playing player and reports the time update.
func (p *Simulated) step() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.advanceLocked()
	p.pendingTime = true
	p.mu.Unlock()

	p.flush()
}

// flush runs pending callbacks. Metadata goes first so listeners are in place for
// the time update that may follow.
func (p *Simulated) flush() {
	p.mu.Lock()
	meta, tick := p.pendingMeta, p.pendingTime
	p.pendingMeta, p.pendingTime = false, false
	metaFns := slices.Clone(p.metaFns)
	p.mu.Unlock()

	if meta {
		for _, h := range metaFns {
			h.fn()
		}
	}
	if tick {
		p.mu.Lock()
		timeFns := slices.Clone(p.timeFns)
		p.mu.Unlock()
		for _, h := range timeFns {
			h.fn()
		}
	}
}

func (p *Simulated) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Simulated) advanceLocked() {
	now := p.now()
	elapsed := now.Sub(p.lastTick).Seconds() * p.rate
	p.lastTick = now

	p.position = clamp(p.position+elapsed, p.duration)
	if p.position >= p.duration {
		p.position = p.duration
		p.playing = false
		p.ended = true
		p.logger.Debug("playback ended", "duration", p.duration)
	}
}

func clamp(t, duration float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}
