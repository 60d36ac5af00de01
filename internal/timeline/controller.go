package timeline

import (
	"log/slog"
	"slices"
)

// Player is the media player a Controller is attached to.
//
// Subscriptions return a function that removes them.
type Player interface {
	CurrentTime() float64
	Duration() float64
	Seek(t float64)
	OnTimeUpdate(fn func()) (unsubscribe func())
	OnLoadedMetadata(fn func()) (unsubscribe func())
}

// OverlayOptions configures the overlay shown after a marker is reached.
type OverlayOptions struct {
	Display     bool
	DisplayTime float64 // seconds, defaults to 3
	Text        TextAccessor
}

// Options configures a Controller.
type Options struct {
	Markers []*Marker

	Time    TimeAccessor
	TipText TextAccessor

	DisableTips     bool
	DisableTipClick bool

	Overlay OverlayOptions

	// OnMarkerReached is called when playback enters a marker's window.
	OnMarkerReached func(m *Marker)
	// OnMarkerClick is called when a marker is clicked. Returning false
	// suppresses the seek to the marker.
	OnMarkerClick func(m *Marker) bool

	// PrevThreshold is how far past a marker playback must be for Prev to
	// return to it instead of the one before. Defaults to 0.5 seconds.
	PrevThreshold float64

	Logger *slog.Logger
}

const (
	DefaultOverlayDisplayTime = 3.0
	DefaultPrevThreshold      = 0.5
)

func (o *Options) setDefaults() {
	if o.Time == nil {
		o.Time = FieldTime
	}
	if o.TipText == nil {
		o.TipText = DefaultTipText
	}
	if o.Overlay.Text == nil {
		o.Overlay.Text = DefaultOverlayText
	}
	if o.Overlay.DisplayTime <= 0 {
		o.Overlay.DisplayTime = DefaultOverlayDisplayTime
	}
	if o.PrevThreshold <= 0 {
		o.PrevThreshold = DefaultPrevThreshold
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// State is a snapshot of a Controller.
type State struct {
	Initialized bool         `json:"initialized"`
	Destroyed   bool         `json:"destroyed"`
	CurrentTime float64      `json:"current_time"`
	Duration    float64      `json:"duration"`
	Tips        bool         `json:"tips"`
	Active      Index        `json:"active"`
	Overlay     OverlayState `json:"overlay"`
	Placements  []Placement  `json:"placements"`
}

// Controller keeps the markers of one player in sync with its playback.
//
// A Controller is not safe for concurrent use. Player callbacks must be delivered on
// the same goroutine as calls to its methods, or be serialized with them.
type Controller struct {
	player Player
	opts   Options
	logger *slog.Logger

	store   *Store
	tracker Tracker
	overlay Overlay

	listeners    []subscription
	nextListener int

	initialized bool
	destroyed   bool

	offTimeUpdate func()
	offMetadata   func()
}

type subscription struct {
	id int
	fn Listener
}

// New attaches a Controller to player. Markers are placed once the player reports
// loaded metadata, and rebuilt every time it does so again.
func New(player Player, opts Options) *Controller {
	opts.setDefaults()
	c := &Controller{
		player: player,
		opts:   opts,
		logger: opts.Logger,
		store:  NewStore(opts.Time),
	}
	c.offMetadata = player.OnLoadedMetadata(c.initialize)
	return c
}

// Subscribe registers fn for all future events.
func (c *Controller) Subscribe(fn Listener) (unsubscribe func()) {
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, subscription{id: id, fn: fn})

	return func() {
		for i, s := range c.listeners {
			if s.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) emit(typ EventType, data any) {
	ev := Event{Type: typ, Data: data}
	for _, s := range append([]subscription(nil), c.listeners...) {
		s.fn(ev)
	}
}

func (c *Controller) initialize() {
	if c.destroyed {
		return
	}

	c.store.Reset(c.opts.Markers...)
	c.tracker.Reset()
	c.overlay.Reset()
	c.initialized = true

	c.logger.Debug("timeline initialized",
		"markers", c.store.Len(),
		"duration", c.player.Duration(),
	)
	c.emit(EventInitialized, InitializedData{
		Duration:   c.player.Duration(),
		Tips:       !c.opts.DisableTips,
		Placements: c.placements(),
	})

	c.onTimeUpdate()

	if c.offTimeUpdate != nil {
		c.offTimeUpdate()
	}
	c.offTimeUpdate = c.player.OnTimeUpdate(c.onTimeUpdate)
}

func (c *Controller) onTimeUpdate() {
	if !c.initialized || c.destroyed {
		return
	}

	t := c.player.CurrentTime()
	if change, ok := c.tracker.Update(c.store, t, c.player.Duration()); ok {
		data := ActiveChangedData{Previous: change.From, Current: change.To}
		if change.Marker != nil {
			data.Key = change.Marker.Key
		}
		c.emit(EventActiveChanged, data)

		if change.Marker != nil {
			c.logger.Debug("marker reached", "index", change.To.Int(), "key", change.Marker.Key, "time", t)
			if c.opts.OnMarkerReached != nil {
				c.opts.OnMarkerReached(change.Marker)
			}
			c.emit(EventMarkerReached, MarkerReachedData{
				Index:  change.To,
				Key:    change.Marker.Key,
				Time:   c.opts.Time.MarkerTime(change.Marker),
				Text:   change.Marker.Text,
				Marker: change.Marker,
			})
		}
	}

	if c.opts.Overlay.Display {
		c.updateOverlay(t)
	}
}

func (c *Controller) updateOverlay(t float64) {
	active := c.tracker.Current()

	var m *Marker
	var mt float64
	if pos, ok := active.Get(); ok {
		m = c.store.At(pos)
		mt = c.store.Time(pos)
	}

	if c.overlay.Update(active, m, mt, t, c.opts.Overlay.DisplayTime, c.opts.Overlay.Text) {
		c.emit(EventOverlayChanged, c.overlay.State())
	}
}

// invalidate forgets the active marker after markers were removed.
func (c *Controller) invalidate() {
	prev := c.tracker.Current()
	c.tracker.Reset()
	if !prev.IsNone() {
		c.emit(EventActiveChanged, ActiveChangedData{Previous: prev, Current: None})
	}
	if c.overlay.Reset() {
		c.emit(EventOverlayChanged, c.overlay.State())
	}
}

func (c *Controller) markersChanged(reason ChangeReason, keys []string) {
	c.emit(EventMarkersChanged, MarkersChangedData{
		Reason:     reason,
		Keys:       keys,
		Duration:   c.player.Duration(),
		Placements: c.placements(),
	})
}

func (c *Controller) placements() []Placement {
	return Placements(c.store.Markers(), c.opts.Time, c.opts.TipText, c.player.Duration(), c.tracker.Current())
}

// Markers returns the markers in time order.
func (c *Controller) Markers() []*Marker {
	return c.store.Markers()
}

// Marker looks up a marker by key.
func (c *Controller) Marker(key string) (*Marker, bool) {
	return c.store.Get(key)
}

// Add inserts markers and returns those that were inserted, with their keys set.
func (c *Controller) Add(markers ...*Marker) []*Marker {
	if c.destroyed {
		return nil
	}
	added := c.store.Add(markers...)
	if len(added) == 0 {
		return added
	}

	c.tracker.Rebase(c.store)
	c.overlay.Rebase(c.store)

	keys := make([]string, len(added))
	for i, m := range added {
		keys[i] = m.Key
	}
	c.markersChanged(ReasonAdded, keys)
	return added
}

// Remove deletes markers by key and returns how many were removed.
// The active marker is forgotten until the next time update.
func (c *Controller) Remove(keys ...string) int {
	if c.destroyed {
		return 0
	}
	present := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := c.store.Get(k); ok {
			present = append(present, k)
		}
	}
	return c.removeKeys(present)
}

// RemoveAt deletes markers by their positions in the current order.
func (c *Controller) RemoveAt(indices ...int) int {
	if c.destroyed {
		return 0
	}
	keys := make([]string, 0, len(indices))
	for _, i := range indices {
		if m := c.store.At(i); m != nil {
			keys = append(keys, m.Key)
		}
	}
	return c.removeKeys(keys)
}

func (c *Controller) removeKeys(keys []string) int {
	seen := make(map[string]struct{}, len(keys))
	keys = slices.DeleteFunc(keys, func(k string) bool {
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
		return false
	})
	n := c.store.Remove(keys...)
	c.invalidate()
	if n > 0 {
		c.markersChanged(ReasonRemoved, keys)
	}
	return n
}

// RemoveAll deletes every marker.
func (c *Controller) RemoveAll() {
	if c.destroyed {
		return
	}
	c.store.RemoveAll()
	c.invalidate()
	c.markersChanged(ReasonCleared, nil)
}

// Reset replaces all markers.
func (c *Controller) Reset(markers ...*Marker) []*Marker {
	if c.destroyed {
		return nil
	}
	added := c.store.Reset(markers...)
	c.invalidate()
	c.markersChanged(ReasonReset, nil)
	return added
}

// UpdateTimes re-sorts the markers after their times were changed in place.
func (c *Controller) UpdateTimes() {
	if c.destroyed {
		return
	}
	c.store.Resort()
	c.tracker.Rebase(c.store)
	c.overlay.Rebase(c.store)
	c.markersChanged(ReasonTimesUpdated, nil)
}

// Next seeks to the first marker after the current time.
func (c *Controller) Next() (*Marker, bool) {
	if c.destroyed {
		return nil, false
	}
	t := c.player.CurrentTime()
	for i := range c.store.Len() {
		if mt := c.store.Time(i); mt > t {
			c.player.Seek(mt)
			return c.store.At(i), true
		}
	}
	return nil, false
}

// Prev seeks to the last marker that playback is more than PrevThreshold past.
func (c *Controller) Prev() (*Marker, bool) {
	if c.destroyed {
		return nil, false
	}
	t := c.player.CurrentTime()
	for i := c.store.Len() - 1; i >= 0; i-- {
		if mt := c.store.Time(i); mt+c.opts.PrevThreshold < t {
			c.player.Seek(mt)
			return c.store.At(i), true
		}
	}
	return nil, false
}

// Click handles a click on a marker glyph. Reports whether playback seeked.
func (c *Controller) Click(key string) bool {
	if c.destroyed {
		return false
	}
	m, ok := c.store.Get(key)
	if !ok {
		return false
	}
	if c.opts.OnMarkerClick != nil && !c.opts.OnMarkerClick(m) {
		return false
	}
	c.player.Seek(c.opts.Time.MarkerTime(m))
	return true
}

// TipClick handles a click on a marker's tooltip. Reports whether playback seeked.
func (c *Controller) TipClick(key string) bool {
	if c.destroyed || c.opts.DisableTips || c.opts.DisableTipClick {
		return false
	}
	m, ok := c.store.Get(key)
	if !ok {
		return false
	}
	c.player.Seek(c.opts.Time.MarkerTime(m))
	return true
}

// Sync re-evaluates the active marker and overlay at the current time.
func (c *Controller) Sync() {
	c.onTimeUpdate()
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	return State{
		Initialized: c.initialized,
		Destroyed:   c.destroyed,
		CurrentTime: c.player.CurrentTime(),
		Duration:    c.player.Duration(),
		Tips:        !c.opts.DisableTips,
		Active:      c.tracker.Current(),
		Overlay:     c.overlay.State(),
		Placements:  c.placements(),
	}
}

// Destroy removes all markers and detaches from the player. Further calls do nothing.
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.store.RemoveAll()
	c.tracker.Reset()
	c.overlay.Reset()

	if c.offTimeUpdate != nil {
		c.offTimeUpdate()
		c.offTimeUpdate = nil
	}
	if c.offMetadata != nil {
		c.offMetadata()
		c.offMetadata = nil
	}

	c.destroyed = true
	c.emit(EventDestroyed, DestroyedData{})
	c.listeners = nil
}
