package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/listenupapp/markertrack/internal/errors"
	"github.com/listenupapp/markertrack/internal/player"
	"github.com/listenupapp/markertrack/internal/render"
	"github.com/listenupapp/markertrack/internal/sse"
	"github.com/listenupapp/markertrack/internal/timeline"
	"github.com/listenupapp/markertrack/internal/validation"
	"github.com/listenupapp/markertrack/internal/watcher"
)

// readyTimeout bounds how long Create waits for the first metadata callback.
const readyTimeout = 5 * time.Second

// Emitter receives events for connected stream clients.
type Emitter interface {
	Emit(event sse.Event)
}

// Session is one simulated player with its marker timeline. All methods are safe
// for concurrent use; they and the player's callbacks are serialized on one lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	source string // absolute path of the marker file, empty when markers came inline

	mu      sync.Mutex
	player  *player.Simulated
	ctrl    *timeline.Controller
	layout  *render.Layout
	watcher *watcher.Watcher
	closed  bool

	emitter    Emitter
	metrics    *metrics
	logger     *slog.Logger
	validator  *validation.Validator
	maxMarkers int

	ready     chan struct{}
	readyOnce sync.Once
	cancel    context.CancelFunc
}

// guardedPlayer runs player callbacks under the session lock, so the controller
// only ever sees one caller at a time.
type guardedPlayer struct {
	*player.Simulated
	mu *sync.Mutex
}

func (p guardedPlayer) OnTimeUpdate(fn func()) func() {
	return p.Simulated.OnTimeUpdate(p.guard(fn))
}

func (p guardedPlayer) OnLoadedMetadata(fn func()) func() {
	return p.Simulated.OnLoadedMetadata(p.guard(fn))
}

func (p guardedPlayer) guard(fn func()) func() {
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		fn()
	}
}

type params struct {
	id       string
	source   string
	markers  []*timeline.Marker
	req      CreateRequest
	cfg      Config
	emitter  Emitter
	metrics  *metrics
	logger   *slog.Logger
	validate *validation.Validator
}

func newSession(p params) *Session {
	s := &Session{
		ID:         p.id,
		CreatedAt:  time.Now().UTC(),
		source:     p.source,
		layout:     render.NewLayout(),
		emitter:    p.emitter,
		metrics:    p.metrics,
		logger:     p.logger,
		validator:  p.validate,
		maxMarkers: p.cfg.MaxMarkers,
		ready:      make(chan struct{}),
	}

	s.player = player.NewSimulated(
		player.WithInterval(p.cfg.TickInterval),
		player.WithLogger(p.logger),
	)
	if p.req.Rate > 0 {
		s.player.SetRate(p.req.Rate)
	}

	overlay := p.cfg.OverlayDisplay
	if p.req.Overlay != nil {
		overlay = *p.req.Overlay
	}
	overlayTime := p.cfg.OverlayDisplayTime
	if p.req.OverlayTime > 0 {
		overlayTime = p.req.OverlayTime
	}

	s.ctrl = timeline.New(guardedPlayer{Simulated: s.player, mu: &s.mu}, timeline.Options{
		Markers:         p.markers,
		DisableTips:     p.req.DisableTips,
		DisableTipClick: p.req.DisableTipClick,
		Overlay: timeline.OverlayOptions{
			Display:     overlay,
			DisplayTime: overlayTime,
		},
		PrevThreshold: p.cfg.PrevThreshold,
		Logger:        p.logger,
	})
	s.layout.Attach(s.ctrl)
	s.ctrl.Subscribe(s.forward)

	s.player.OnTimeUpdate(func() {
		s.metrics.ticks.Add(context.Background(), 1)
	})
	return s
}

// forward publishes controller events. It runs under the session lock.
func (s *Session) forward(ev timeline.Event) {
	if ev.Type == timeline.EventInitialized {
		s.readyOnce.Do(func() { close(s.ready) })
	}
	s.metrics.observe(ev)
	s.emitter.Emit(sse.FromTimeline(s.ID, ev))
}

// start loads media of the given duration and begins delivering player callbacks.
func (s *Session) start(duration float64, at *float64, autoplay bool) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.player.Run(ctx)
	if s.watcher != nil {
		go func() {
			if err := s.watcher.Start(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("marker watcher stopped", "error", err)
			}
		}()
		go s.watchLoop(ctx)
	}

	s.player.Load(duration)
	if at != nil {
		s.player.Seek(*at)
	}
	if autoplay {
		s.player.Play()
	}
}

// waitReady blocks until the timeline has been initialized.
func (s *Session) waitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(readyTimeout):
		return apperrors.Internal("timeline did not initialize")
	}
}

// lock takes the session lock, failing for closed sessions.
func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.NotFoundf("session %s is closed", s.ID)
	}
	return nil
}

// Snapshot returns the full state of the session.
func (s *Session) Snapshot() (Snapshot, error) {
	if err := s.lock(); err != nil {
		return Snapshot{}, err
	}
	defer s.mu.Unlock()

	return Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Source:    s.source,
		Watching:  s.watcher != nil,
		Player:    s.player.Status(),
		Timeline:  s.ctrl.State(),
		View:      s.layout.View(),
		Markers:   copyMarkers(s.ctrl.Markers()),
	}, nil
}

func (s *Session) summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.player.Status()
	return Summary{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Source:    s.source,
		Markers:   len(s.ctrl.Markers()),
		Duration:  st.Duration,
		Position:  st.Position,
		Playing:   st.Playing,
	}
}

// PlayerStatus returns the simulated player's state.
func (s *Session) PlayerStatus() (player.Status, error) {
	if err := s.lock(); err != nil {
		return player.Status{}, err
	}
	defer s.mu.Unlock()
	return s.player.Status(), nil
}

// State returns the timeline state.
func (s *Session) State() (timeline.State, error) {
	if err := s.lock(); err != nil {
		return timeline.State{}, err
	}
	defer s.mu.Unlock()
	return s.ctrl.State(), nil
}

// View returns the render layout.
func (s *Session) View() (render.View, error) {
	if err := s.lock(); err != nil {
		return render.View{}, err
	}
	defer s.mu.Unlock()
	return s.layout.View(), nil
}

// Markers returns the markers in time order.
func (s *Session) Markers() ([]timeline.Marker, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return copyMarkers(s.ctrl.Markers()), nil
}

// Marker returns one marker by key.
func (s *Session) Marker(key string) (timeline.Marker, error) {
	if err := s.lock(); err != nil {
		return timeline.Marker{}, err
	}
	defer s.mu.Unlock()

	m, ok := s.ctrl.Marker(key)
	if !ok {
		return timeline.Marker{}, apperrors.NotFoundf("marker %s not found", key)
	}
	return *m, nil
}

type markerList struct {
	Markers []MarkerInput `json:"markers" validate:"dive"`
}

// AddMarkers inserts markers and returns them with their assigned keys.
func (s *Session) AddMarkers(in []MarkerInput) ([]timeline.Marker, error) {
	if err := s.validator.Validate(markerList{Markers: in}); err != nil {
		return nil, err
	}
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if n := len(s.ctrl.Markers()) + len(in); n > s.maxMarkers {
		return nil, apperrors.Conflictf("session would hold %d markers, the limit is %d", n, s.maxMarkers)
	}

	added := s.ctrl.Add(inputsToMarkers(in)...)
	s.ctrl.Sync()
	return copyMarkers(added), nil
}

// RemoveMarkers deletes markers by key and returns how many were removed.
func (s *Session) RemoveMarkers(keys ...string) (int, error) {
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	n := s.ctrl.Remove(keys...)
	s.ctrl.Sync()
	return n, nil
}

// RemoveMarkersAt deletes markers by position in the current order.
func (s *Session) RemoveMarkersAt(indices ...int) (int, error) {
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	n := s.ctrl.RemoveAt(indices...)
	s.ctrl.Sync()
	return n, nil
}

// RemoveAllMarkers deletes every marker.
func (s *Session) RemoveAllMarkers() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.ctrl.RemoveAll()
	s.ctrl.Sync()
	return nil
}

// ResetMarkers replaces every marker.
func (s *Session) ResetMarkers(in []MarkerInput) ([]timeline.Marker, error) {
	if err := s.validator.Validate(markerList{Markers: in}); err != nil {
		return nil, err
	}
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.resetLocked(inputsToMarkers(in))
}

func (s *Session) resetLocked(markers []*timeline.Marker) ([]timeline.Marker, error) {
	if len(markers) > s.maxMarkers {
		return nil, apperrors.Conflictf("%d markers exceed the limit of %d", len(markers), s.maxMarkers)
	}
	added := s.ctrl.Reset(markers...)
	s.ctrl.Sync()
	return copyMarkers(added), nil
}

// UpdateMarker changes a marker in place and re-sorts the timeline.
func (s *Session) UpdateMarker(key string, patch MarkerPatch) (timeline.Marker, error) {
	if err := s.validator.Validate(patch); err != nil {
		return timeline.Marker{}, err
	}
	if err := s.lock(); err != nil {
		return timeline.Marker{}, err
	}
	defer s.mu.Unlock()

	m, ok := s.ctrl.Marker(key)
	if !ok {
		return timeline.Marker{}, apperrors.NotFoundf("marker %s not found", key)
	}
	if patch.Time != nil {
		m.Time = *patch.Time
	}
	if patch.Text != nil {
		m.Text = *patch.Text
	}
	if patch.Class != nil {
		m.Class = *patch.Class
	}
	if patch.OverlayText != nil {
		m.OverlayText = *patch.OverlayText
	}

	s.ctrl.UpdateTimes()
	s.ctrl.Sync()
	return *m, nil
}

// Click handles a click on a marker glyph and reports whether playback seeked.
func (s *Session) Click(key string) (bool, error) {
	return s.click(key, s.ctrl.Click)
}

// TipClick handles a click on a marker tooltip and reports whether playback seeked.
func (s *Session) TipClick(key string) (bool, error) {
	return s.click(key, s.ctrl.TipClick)
}

func (s *Session) click(key string, fn func(string) bool) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if _, ok := s.ctrl.Marker(key); !ok {
		return false, apperrors.NotFoundf("marker %s not found", key)
	}
	seeked := fn(key)
	if seeked {
		s.emitPlayerState()
	}
	return seeked, nil
}

// Next seeks to the next marker. It returns nil when there is none.
func (s *Session) Next() (*timeline.Marker, error) {
	return s.jump(s.ctrl.Next)
}

// Prev seeks to the previous marker. It returns nil when there is none.
func (s *Session) Prev() (*timeline.Marker, error) {
	return s.jump(s.ctrl.Prev)
}

func (s *Session) jump(fn func() (*timeline.Marker, bool)) (*timeline.Marker, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	m, ok := fn()
	if !ok {
		return nil, nil
	}
	s.emitPlayerState()
	out := *m
	return &out, nil
}

type seekRequest struct {
	Time float64 `json:"time" validate:"gte=0,finite"`
}

// Seek moves playback to t seconds.
func (s *Session) Seek(t float64) error {
	if err := s.validator.Validate(seekRequest{Time: t}); err != nil {
		return err
	}
	return s.playerOp(func(p *player.Simulated) { p.Seek(t) })
}

// Play starts playback.
func (s *Session) Play() error {
	return s.playerOp((*player.Simulated).Play)
}

// Pause stops playback.
func (s *Session) Pause() error {
	return s.playerOp((*player.Simulated).Pause)
}

type rateRequest struct {
	Rate float64 `json:"rate" validate:"gt=0,lte=16,finite"`
}

// SetRate changes the playback rate.
func (s *Session) SetRate(rate float64) error {
	if err := s.validator.Validate(rateRequest{Rate: rate}); err != nil {
		return err
	}
	return s.playerOp(func(p *player.Simulated) { p.SetRate(rate) })
}

func (s *Session) playerOp(fn func(*player.Simulated)) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	fn(s.player)
	s.emitPlayerState()
	return nil
}

func (s *Session) emitPlayerState() {
	s.emitter.Emit(sse.NewPlayerStateEvent(s.ID, s.player.Status()))
}

// Sync re-evaluates the active marker and overlay at the current position.
func (s *Session) Sync() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.ctrl.Sync()
	return nil
}

// Reload reads the marker file again and replaces the markers with its content.
func (s *Session) Reload(ctx context.Context) (int, error) {
	if s.source == "" {
		return 0, apperrors.Validation("session has no marker source")
	}

	n, err := s.reload(ctx)
	data := sse.MarkersReloadedData{Path: s.source, Markers: n}
	if err != nil {
		data.Error = err.Error()
	}
	s.emitter.Emit(sse.NewMarkersReloadedEvent(s.ID, data))
	return n, err
}

func (s *Session) reload(ctx context.Context) (int, error) {
	set, err := loadSource(ctx, s.source)
	if err != nil {
		return 0, err
	}

	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	added, err := s.resetLocked(set.Markers)
	if err != nil {
		return 0, err
	}
	s.logger.Info("markers reloaded", "path", s.source, "markers", len(added))
	return len(added), nil
}

func (s *Session) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.watcher.Events():
			if ev.Type == watcher.EventRemoved {
				s.logger.Warn("marker source removed", "path", ev.Path)
				s.emitter.Emit(sse.NewMarkersReloadedEvent(s.ID, sse.MarkersReloadedData{
					Path:  ev.Path,
					Error: "marker source removed",
				}))
				continue
			}
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Warn("marker reload failed", "path", ev.Path, "error", err)
			}
		case err := <-s.watcher.Errors():
			s.logger.Warn("marker watcher error", "error", err)
		}
	}
}

// Close destroys the timeline and stops the player. Later calls fail with a
// not found error.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ctrl.Destroy()
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Debug("stop watcher", "error", err)
		}
	}
}
