// Package session runs marker timelines against simulated players. A Manager
// owns the open sessions; each Session pairs a player with a timeline controller,
// a render layout and, optionally, a watcher on the marker file it came from.
package session

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/listenupapp/markertrack/internal/config"
	apperrors "github.com/listenupapp/markertrack/internal/errors"
	"github.com/listenupapp/markertrack/internal/id"
	"github.com/listenupapp/markertrack/internal/player"
	"github.com/listenupapp/markertrack/internal/source"
	"github.com/listenupapp/markertrack/internal/sse"
	"github.com/listenupapp/markertrack/internal/timeline"
	"github.com/listenupapp/markertrack/internal/validation"
	"github.com/listenupapp/markertrack/internal/watcher"
)

// Config holds the limits and defaults applied to new sessions.
type Config struct {
	TickInterval       time.Duration
	OverlayDisplay     bool
	OverlayDisplayTime float64
	PrevThreshold      float64
	MaxMarkers         int
	MaxSessions        int
	// SourceDir is the only directory marker files are read from. Empty
	// disables file sources.
	SourceDir   string
	WatchSettle time.Duration
}

// FromConfig picks the session settings out of the application config.
func FromConfig(c *config.Config) Config {
	return Config{
		TickInterval:       c.Player.TickInterval,
		OverlayDisplay:     c.Timeline.OverlayDisplay,
		OverlayDisplayTime: c.Timeline.OverlayDisplayTime,
		PrevThreshold:      c.Timeline.PrevThreshold,
		MaxMarkers:         c.Timeline.MaxMarkers,
		MaxSessions:        c.Timeline.MaxSessions,
		SourceDir:          c.Sources.BaseDir,
		WatchSettle:        c.Sources.WatchSettle,
	}
}

func (c *Config) setDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = player.DefaultInterval
	}
	if c.OverlayDisplayTime <= 0 {
		c.OverlayDisplayTime = timeline.DefaultOverlayDisplayTime
	}
	if c.PrevThreshold <= 0 {
		c.PrevThreshold = timeline.DefaultPrevThreshold
	}
	if c.MaxMarkers <= 0 {
		c.MaxMarkers = 1000
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 100
	}
	if c.WatchSettle <= 0 {
		c.WatchSettle = watcher.DefaultSettleDelay
	}
}

// Manager owns the open sessions.
type Manager struct {
	cfg       Config
	emitter   Emitter
	logger    *slog.Logger
	metrics   *metrics
	validator *validation.Validator

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager publishing events to emitter.
func NewManager(cfg Config, emitter Emitter, logger *slog.Logger) (*Manager, error) {
	cfg.setDefaults()

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:       cfg,
		emitter:   emitter,
		logger:    logger,
		metrics:   m,
		validator: validation.New(),
		sessions:  make(map[string]*Session),
	}, nil
}

// Create starts a session and returns once its timeline is initialized.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if err := m.validator.Validate(req); err != nil {
		return nil, err
	}

	markers := inputsToMarkers(req.Markers)
	duration := req.Duration

	var path string
	if req.Source != "" {
		var err error
		if path, err = m.resolveSource(req.Source); err != nil {
			return nil, err
		}
		set, err := loadSource(ctx, path)
		if err != nil {
			return nil, err
		}
		markers = append(markers, set.Markers...)
		if duration == 0 {
			duration = set.Duration
		}
	} else if req.Watch {
		return nil, apperrors.Validation("watch requires a source")
	}

	if duration <= 0 {
		return nil, apperrors.ValidationWithDetails("validation failed", map[string]string{
			"duration": "is required unless the source provides one",
		})
	}
	if len(markers) > m.cfg.MaxMarkers {
		return nil, apperrors.Conflictf("%d markers exceed the limit of %d", len(markers), m.cfg.MaxMarkers)
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "generate session id")
	}
	log := m.logger.With("session_id", sessionID)

	s := newSession(params{
		id:       sessionID,
		source:   path,
		markers:  markers,
		req:      req,
		cfg:      m.cfg,
		emitter:  m.emitter,
		metrics:  m.metrics,
		logger:   log,
		validate: m.validator,
	})

	if req.Watch {
		w, err := watcher.New(log, watcher.Options{SettleDelay: m.cfg.WatchSettle})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create watcher")
		}
		if err := w.Watch(path); err != nil {
			_ = w.Stop()
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "watch marker source")
		}
		s.watcher = w
	}

	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		if s.watcher != nil {
			_ = s.watcher.Stop()
		}
		return nil, apperrors.Conflictf("session limit of %d reached", m.cfg.MaxSessions)
	}
	m.sessions[sessionID] = s
	m.mu.Unlock()

	m.metrics.active.Add(ctx, 1)
	m.emitter.Emit(sse.NewSessionCreatedEvent(sse.SessionCreatedData{
		SessionID: sessionID,
		Markers:   len(markers),
		Duration:  duration,
		Source:    req.Source,
	}))

	s.start(duration, req.Start, req.Autoplay)
	if err := s.waitReady(ctx); err != nil {
		_ = m.Delete(sessionID)
		return nil, err
	}

	log.Info("session created",
		"markers", len(markers),
		"duration", duration,
		"source", req.Source,
		"watch", req.Watch)
	return s, nil
}

// loadSource maps file errors onto API error codes.
func loadSource(ctx context.Context, path string) (*source.Set, error) {
	set, err := source.Load(ctx, path)
	switch {
	case err == nil:
		return set, nil
	case apperrors.Is(err, fs.ErrNotExist):
		return nil, apperrors.NotFoundf("marker source %s not found", filepath.Base(path))
	case apperrors.Is(err, apperrors.ErrValidation):
		return nil, err
	default:
		return nil, apperrors.Wrap(err, apperrors.CodeValidation, "cannot read marker source")
	}
}

// resolveSource turns a client path into a path under the source directory.
func (m *Manager) resolveSource(rel string) (string, error) {
	if m.cfg.SourceDir == "" {
		return "", apperrors.Validation("marker file sources are disabled")
	}
	if !filepath.IsLocal(rel) {
		return "", apperrors.Validationf("source %q must be a relative path inside the source directory", rel)
	}
	return filepath.Join(m.cfg.SourceDir, rel), nil
}

// Get returns an open session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFoundf("session %s not found", sessionID)
	}
	return s, nil
}

// Exists reports whether a session is open.
func (m *Manager) Exists(sessionID string) bool {
	_, err := m.Get(sessionID)
	return err == nil
}

// List summarizes open sessions, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sessions := lo.Values(m.sessions)
	m.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return lo.Map(sessions, func(s *Session, _ int) Summary {
		return s.summary()
	})
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete closes a session.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return apperrors.NotFoundf("session %s not found", sessionID)
	}

	s.Close()
	m.metrics.active.Add(context.Background(), -1)
	m.emitter.Emit(sse.NewSessionDeletedEvent(sessionID))
	m.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// Shutdown closes every session.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	ids := lo.Keys(m.sessions)
	m.mu.RUnlock()

	for _, sessionID := range ids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("session shutdown: %w", err)
		}
		_ = m.Delete(sessionID)
	}
	m.logger.Info("sessions closed", "count", len(ids))
	return nil
}
