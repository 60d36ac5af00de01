package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/markertrack/internal/session"
	"github.com/listenupapp/markertrack/internal/sse"
)

type testServer struct {
	*Server
	api       humatest.TestAPI
	sourceDir string
}

func setupTestServer(t *testing.T) *testServer {
	return setupTestServerWithOptions(t, Options{})
}

func setupTestServerWithOptions(t *testing.T, opts Options) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	sourceDir := t.TempDir()

	sseManager := sse.NewManager(logger, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go sseManager.Start(ctx)

	sessions, err := session.NewManager(session.Config{
		TickInterval:   10 * time.Millisecond,
		OverlayDisplay: true,
		MaxSessions:    5,
		SourceDir:      sourceDir,
	}, sseManager, logger)
	require.NoError(t, err)

	srv := NewServer(sessions, sseManager, opts, logger)

	t.Cleanup(func() {
		_ = sessions.Shutdown(context.Background())
		srv.Close()
		cancel()
		_ = sseManager.Shutdown(context.Background())
	})

	return &testServer{
		Server:    srv,
		api:       humatest.Wrap(t, srv.API()),
		sourceDir: sourceDir,
	}
}

// envelope is the decoded form of a response.
type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

// decodeData unwraps a successful response into T.
func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success, resp.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// sessionBody is the subset of a snapshot the tests read.
type sessionBody struct {
	ID       string `json:"id"`
	Watching bool   `json:"watching"`
	Player   struct {
		Position float64 `json:"position"`
		Duration float64 `json:"duration"`
		Playing  bool    `json:"playing"`
		Rate     float64 `json:"rate"`
	} `json:"player"`
	Timeline struct {
		Initialized bool `json:"initialized"`
		Active      int  `json:"active"`
		Overlay     struct {
			Visible bool   `json:"visible"`
			Text    string `json:"text"`
		} `json:"overlay"`
	} `json:"timeline"`
	Markers []markerBody `json:"markers"`
}

type markerBody struct {
	Key         string  `json:"key"`
	Time        float64 `json:"time"`
	Text        string  `json:"text"`
	Class       string  `json:"class"`
	OverlayText string  `json:"overlay_text"`
}

type markersBody struct {
	Markers []markerBody `json:"markers"`
}

func (ts *testServer) createSession(t *testing.T, body map[string]any) sessionBody {
	t.Helper()
	resp := ts.api.Post("/api/v1/sessions", body)
	require.Equal(t, 201, resp.Code, resp.Body.String())
	return decodeData[sessionBody](t, resp)
}

func threeBreaks() []map[string]any {
	return []map[string]any{
		{"time": 20, "text": "Break 2"},
		{"time": 10, "text": "Break 1", "overlay_text": "First break"},
		{"time": 30, "text": "Break 3"},
	}
}

func times(markers []markerBody) []float64 {
	out := make([]float64, len(markers))
	for i, m := range markers {
		out[i] = m.Time
	}
	return out
}
