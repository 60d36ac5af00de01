package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	ts := setupTestServer(t)

	sess := ts.createSession(t, map[string]any{
		"duration": 40,
		"markers":  threeBreaks(),
	})

	assert.NotEmpty(t, sess.ID)
	assert.True(t, sess.Timeline.Initialized)
	assert.Equal(t, -1, sess.Timeline.Active)
	assert.Equal(t, 40.0, sess.Player.Duration)
	assert.False(t, sess.Player.Playing)
	require.Len(t, sess.Markers, 3)
	assert.Equal(t, []float64{10, 20, 30}, times(sess.Markers))
	for _, m := range sess.Markers {
		assert.NotEmpty(t, m.Key)
	}
}

func TestCreateSession_FromSource(t *testing.T) {
	ts := setupTestServer(t)

	doc := `{"duration": 60, "markers": [{"time": 5, "text": "Intro"}, {"time": 45, "text": "Credits"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(ts.sourceDir, "show.json"), []byte(doc), 0o644))

	sess := ts.createSession(t, map[string]any{"source": "show.json"})

	assert.Equal(t, 60.0, sess.Player.Duration)
	assert.Equal(t, []float64{5, 45}, times(sess.Markers))
}

func TestCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing duration",
			body:       map[string]any{"markers": threeBreaks()},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name: "negative marker time",
			body: map[string]any{
				"duration": 40,
				"markers":  []map[string]any{{"time": -1, "text": "Early"}},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "source outside directory",
			body:       map[string]any{"source": "../etc/passwd"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "missing source",
			body:       map[string]any{"source": "nope.json"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "wrong type",
			body:       map[string]any{"duration": "forty"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)

			resp := ts.api.Post("/api/v1/sessions", tt.body)

			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			env := decodeEnvelope(t, resp)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestCreateSession_Limit(t *testing.T) {
	ts := setupTestServer(t)

	for range 5 {
		ts.createSession(t, map[string]any{"duration": 10})
	}
	resp := ts.api.Post("/api/v1/sessions", map[string]any{"duration": 10})

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", decodeEnvelope(t, resp).Code)
}

func TestGetSession_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/sessions/ses_missing")

	assert.Equal(t, http.StatusNotFound, resp.Code)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.Equal(t, "session ses_missing not found", env.Message)
}

func TestListAndDeleteSessions(t *testing.T) {
	ts := setupTestServer(t)

	first := ts.createSession(t, map[string]any{"duration": 10})
	second := ts.createSession(t, map[string]any{"duration": 20, "markers": threeBreaks()})

	type listBody struct {
		Sessions []struct {
			ID      string `json:"id"`
			Markers int    `json:"markers"`
		} `json:"sessions"`
		Total int `json:"total"`
	}

	list := decodeData[listBody](t, ts.api.Get("/api/v1/sessions"))
	require.Equal(t, 2, list.Total)
	assert.Equal(t, first.ID, list.Sessions[0].ID)
	assert.Equal(t, second.ID, list.Sessions[1].ID)
	assert.Equal(t, 3, list.Sessions[1].Markers)

	resp := ts.api.Delete("/api/v1/sessions/" + first.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/sessions/" + first.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/sessions/" + first.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	list = decodeData[listBody](t, ts.api.Get("/api/v1/sessions"))
	assert.Equal(t, 1, list.Total)
}
