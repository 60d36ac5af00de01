package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type playerBody struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Playing  bool    `json:"playing"`
	Rate     float64 `json:"rate"`
}

type viewBody struct {
	Active  int `json:"active"`
	Overlay struct {
		Visible bool   `json:"visible"`
		Text    string `json:"text"`
	} `json:"overlay"`
	Glyphs []struct {
		Key      string  `json:"key"`
		Position float64 `json:"position"`
	} `json:"glyphs"`
}

func (ts *testServer) view(t *testing.T, id string) viewBody {
	t.Helper()
	return decodeData[viewBody](t, ts.api.Get("/api/v1/sessions/"+id+"/view"))
}

func TestSeek_ReachesMarker(t *testing.T) {
	ts := setupTestServer(t)
	sess := ts.createSession(t, map[string]any{"duration": 40, "markers": threeBreaks()})
	base := "/api/v1/sessions/" + sess.ID

	resp := ts.api.Post(base+"/seek", map[string]any{"time": 10.5})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 10.5, decodeData[playerBody](t, resp).Position)

	assert.Eventually(t, func() bool {
		v := ts.view(t, sess.ID)
		return v.Active == 0 && v.Overlay.Visible
	}, time.Second, 10*time.Millisecond)

	v := ts.view(t, sess.ID)
	assert.Equal(t, "Break overlay: First break", v.Overlay.Text)
	assert.Len(t, v.Glyphs, 3)

	resp = ts.api.Post(base+"/seek", map[string]any{"time": -1})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestNextPrev(t *testing.T) {
	ts := setupTestServer(t)
	sess := ts.createSession(t, map[string]any{"duration": 40, "markers": threeBreaks()})
	base := "/api/v1/sessions/" + sess.ID

	type jumpBody struct {
		Marker *markerBody `json:"marker"`
		Player playerBody  `json:"player"`
	}

	jump := decodeData[jumpBody](t, ts.api.Post(base+"/next"))
	require.NotNil(t, jump.Marker)
	assert.Equal(t, 10.0, jump.Marker.Time)
	assert.Equal(t, 10.0, jump.Player.Position)

	jump = decodeData[jumpBody](t, ts.api.Post(base+"/next"))
	require.NotNil(t, jump.Marker)
	assert.Equal(t, 20.0, jump.Marker.Time)

	// Just past 20, so prev skips it.
	jump = decodeData[jumpBody](t, ts.api.Post(base+"/prev"))
	require.NotNil(t, jump.Marker)
	assert.Equal(t, 10.0, jump.Marker.Time)

	ts.api.Post(base+"/seek", map[string]any{"time": 35})
	jump = decodeData[jumpBody](t, ts.api.Post(base+"/next"))
	assert.Nil(t, jump.Marker)
	assert.Equal(t, 35.0, jump.Player.Position)
}

func TestClickMarker(t *testing.T) {
	ts := setupTestServer(t)
	sess := ts.createSession(t, map[string]any{
		"duration":          40,
		"markers":           threeBreaks(),
		"disable_tip_click": true,
	})
	base := "/api/v1/sessions/" + sess.ID + "/markers/" + sess.Markers[2].Key

	type clickBody struct {
		Seeked bool       `json:"seeked"`
		Player playerBody `json:"player"`
	}

	click := decodeData[clickBody](t, ts.api.Post(base+"/click"))
	assert.True(t, click.Seeked)
	assert.Equal(t, 30.0, click.Player.Position)

	ts.api.Post("/api/v1/sessions/"+sess.ID+"/seek", map[string]any{"time": 0})
	click = decodeData[clickBody](t, ts.api.Post(base+"/tipclick"))
	assert.False(t, click.Seeked)
	assert.Equal(t, 0.0, click.Player.Position)

	resp := ts.api.Post("/api/v1/sessions/" + sess.ID + "/markers/mk_missing/click")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPlayPauseRate(t *testing.T) {
	ts := setupTestServer(t)
	sess := ts.createSession(t, map[string]any{"duration": 40})
	base := "/api/v1/sessions/" + sess.ID

	st := decodeData[playerBody](t, ts.api.Post(base+"/rate", map[string]any{"rate": 2}))
	assert.Equal(t, 2.0, st.Rate)

	st = decodeData[playerBody](t, ts.api.Post(base+"/play"))
	assert.True(t, st.Playing)

	assert.Eventually(t, func() bool {
		return decodeData[sessionBody](t, ts.api.Get(base)).Player.Position > 0
	}, time.Second, 10*time.Millisecond)

	st = decodeData[playerBody](t, ts.api.Post(base+"/pause"))
	assert.False(t, st.Playing)

	resp := ts.api.Post(base+"/rate", map[string]any{"rate": 0})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSync(t *testing.T) {
	ts := setupTestServer(t)
	sess := ts.createSession(t, map[string]any{"duration": 40, "markers": threeBreaks(), "start": 25})

	type stateBody struct {
		Initialized bool    `json:"initialized"`
		Active      int     `json:"active"`
		CurrentTime float64 `json:"current_time"`
	}

	st := decodeData[stateBody](t, ts.api.Post("/api/v1/sessions/"+sess.ID+"/sync"))
	assert.True(t, st.Initialized)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 25.0, st.CurrentTime)
}

func TestReload_WithoutSource(t *testing.T) {
	ts := setupTestServer(t)
	sess := ts.createSession(t, map[string]any{"duration": 40})

	resp := ts.api.Post("/api/v1/sessions/" + sess.ID + "/reload")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope(t, resp).Code)
}

func TestReload_SourceErrors(t *testing.T) {
	ts := setupTestServer(t)
	path := filepath.Join(ts.sourceDir, "show.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"time": 5}, {"time": 15}]`), 0o644))
	sess := ts.createSession(t, map[string]any{"source": "show.json", "duration": 30})
	reload := "/api/v1/sessions/" + sess.ID + "/reload"

	resp := ts.api.Post(reload)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	require.NoError(t, os.WriteFile(path, []byte(`{"markers": [`), 0o644))
	resp = ts.api.Post(reload)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope(t, resp).Code)

	require.NoError(t, os.Remove(path))
	resp = ts.api.Post(reload)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, resp).Code)
}

func TestRender(t *testing.T) {
	ts := setupTestServer(t)
	sess := ts.createSession(t, map[string]any{"duration": 40, "markers": threeBreaks()})

	resp := ts.api.Get("/api/v1/sessions/" + sess.ID + "/render?width=40")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/plain"))
	body := resp.Body.String()
	assert.Contains(t, body, "◆")
	assert.Contains(t, body, "Break 2")
}
