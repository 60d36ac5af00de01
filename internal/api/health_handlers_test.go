package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)
	ts.createSession(t, map[string]any{"duration": 10})

	resp := ts.api.Get("/health")

	require.Equal(t, http.StatusOK, resp.Code)
	health := decodeData[HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1 open session", health.Components["sessions"].Message)
	assert.Equal(t, "no connected clients", health.Components["sse"].Message)
}

func TestHealthCheck_NoStreams(t *testing.T) {
	s := &Server{}

	assert.Equal(t, "degraded", s.checkSSEManager().Status)
	assert.Equal(t, "unhealthy", s.checkSessions().Status)
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "0 open sessions", plural(0, "open session"))
	assert.Equal(t, "1 open session", plural(1, "open session"))
	assert.Equal(t, "12 connected clients", plural(12, "connected client"))
}
