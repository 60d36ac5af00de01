package response

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/listenupapp/markertrack/internal/errors"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]float64{"duration": 40}, discard())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"duration": 40}`, w.Body.String())
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "coded error",
			err:        apperrors.NotFound("session abc not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "session abc not found",
		},
		{
			name:       "wrapped coded error",
			err:        errors.Join(errors.New("context"), apperrors.NotReady("media duration unknown")),
			wantStatus: http.StatusConflict,
			wantCode:   "NOT_READY",
			wantMsg:    "media duration unknown",
		},
		{
			name:       "plain error is hidden",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, tt.err, discard())

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, EnvelopeVersion, body.Version)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, apperrors.ValidationWithDetails("validation failed", map[string]string{"time": "must be 0 or greater"}), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"v":1,"success":false,"error":"validation failed","code":"VALIDATION","message":"validation failed","details":{"time":"must be 0 or greater"}}`,
		w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, Success(map[string]int{"markers": 3}), nil)

	assert.JSONEq(t, `{"v":1,"success":true,"data":{"markers":3}}`, w.Body.String())
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	TooManyRequests(w, discard())

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decode(t, w).Code)
}

func TestNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	NotFound(w, "session not found", discard())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session not found", decode(t, w).Message)
}
