package validation_test

import (
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/listenupapp/markertrack/internal/errors"
	"github.com/listenupapp/markertrack/internal/validation"
)

type markerInput struct {
	Time float64 `json:"time" validate:"gte=0,finite"`
	Text string  `json:"text" validate:"max=16"`
}

type createRequest struct {
	Duration float64       `json:"duration" validate:"gt=0,finite"`
	Mode     string        `json:"mode,omitempty" validate:"omitempty,oneof=paused playing"`
	Markers  []markerInput `json:"markers" validate:"max=3,dive"`
}

func TestValidator_Valid(t *testing.T) {
	v := validation.New()

	err := v.Validate(createRequest{
		Duration: 40,
		Markers:  []markerInput{{Time: 0, Text: "start"}, {Time: 12.5}},
	})
	assert.NoError(t, err)
}

func TestValidator_Errors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name    string
		req     createRequest
		field   string
		message string
	}{
		{
			name:    "non-positive duration",
			req:     createRequest{Duration: 0},
			field:   "duration",
			message: "must be greater than 0",
		},
		{
			name:    "infinite duration",
			req:     createRequest{Duration: math.Inf(1)},
			field:   "duration",
			message: "must be a finite number",
		},
		{
			name:    "negative marker time",
			req:     createRequest{Duration: 10, Markers: []markerInput{{Time: 1}, {Time: -1}}},
			field:   "markers[1].time",
			message: "must be greater than or equal to 0",
		},
		{
			name:    "NaN marker time",
			req:     createRequest{Duration: 10, Markers: []markerInput{{Time: math.NaN()}}},
			field:   "markers[0].time",
			message: "must be greater than or equal to 0",
		},
		{
			name:    "too many markers",
			req:     createRequest{Duration: 10, Markers: make([]markerInput, 4)},
			field:   "markers",
			message: "must not exceed 3 items or characters",
		},
		{
			name:    "bad mode",
			req:     createRequest{Duration: 10, Mode: "rewinding"},
			field:   "mode",
			message: "must be one of: paused playing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())

			details, ok := appErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.message, details[tt.field], "details: %v", details)
		})
	}
}
