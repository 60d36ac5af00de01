// Package response defines the JSON envelope every API response is wrapped in, and
// writes it for handlers that sit outside the huma API such as middleware and the
// event stream endpoint.
package response

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	apperrors "github.com/listenupapp/markertrack/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EnvelopeVersion is sent as "v" so clients can detect format changes.
const EnvelopeVersion = 1

// Envelope wraps every response body.
type Envelope struct {
	Version int  `json:"v"`
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	// Error repeats Message for clients that only read one string.
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Success wraps data.
func Success(data any) Envelope {
	return Envelope{Version: EnvelopeVersion, Success: true, Data: data}
}

// Failure wraps an error.
func Failure(code, message string, details any) Envelope {
	return Envelope{
		Version: EnvelopeVersion,
		Error:   message,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// JSON writes data, unwrapped, with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// Error writes err using its code. Errors without a code become 500 and their
// text is not sent to the client.
func Error(w http.ResponseWriter, err error, logger *slog.Logger) {
	var coded *apperrors.Error
	if !apperrors.As(err, &coded) {
		if logger != nil {
			logger.Error("unhandled error", "error", err)
		}
		coded = apperrors.Internal("internal server error")
	}

	if coded.Code == apperrors.CodeRateLimited {
		w.Header().Set("Retry-After", "1")
	}
	JSON(w, coded.HTTPStatus(), Failure(string(coded.Code), coded.Message, coded.Details), logger)
}

// NotFound writes a 404 with message.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, apperrors.NotFound(message), logger)
}

// TooManyRequests writes a 429.
func TooManyRequests(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, apperrors.ErrRateLimited, logger)
}
