package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/markertrack/internal/http/response"
)

// EnvelopeVersion is the "v" field of every JSON response.
const EnvelopeVersion = response.EnvelopeVersion

// EnvelopeTransformer wraps response bodies in a response.Envelope. Successful
// bodies go under "data"; errors carry their code, message and details.
// Raw byte bodies such as the rendered bar are passed through untouched.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case []byte, response.Envelope:
		return v, nil
	case *APIError:
		return response.Failure(body.Code, body.Message, body.Details), nil
	case error:
		env := response.Failure("", body.Error(), nil)
		env.Message = ""
		return env, nil
	}

	if len(status) > 0 && status[0] != '2' {
		env := response.Failure("", "", nil)
		env.Data = v
		return env, nil
	}
	return response.Success(v), nil
}

// newConfig returns the huma configuration shared by the server and tests.
func newConfig() huma.Config {
	cfg := huma.DefaultConfig("markertrack API", "1.0.0")
	cfg.Info.Description = "Marker timelines over simulated media players."
	// Schema links would wrap error bodies before the envelope sees them.
	cfg.CreateHooks = nil
	cfg.Transformers = []huma.Transformer{EnvelopeTransformer}
	return cfg
}
