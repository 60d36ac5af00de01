package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	apperrors "github.com/listenupapp/markertrack/internal/errors"
	"github.com/listenupapp/markertrack/internal/session"
	"github.com/listenupapp/markertrack/internal/timeline"
)

func (s *Server) registerMarkerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listMarkers",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/markers",
		Summary:     "List markers",
		Description: "Returns the markers of a session in time order",
		Tags:        []string{"Markers"},
	}, s.handleListMarkers)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addMarkers",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions/{id}/markers",
		Summary:       "Add markers",
		Description:   "Inserts markers and returns them with their assigned keys",
		Tags:          []string{"Markers"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddMarkers)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetMarkers",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{id}/markers",
		Summary:     "Replace markers",
		Description: "Removes every marker and inserts the given ones",
		Tags:        []string{"Markers"},
	}, s.handleResetMarkers)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeAllMarkers",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{id}/markers",
		Summary:       "Remove all markers",
		Tags:          []string{"Markers"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveAllMarkers)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeMarkers",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/markers/remove",
		Summary:     "Remove markers",
		Description: "Removes markers by key, or by position in the current order. Positions are resolved against the order before any removal",
		Tags:        []string{"Markers"},
	}, s.handleRemoveMarkers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMarker",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/markers/{key}",
		Summary:     "Get marker",
		Tags:        []string{"Markers"},
	}, s.handleGetMarker)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMarker",
		Method:      http.MethodPatch,
		Path:        "/api/v1/sessions/{id}/markers/{key}",
		Summary:     "Update marker",
		Description: "Changes fields of a marker. A new time re-sorts the timeline",
		Tags:        []string{"Markers"},
	}, s.handleUpdateMarker)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeMarker",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{id}/markers/{key}",
		Summary:       "Remove marker",
		Tags:          []string{"Markers"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveMarker)
}

// === DTOs ===

// MarkerKeyInput identifies a marker within a session.
type MarkerKeyInput struct {
	ID  string `path:"id" doc:"Session ID"`
	Key string `path:"key" doc:"Marker key"`
}

// MarkersRequest carries markers to add or to replace with.
type MarkersRequest struct {
	Markers []session.MarkerInput `json:"markers" doc:"Markers, in any order"`
}

// MarkersInput wraps a markers request for Huma.
type MarkersInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body MarkersRequest
}

// MarkersResponse contains markers in time order.
type MarkersResponse struct {
	Markers []timeline.Marker `json:"markers" doc:"Markers in time order"`
}

// MarkersOutput wraps a markers response for Huma.
type MarkersOutput struct {
	Body MarkersResponse
}

// MarkerOutput wraps a single marker for Huma.
type MarkerOutput struct {
	Body timeline.Marker
}

// RemoveMarkersRequest selects markers by key or by position.
type RemoveMarkersRequest struct {
	Keys    []string `json:"keys,omitempty" doc:"Marker keys"`
	Indices []int    `json:"indices,omitempty" doc:"Positions in the current order"`
}

// RemoveMarkersInput wraps a remove request for Huma.
type RemoveMarkersInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body RemoveMarkersRequest
}

// RemoveMarkersResponse reports how many markers were removed.
type RemoveMarkersResponse struct {
	Removed int `json:"removed" doc:"Number of markers removed"`
}

// RemoveMarkersOutput wraps a remove response for Huma.
type RemoveMarkersOutput struct {
	Body RemoveMarkersResponse
}

// UpdateMarkerInput wraps a marker patch for Huma.
type UpdateMarkerInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Key  string `path:"key" doc:"Marker key"`
	Body session.MarkerPatch
}

// === Handlers ===

func (s *Server) handleListMarkers(_ context.Context, input *SessionIDInput) (*MarkersOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	markers, err := sess.Markers()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &MarkersOutput{Body: MarkersResponse{Markers: markers}}, nil
}

func (s *Server) handleAddMarkers(_ context.Context, input *MarkersInput) (*MarkersOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if len(input.Body.Markers) == 0 {
		return nil, toAPIError(apperrors.Validation("markers must not be empty"))
	}
	added, err := sess.AddMarkers(input.Body.Markers)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &MarkersOutput{Body: MarkersResponse{Markers: added}}, nil
}

func (s *Server) handleResetMarkers(_ context.Context, input *MarkersInput) (*MarkersOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	markers, err := sess.ResetMarkers(input.Body.Markers)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &MarkersOutput{Body: MarkersResponse{Markers: markers}}, nil
}

func (s *Server) handleRemoveAllMarkers(_ context.Context, input *SessionIDInput) (*struct{}, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return nil, toAPIError(sess.RemoveAllMarkers())
}

func (s *Server) handleRemoveMarkers(_ context.Context, input *RemoveMarkersInput) (*RemoveMarkersOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}

	keys, indices := input.Body.Keys, input.Body.Indices
	var n int
	switch {
	case len(keys) > 0 && len(indices) > 0:
		return nil, toAPIError(apperrors.Validation("give keys or indices, not both"))
	case len(keys) > 0:
		n, err = sess.RemoveMarkers(keys...)
	case len(indices) > 0:
		n, err = sess.RemoveMarkersAt(indices...)
	default:
		return nil, toAPIError(apperrors.Validation("keys or indices are required"))
	}
	if err != nil {
		return nil, toAPIError(err)
	}
	return &RemoveMarkersOutput{Body: RemoveMarkersResponse{Removed: n}}, nil
}

func (s *Server) handleGetMarker(_ context.Context, input *MarkerKeyInput) (*MarkerOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	m, err := sess.Marker(input.Key)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &MarkerOutput{Body: m}, nil
}

func (s *Server) handleUpdateMarker(_ context.Context, input *UpdateMarkerInput) (*MarkerOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	m, err := sess.UpdateMarker(input.Key, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &MarkerOutput{Body: m}, nil
}

func (s *Server) handleRemoveMarker(_ context.Context, input *MarkerKeyInput) (*struct{}, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	n, err := sess.RemoveMarkers(input.Key)
	if err != nil {
		return nil, toAPIError(err)
	}
	if n == 0 {
		return nil, toAPIError(apperrors.NotFoundf("marker %s not found", input.Key))
	}
	return nil, nil
}
