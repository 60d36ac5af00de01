package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/markertrack/internal/session"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Create session",
		Description:   "Starts a simulated player with a marker timeline. Markers may come from the body, a marker file under the source directory, or both",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions",
		Summary:     "List sessions",
		Description: "Returns open sessions, oldest first",
		Tags:        []string{"Sessions"},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session",
		Description: "Returns the player, timeline and layout state of a session",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteSession",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{id}",
		Summary:       "Delete session",
		Description:   "Stops the player and tears down the timeline",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteSession)
}

// === DTOs ===

// SessionIDInput identifies a session.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// CreateSessionInput wraps the create request for Huma.
type CreateSessionInput struct {
	Body session.CreateRequest
}

// SessionOutput wraps a session snapshot for Huma.
type SessionOutput struct {
	Body session.Snapshot
}

// ListSessionsResponse contains the open sessions.
type ListSessionsResponse struct {
	Sessions []session.Summary `json:"sessions" doc:"Open sessions"`
	Total    int               `json:"total" doc:"Number of open sessions"`
}

// ListSessionsOutput wraps the list response for Huma.
type ListSessionsOutput struct {
	Body ListSessionsResponse
}

// === Handlers ===

func (s *Server) handleCreateSession(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	sess, err := s.sessions.Create(ctx, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: snap}, nil
}

func (s *Server) handleListSessions(_ context.Context, _ *struct{}) (*ListSessionsOutput, error) {
	sessions := s.sessions.List()
	return &ListSessionsOutput{
		Body: ListSessionsResponse{Sessions: sessions, Total: len(sessions)},
	}, nil
}

func (s *Server) handleGetSession(_ context.Context, input *SessionIDInput) (*SessionOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &SessionOutput{Body: snap}, nil
}

func (s *Server) handleDeleteSession(_ context.Context, input *SessionIDInput) (*struct{}, error) {
	if err := s.sessions.Delete(input.ID); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}
