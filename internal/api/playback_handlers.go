package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/markertrack/internal/player"
	"github.com/listenupapp/markertrack/internal/render"
	"github.com/listenupapp/markertrack/internal/session"
	"github.com/listenupapp/markertrack/internal/timeline"
)

func (s *Server) registerPlaybackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "clickMarker",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/markers/{key}/click",
		Summary:     "Click marker",
		Description: "Seeks to the marker, as a click on its glyph would",
		Tags:        []string{"Playback"},
	}, s.handleClickMarker)

	huma.Register(s.api, huma.Operation{
		OperationID: "clickMarkerTip",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/markers/{key}/tipclick",
		Summary:     "Click marker tooltip",
		Description: "Seeks to the marker unless tooltip clicks are disabled for the session",
		Tags:        []string{"Playback"},
	}, s.handleClickMarkerTip)

	huma.Register(s.api, huma.Operation{
		OperationID: "nextMarker",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/next",
		Summary:     "Next marker",
		Description: "Seeks to the first marker after the current time",
		Tags:        []string{"Playback"},
	}, s.handleNext)

	huma.Register(s.api, huma.Operation{
		OperationID: "prevMarker",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/prev",
		Summary:     "Previous marker",
		Description: "Seeks to the last marker before the current time, skipping one just passed",
		Tags:        []string{"Playback"},
	}, s.handlePrev)

	huma.Register(s.api, huma.Operation{
		OperationID: "seek",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/seek",
		Summary:     "Seek",
		Tags:        []string{"Playback"},
	}, s.handleSeek)

	huma.Register(s.api, huma.Operation{
		OperationID: "play",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/play",
		Summary:     "Play",
		Tags:        []string{"Playback"},
	}, s.handlePlay)

	huma.Register(s.api, huma.Operation{
		OperationID: "pause",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/pause",
		Summary:     "Pause",
		Tags:        []string{"Playback"},
	}, s.handlePause)

	huma.Register(s.api, huma.Operation{
		OperationID: "setRate",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/rate",
		Summary:     "Set playback rate",
		Tags:        []string{"Playback"},
	}, s.handleSetRate)

	huma.Register(s.api, huma.Operation{
		OperationID: "syncTimeline",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/sync",
		Summary:     "Sync timeline",
		Description: "Re-evaluates the active marker and overlay at the current time",
		Tags:        []string{"Playback"},
	}, s.handleSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "reloadMarkers",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/reload",
		Summary:     "Reload marker file",
		Description: "Reads the session's marker file again and replaces its markers",
		Tags:        []string{"Playback"},
	}, s.handleReload)

	huma.Register(s.api, huma.Operation{
		OperationID: "getView",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/view",
		Summary:     "Get layout",
		Description: "Returns glyph positions, the active marker and the overlay",
		Tags:        []string{"Playback"},
	}, s.handleGetView)

	huma.Register(s.api, huma.Operation{
		OperationID: "renderBar",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/render",
		Summary:     "Render scrub bar",
		Description: "Draws the scrub bar with its markers as plain text",
		Tags:        []string{"Playback"},
	}, s.handleRender)
}

// === DTOs ===

// PlayerOutput wraps the player state for Huma.
type PlayerOutput struct {
	Body player.Status
}

// ClickResponse reports the outcome of a click.
type ClickResponse struct {
	Seeked bool          `json:"seeked" doc:"Whether playback moved to the marker"`
	Player player.Status `json:"player" doc:"Player state after the click"`
}

// ClickOutput wraps a click response for Huma.
type ClickOutput struct {
	Body ClickResponse
}

// JumpResponse reports the marker moved to by next or prev.
type JumpResponse struct {
	Marker *timeline.Marker `json:"marker" doc:"Marker moved to, null when there is none"`
	Player player.Status    `json:"player" doc:"Player state after the jump"`
}

// JumpOutput wraps a jump response for Huma.
type JumpOutput struct {
	Body JumpResponse
}

// SeekRequest is the request body for seeking.
type SeekRequest struct {
	Time float64 `json:"time" doc:"Position in seconds"`
}

// SeekInput wraps a seek request for Huma.
type SeekInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body SeekRequest
}

// RateRequest is the request body for changing the playback rate.
type RateRequest struct {
	Rate float64 `json:"rate" doc:"Playback rate, 1 is normal speed"`
}

// RateInput wraps a rate request for Huma.
type RateInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body RateRequest
}

// StateOutput wraps the timeline state for Huma.
type StateOutput struct {
	Body timeline.State
}

// ReloadResponse reports the markers read from the file.
type ReloadResponse struct {
	Markers int `json:"markers" doc:"Number of markers loaded"`
}

// ReloadOutput wraps a reload response for Huma.
type ReloadOutput struct {
	Body ReloadResponse
}

// ViewOutput wraps the layout for Huma.
type ViewOutput struct {
	Body render.View
}

// RenderInput selects the width of the drawn bar.
type RenderInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Width int    `query:"width" default:"60" minimum:"10" maximum:"400" doc:"Bar width in cells"`
}

// RenderOutput carries the drawn bar.
type RenderOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// === Handlers ===

func (s *Server) handleClickMarker(_ context.Context, input *MarkerKeyInput) (*ClickOutput, error) {
	return s.click(input, (*session.Session).Click)
}

func (s *Server) handleClickMarkerTip(_ context.Context, input *MarkerKeyInput) (*ClickOutput, error) {
	return s.click(input, (*session.Session).TipClick)
}

func (s *Server) click(input *MarkerKeyInput, fn func(*session.Session, string) (bool, error)) (*ClickOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	seeked, err := fn(sess, input.Key)
	if err != nil {
		return nil, toAPIError(err)
	}
	st, err := sess.PlayerStatus()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ClickOutput{Body: ClickResponse{Seeked: seeked, Player: st}}, nil
}

func (s *Server) handleNext(_ context.Context, input *SessionIDInput) (*JumpOutput, error) {
	return s.jump(input.ID, (*session.Session).Next)
}

func (s *Server) handlePrev(_ context.Context, input *SessionIDInput) (*JumpOutput, error) {
	return s.jump(input.ID, (*session.Session).Prev)
}

func (s *Server) jump(id string, fn func(*session.Session) (*timeline.Marker, error)) (*JumpOutput, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, toAPIError(err)
	}
	m, err := fn(sess)
	if err != nil {
		return nil, toAPIError(err)
	}
	st, err := sess.PlayerStatus()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &JumpOutput{Body: JumpResponse{Marker: m, Player: st}}, nil
}

func (s *Server) handleSeek(_ context.Context, input *SeekInput) (*PlayerOutput, error) {
	return s.playerOp(input.ID, func(sess *session.Session) error {
		return sess.Seek(input.Body.Time)
	})
}

func (s *Server) handlePlay(_ context.Context, input *SessionIDInput) (*PlayerOutput, error) {
	return s.playerOp(input.ID, (*session.Session).Play)
}

func (s *Server) handlePause(_ context.Context, input *SessionIDInput) (*PlayerOutput, error) {
	return s.playerOp(input.ID, (*session.Session).Pause)
}

func (s *Server) handleSetRate(_ context.Context, input *RateInput) (*PlayerOutput, error) {
	return s.playerOp(input.ID, func(sess *session.Session) error {
		return sess.SetRate(input.Body.Rate)
	})
}

func (s *Server) playerOp(id string, fn func(*session.Session) error) (*PlayerOutput, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, toAPIError(err)
	}
	if err := fn(sess); err != nil {
		return nil, toAPIError(err)
	}
	st, err := sess.PlayerStatus()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &PlayerOutput{Body: st}, nil
}

func (s *Server) handleSync(_ context.Context, input *SessionIDInput) (*StateOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if err := sess.Sync(); err != nil {
		return nil, toAPIError(err)
	}
	st, err := sess.State()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &StateOutput{Body: st}, nil
}

func (s *Server) handleReload(ctx context.Context, input *SessionIDInput) (*ReloadOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	n, err := sess.Reload(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ReloadOutput{Body: ReloadResponse{Markers: n}}, nil
}

func (s *Server) handleGetView(_ context.Context, input *SessionIDInput) (*ViewOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	v, err := sess.View()
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ViewOutput{Body: v}, nil
}

func (s *Server) handleRender(_ context.Context, input *RenderInput) (*RenderOutput, error) {
	sess, err := s.sessions.Get(input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	v, err := sess.View()
	if err != nil {
		return nil, toAPIError(err)
	}
	st, err := sess.PlayerStatus()
	if err != nil {
		return nil, toAPIError(err)
	}
	out := render.NewTerminal(input.Width).Render(v, st.Position)
	return &RenderOutput{
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(out),
	}, nil
}
