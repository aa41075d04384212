package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/tenant-storefront/internal/loader"
	"github.com/donaldgifford/tenant-storefront/internal/scroll"
	"github.com/donaldgifford/tenant-storefront/internal/session"
)

// SessionManager is the subset of session.Manager the API needs.
type SessionManager interface {
	Open(ctx context.Context, tenantID, categoryID string) (*session.Session, error)
	Get(id string) (*session.Session, error)
	Scroll(id string, v scroll.Viewport) error
	Next(id string) (bool, error)
	Dismiss(id string) (session.View, error)
	Wait(ctx context.Context, id string) error
	Close(ctx context.Context, id string) error
}

// SessionsHandler exposes loader sessions over the JSON API.
type SessionsHandler struct {
	sessions SessionManager
}

// NewSessionsHandler creates a SessionsHandler.
func NewSessionsHandler(m SessionManager) *SessionsHandler {
	return &SessionsHandler{sessions: m}
}

// OpenSessionInput is the request for POST
// /api/v1/tenants/{tenantId}/categories/{categoryId}/sessions.
type OpenSessionInput struct {
	TenantID   string `path:"tenantId"   doc:"Tenant identifier"   minLength:"1"`
	CategoryID string `path:"categoryId" doc:"Category identifier" minLength:"1"`
	Wait       bool   `query:"wait"      doc:"Block until the initial page has loaded"`
}

// SessionInput identifies a session.
type SessionInput struct {
	ID   string `path:"id"    doc:"Session ID"`
	Wait bool   `query:"wait" doc:"Block until no page fetch is in flight"`
}

// SessionIDInput identifies a session without options.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// ScrollInput is the request for POST /api/v1/sessions/{id}/scroll.
type ScrollInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body scroll.Viewport
}

// SessionOutput wraps a session view.
type SessionOutput struct {
	Body session.View
}

// ScrollOutput is the response for POST /api/v1/sessions/{id}/scroll.
type ScrollOutput struct {
	Body struct {
		Accepted bool `json:"accepted" doc:"Sample was queued for evaluation"`
	}
}

// NextOutput is the response for POST /api/v1/sessions/{id}/next.
type NextOutput struct {
	Body struct {
		Started bool `json:"started" doc:"A page fetch was started"`
	}
}

// Open creates a session and starts its initial page load.
func (h *SessionsHandler) Open(
	ctx context.Context,
	input *OpenSessionInput,
) (*SessionOutput, error) {
	s, err := h.sessions.Open(ctx, input.TenantID, input.CategoryID)
	if err != nil {
		return nil, sessionError(err)
	}

	if input.Wait {
		// A canceled request still gets the partial view.
		_ = s.Loader().Wait(ctx)
	}
	return &SessionOutput{Body: s.View()}, nil
}

// Get returns the current view of a session.
func (h *SessionsHandler) Get(
	ctx context.Context,
	input *SessionInput,
) (*SessionOutput, error) {
	s, err := h.sessions.Get(input.ID)
	if err != nil {
		return nil, sessionError(err)
	}

	if input.Wait {
		_ = s.Loader().Wait(ctx)
	}
	return &SessionOutput{Body: s.View()}, nil
}

// Scroll queues a viewport sample for debounced evaluation.
func (h *SessionsHandler) Scroll(
	_ context.Context,
	input *ScrollInput,
) (*ScrollOutput, error) {
	if err := h.sessions.Scroll(input.ID, input.Body); err != nil {
		return nil, sessionError(err)
	}

	out := &ScrollOutput{}
	out.Body.Accepted = true
	return out, nil
}

// Next requests the next page directly.
func (h *SessionsHandler) Next(
	_ context.Context,
	input *SessionIDInput,
) (*NextOutput, error) {
	started, err := h.sessions.Next(input.ID)
	if err != nil {
		return nil, sessionError(err)
	}

	out := &NextOutput{}
	out.Body.Started = started
	return out, nil
}

// Dismiss closes the session's error display.
func (h *SessionsHandler) Dismiss(
	_ context.Context,
	input *SessionIDInput,
) (*SessionOutput, error) {
	v, err := h.sessions.Dismiss(input.ID)
	if err != nil {
		return nil, sessionError(err)
	}
	return &SessionOutput{Body: v}, nil
}

// Delete tears a session down.
func (h *SessionsHandler) Delete(
	ctx context.Context,
	input *SessionIDInput,
) (*struct{}, error) {
	if err := h.sessions.Close(ctx, input.ID); err != nil {
		return nil, sessionError(err)
	}
	return nil, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return huma.Error404NotFound("session not found")
	case errors.Is(err, session.ErrTooManySessions):
		return huma.Error503ServiceUnavailable("too many open sessions, try again later")
	case errors.Is(err, loader.ErrInvalidConfig):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("session operation failed: " + err.Error())
	}
}

// RegisterSessionRoutes registers the session routes on the Huma API.
func RegisterSessionRoutes(api huma.API, h *SessionsHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "open-session",
		Method:        http.MethodPost,
		Path:          "/api/v1/tenants/{tenantId}/categories/{categoryId}/sessions",
		Summary:       "Open a loader session",
		Description:   "Creates a loader session for the tenant and category and starts loading the first page.",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}, h.Open)

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get a session",
		Description: "Returns the accumulated items, loading state and error display of a session.",
		Tags:        []string{"sessions"},
		Errors:      []int{http.StatusNotFound},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID:   "scroll-session",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions/{id}/scroll",
		Summary:       "Report a scroll position",
		Description:   "Queues a viewport sample. Bursts are coalesced and the latest sample decides whether the next page loads.",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusNotFound},
	}, h.Scroll)

	huma.Register(api, huma.Operation{
		OperationID: "next-page",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/next",
		Summary:     "Request the next page",
		Description: "Starts loading the next page unless a fetch is in flight or loading has stopped.",
		Tags:        []string{"sessions"},
		Errors:      []int{http.StatusNotFound},
	}, h.Next)

	huma.Register(api, huma.Operation{
		OperationID: "dismiss-error",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/error/dismiss",
		Summary:     "Dismiss the error display",
		Description: "Closes the error display. Loading does not resume.",
		Tags:        []string{"sessions"},
		Errors:      []int{http.StatusNotFound},
	}, h.Dismiss)

	huma.Register(api, huma.Operation{
		OperationID:   "close-session",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{id}",
		Summary:       "Close a session",
		Description:   "Tears the session down. A fetch still in flight is discarded.",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, h.Delete)
}
