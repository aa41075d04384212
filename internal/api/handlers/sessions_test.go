package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/tenant-storefront/internal/api/handlers"
	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/loader"
	"github.com/donaldgifford/tenant-storefront/internal/session"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

func newSessionsAPI(t *testing.T, f catalog.Fetcher, maxSessions int) (humatest.TestAPI, *session.Manager) {
	t.Helper()

	m := newTestManager(t, f, maxSessions)
	_, api := humatest.New(t)
	handlers.RegisterSessionRoutes(api, handlers.NewSessionsHandler(m))
	return api, m
}

func decodeView(t *testing.T, body []byte) session.View {
	t.Helper()

	var v session.View
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func openSession(t *testing.T, api humatest.TestAPI) session.View {
	t.Helper()

	resp := api.Post("/api/v1/tenants/t1/categories/c1/sessions?wait=true")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeView(t, resp.Body.Bytes())
}

func TestSessionsHandler_Open(t *testing.T) {
	t.Parallel()

	api, _ := newSessionsAPI(t, pagedCatalog(25), 10)

	v := openSession(t, api)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "t1", v.TenantID)
	assert.Equal(t, "c1", v.CategoryID)
	assert.Equal(t, loader.StateIdle, v.State)
	assert.Len(t, v.Items, 10)
	assert.Equal(t, "M-0", v.Items[0].ModelNumber)
	assert.Equal(t, 2, v.NextPageIndex)
	assert.True(t, v.HasMore)
	assert.False(t, v.IsLoading)
	assert.False(t, v.Error.Open)
}

func TestSessionsHandler_OpenTooMany(t *testing.T) {
	t.Parallel()

	api, _ := newSessionsAPI(t, pagedCatalog(5), 1)

	openSession(t, api)

	resp := api.Post("/api/v1/tenants/t1/categories/c2/sessions")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "too many open sessions")
}

func TestSessionsHandler_Get(t *testing.T) {
	t.Parallel()

	api, _ := newSessionsAPI(t, pagedCatalog(5), 10)
	opened := openSession(t, api)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "found",
			path:       "/api/v1/sessions/" + opened.ID,
			wantStatus: http.StatusOK,
			wantBody:   `"state":"exhausted"`,
		},
		{
			name:       "not found",
			path:       "/api/v1/sessions/missing",
			wantStatus: http.StatusNotFound,
			wantBody:   "session not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := api.Get(tt.path)
			require.Equal(t, tt.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantBody)
		})
	}
}

func TestSessionsHandler_Next(t *testing.T) {
	t.Parallel()

	api, _ := newSessionsAPI(t, pagedCatalog(25), 10)
	v := openSession(t, api)

	resp := api.Post("/api/v1/sessions/" + v.ID + "/next")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"started":true}`, resp.Body.String())

	resp = api.Get("/api/v1/sessions/" + v.ID + "?wait=true")
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeView(t, resp.Body.Bytes())
	assert.Len(t, got.Items, 20)
	assert.Equal(t, 3, got.NextPageIndex)

	resp = api.Post("/api/v1/sessions/missing/next")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSessionsHandler_NextAfterExhausted(t *testing.T) {
	t.Parallel()

	api, _ := newSessionsAPI(t, pagedCatalog(3), 10)
	v := openSession(t, api)
	require.False(t, v.HasMore)

	resp := api.Post("/api/v1/sessions/" + v.ID + "/next")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"started":false}`, resp.Body.String())
}

func TestSessionsHandler_Scroll(t *testing.T) {
	t.Parallel()

	api, _ := newSessionsAPI(t, pagedCatalog(25), 10)
	v := openSession(t, api)

	tests := []struct {
		name       string
		path       string
		body       map[string]any
		wantStatus int
		wantBody   string
	}{
		{
			name:       "accepted",
			path:       "/api/v1/sessions/" + v.ID + "/scroll",
			body:       map[string]any{"scrollOffset": 950, "viewportHeight": 800, "scrollHeight": 1800},
			wantStatus: http.StatusAccepted,
			wantBody:   `"accepted":true`,
		},
		{
			name:       "negative viewport height rejected",
			path:       "/api/v1/sessions/" + v.ID + "/scroll",
			body:       map[string]any{"scrollOffset": 0, "viewportHeight": -1, "scrollHeight": 100},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "viewportHeight",
		},
		{
			name:       "unknown session",
			path:       "/api/v1/sessions/missing/scroll",
			body:       map[string]any{"scrollOffset": 0, "viewportHeight": 100, "scrollHeight": 100},
			wantStatus: http.StatusNotFound,
			wantBody:   "session not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := api.Post(tt.path, tt.body)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			assert.Contains(t, resp.Body.String(), tt.wantBody)
		})
	}
}

func TestSessionsHandler_DismissAfterFailure(t *testing.T) {
	t.Parallel()

	api, _ := newSessionsAPI(t, failingCatalog(http.StatusInternalServerError), 10)
	v := openSession(t, api)

	require.Equal(t, loader.StateFailed, v.State)
	require.True(t, v.Error.Open)
	assert.Equal(t, "Server Error", v.Error.Title)
	assert.Contains(t, v.Error.Message, "500")

	resp := api.Post("/api/v1/sessions/" + v.ID + "/error/dismiss")
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeView(t, resp.Body.Bytes())
	assert.False(t, got.Error.Open)
	assert.Equal(t, loader.StateFailed, got.State)

	resp = api.Post("/api/v1/sessions/" + v.ID + "/next")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"started":false}`, resp.Body.String())
}

func TestSessionsHandler_Delete(t *testing.T) {
	t.Parallel()

	api, m := newSessionsAPI(t, pagedCatalog(25), 10)
	v := openSession(t, api)

	resp := api.Delete("/api/v1/sessions/" + v.ID)
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Zero(t, m.Len())

	resp = api.Get("/api/v1/sessions/" + v.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Delete("/api/v1/sessions/" + v.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSessionsHandler_ContextCanceledWait(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	hung := catalog.FetcherFunc(func(ctx context.Context, _ domain.FetchRequest) (*domain.PageResult, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	})

	m := newTestManager(t, hung, 10)
	h := handlers.NewSessionsHandler(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.Open(ctx, &handlers.OpenSessionInput{TenantID: "t1", CategoryID: "c1", Wait: true})
	require.NoError(t, err)
	assert.True(t, out.Body.IsLoading)
	assert.Equal(t, loader.StateLoading, out.Body.State)
}
