package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/tenant-storefront/internal/config"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// newCatalogServer serves total items in the catalog service's envelope.
func newCatalogServer(t *testing.T, total int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.FetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := []domain.CatalogItem{}
		start := (req.PageIndex - 1) * req.PageSize
		for i := start; i < min(start+req.PageSize, total); i++ {
			data = append(data, domain.CatalogItem{
				Title:       fmt.Sprintf("Item %d", i),
				ModelNumber: fmt.Sprintf("M-%d", i),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"statusCode": 200,
			"message":    "ok",
			"result":     map[string]any{"recordsTotal": total, "data": data},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, total int) *server {
	t.Helper()

	catalogSrv := newCatalogServer(t, total)
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
catalog:
  endpoint: %s
storefront:
  name: Acme Parts
loader:
  page_size: 10
  debounce: 10ms
sessions:
  max: 5
  sweep_interval: 1m
`, catalogSrv.URL)))
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := newServer(context.Background(), cfg, log, false)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.shutdown(ctx))
	})
	return srv
}

func do(srv *server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, 3)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "healthz", target: "/healthz", wantStatus: http.StatusOK, wantBody: `"ok"`},
		{name: "readyz without store", target: "/readyz", wantStatus: http.StatusOK, wantBody: `"ready"`},
		{name: "metrics", target: "/metrics", wantStatus: http.StatusOK, wantBody: "go_goroutines"},
		{name: "openapi", target: "/openapi.json", wantStatus: http.StatusOK, wantBody: "open-session"},
		{name: "swagger ui", target: "/swagger/index.html", wantStatus: http.StatusOK, wantBody: apiTitle},
		{name: "home", target: "/", wantStatus: http.StatusOK, wantBody: "Acme Parts"},
		{name: "html not found", target: "/nowhere", wantStatus: http.StatusNotFound, wantBody: "Page Not Found"},
		{name: "events disabled", target: "/api/v1/sessions/abc/events", wantStatus: http.StatusServiceUnavailable},
		{name: "image url required", target: "/api/v1/images/download", wantStatus: http.StatusBadRequest},
		{
			name:       "image from metadata address",
			target:     "/api/v1/images/download?url=http%3A%2F%2F169.254.169.254%2Flatest%2F",
			wantStatus: http.StatusBadRequest,
			wantBody:   "image host is not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(srv, http.MethodGet, tt.target, nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestServer_SessionOverCatalog(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, 12)

	rec := do(srv, http.MethodPost, "/api/v1/tenants/t1/categories/c1/sessions?wait=true", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var opened struct {
		ID    string               `json:"id"`
		Items []domain.CatalogItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	require.NotEmpty(t, opened.ID)
	assert.Len(t, opened.Items, 10)
	assert.Equal(t, 1, srv.manager.Len())

	rec = do(srv, http.MethodPost, "/api/v1/sessions/"+opened.ID+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(srv, http.MethodGet, "/storefront/sessions/"+opened.ID+"/items?wait=true&from=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Model No : M-11")
	assert.Equal(t, "false", rec.Header().Get("X-Has-More"))

	viewport := bytes.NewBufferString(`{"scrollOffset":0,"viewportHeight":800,"scrollHeight":5000}`)
	rec = do(srv, http.MethodPost, "/api/v1/sessions/"+opened.ID+"/scroll", viewport)
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = do(srv, http.MethodDelete, "/api/v1/sessions/"+opened.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, srv.manager.Len())
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	cmd := versionCommand()
	var out strings.Builder
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "storefront "+Version+"\n", out.String())
}
