package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		handler    echo.HandlerFunc
		wantStatus int
		wantBody   string
		wantLogs   []string
	}{
		{
			name:   "passes through without panic",
			method: http.MethodGet,
			path:   "/healthz",
			handler: func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name:       "string panic becomes 500",
			method:     http.MethodGet,
			path:       "/storefront/acme/sofa-legs",
			handler:    func(echo.Context) error { panic("template exploded") },
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal server error",
			wantLogs:   []string{"panic recovered", "template exploded", "path=/storefront/acme/sofa-legs"},
		},
		{
			name:       "non-string panic is formatted",
			method:     http.MethodPost,
			path:       "/api/v1/sessions",
			handler:    func(echo.Context) error { panic(42) },
			wantStatus: http.StatusInternalServerError,
			wantLogs:   []string{"error=42", "method=POST"},
		},
		{
			name:   "committed response is left alone",
			method: http.MethodGet,
			path:   "/storefront/acme/sofa-legs/items",
			handler: func(c echo.Context) error {
				c.Response().WriteHeader(http.StatusOK)
				panic("mid-render")
			},
			wantStatus: http.StatusOK,
			wantLogs:   []string{"mid-render", "stack="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))

			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(tt.method, tt.path, http.NoBody), rec)

			require.NoError(t, Recovery(log)(tt.handler)(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)

			if len(tt.wantLogs) == 0 {
				assert.Empty(t, buf.String())
			}
			for _, want := range tt.wantLogs {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRecovery_AbortHandlerRepanics(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), httptest.NewRecorder())

	handler := Recovery(log)(func(echo.Context) error {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { _ = handler(c) })
}
