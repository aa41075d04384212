package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestTracing_PassesThrough(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(Tracing())

	var sawSpan bool
	e.GET("/api/v1/sessions/:id", func(c echo.Context) error {
		// The global provider is a no-op in tests, but a span is still
		// placed on the context.
		sawSpan = trace.SpanFromContext(c.Request().Context()) != nil
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/1", http.NoBody))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, sawSpan)
}

func TestTracing_ErrorStatus(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(Tracing())
	e.GET("/fail", func(_ echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", http.NoBody))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
