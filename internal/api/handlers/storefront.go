package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/tenant-storefront/internal/session"
	"github.com/donaldgifford/tenant-storefront/internal/view"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// DefaultRenderWait bounds how long a page render waits for an in-flight
// fetch before rendering what is loaded.
const DefaultRenderWait = 10 * time.Second

// StorefrontHandler renders the HTML storefront on top of loader sessions.
type StorefrontHandler struct {
	sessions   SessionManager
	brand      domain.Brand
	renderWait time.Duration
	log        *slog.Logger
}

// StorefrontOption configures a StorefrontHandler.
type StorefrontOption func(*StorefrontHandler)

// WithRenderWait overrides DefaultRenderWait.
func WithRenderWait(d time.Duration) StorefrontOption {
	return func(h *StorefrontHandler) {
		h.renderWait = d
	}
}

// WithStorefrontLogger sets the logger.
func WithStorefrontLogger(l *slog.Logger) StorefrontOption {
	return func(h *StorefrontHandler) {
		h.log = l
	}
}

// NewStorefrontHandler creates a StorefrontHandler.
func NewStorefrontHandler(m SessionManager, brand domain.Brand, opts ...StorefrontOption) *StorefrontHandler {
	h := &StorefrontHandler{
		sessions:   m,
		brand:      brand,
		renderWait: DefaultRenderWait,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterStorefrontRoutes registers the HTML routes on e.
func RegisterStorefrontRoutes(e *echo.Echo, h *StorefrontHandler) {
	e.GET("/", h.Home)
	e.GET("/storefront", h.Browse)
	e.GET("/storefront/:tenantId/:categoryId", h.Open)
	e.GET("/storefront/sessions/:id", h.Show)
	e.GET("/storefront/sessions/:id/items", h.Items)
	e.POST("/storefront/sessions/:id/dismiss", h.Dismiss)
}

// Home handles GET /.
func (h *StorefrontHandler) Home(c echo.Context) error {
	return render(c, http.StatusOK, view.Home(h.brand))
}

// Browse handles GET /storefront?tenant=&category= by redirecting to the
// storefront page.
func (*StorefrontHandler) Browse(c echo.Context) error {
	tenant := strings.TrimSpace(c.QueryParam("tenant"))
	category := strings.TrimSpace(c.QueryParam("category"))
	if tenant == "" || category == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.Redirect(
		http.StatusSeeOther,
		"/storefront/"+url.PathEscape(tenant)+"/"+url.PathEscape(category),
	)
}

// Open handles GET /storefront/:tenantId/:categoryId. It opens a session,
// waits for the initial page and renders it.
func (h *StorefrontHandler) Open(c echo.Context) error {
	ctx := c.Request().Context()

	s, err := h.sessions.Open(ctx, c.Param("tenantId"), c.Param("categoryId"))
	if err != nil {
		return pageError(err)
	}
	h.wait(ctx, s)
	return render(c, http.StatusOK, h.page(s.View()))
}

// Show handles GET /storefront/sessions/:id.
func (h *StorefrontHandler) Show(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return pageError(err)
	}
	h.wait(c.Request().Context(), s)
	return render(c, http.StatusOK, h.page(s.View()))
}

// Items handles GET /storefront/sessions/:id/items?from=N and returns the
// cards from position N onward as an HTML fragment. The loader state is
// reported in the X-Loader-State and X-Loading headers, and X-Item-Count
// carries the number of items loaded so far, which the page uses as its
// next from.
func (h *StorefrontHandler) Items(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return pageError(err)
	}

	from := 0
	if raw := c.QueryParam("from"); raw != "" {
		from, err = strconv.Atoi(raw)
		if err != nil || from < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be a non-negative integer")
		}
	}
	if c.QueryParam("wait") == "true" {
		h.wait(c.Request().Context(), s)
	}

	v := s.View()
	items := v.Items[min(from, len(v.Items)):]

	header := c.Response().Header()
	header.Set("X-Loader-State", string(v.State))
	header.Set("X-Loading", strconv.FormatBool(v.IsLoading))
	header.Set("X-Has-More", strconv.FormatBool(v.HasMore))
	header.Set("X-Item-Count", strconv.Itoa(len(v.Items)))
	return render(c, http.StatusOK, view.Cards(items, from))
}

// Dismiss handles POST /storefront/sessions/:id/dismiss and sends the
// browser back to the session page.
func (h *StorefrontHandler) Dismiss(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.sessions.Dismiss(id); err != nil {
		return pageError(err)
	}
	return c.Redirect(http.StatusSeeOther, "/storefront/sessions/"+url.PathEscape(id))
}

func (h *StorefrontHandler) wait(ctx context.Context, s *session.Session) {
	if h.renderWait <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.renderWait)
	defer cancel()

	if err := s.Loader().Wait(ctx); err != nil {
		h.log.Debug("rendering before fetch completed", "session", s.ID, "error", err)
	}
}

func (h *StorefrontHandler) page(v session.View) templ.Component {
	return view.Storefront(view.StorefrontData{
		Brand:     h.brand,
		SessionID: v.ID,
		Items:     v.Items,
		IsLoading: v.IsLoading,
		HasMore:   v.HasMore,
		Error:     v.Error,
	})
}

func pageError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return echo.ErrNotFound
	case errors.Is(err, session.ErrTooManySessions):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many open sessions, try again later")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}

func render(c echo.Context, status int, comp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return comp.Render(c.Request().Context(), c.Response())
}

// NewHTTPErrorHandler returns an echo error handler that renders the HTML
// 404 page for unknown non-API routes and defers to echo's JSON errors
// otherwise.
func NewHTTPErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusNotFound && !isAPIPath(c.Request().URL.Path) {
			if rerr := render(c, http.StatusNotFound, view.NotFound()); rerr != nil {
				e.Logger.Error(rerr)
			}
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/") ||
		p == "/openapi.json" ||
		p == "/metrics" ||
		p == "/healthz" ||
		p == "/readyz"
}
