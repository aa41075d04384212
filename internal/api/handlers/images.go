package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultImageName     = "image"
	defaultImageMaxBytes = 20 << 20
	defaultImageTimeout  = 30 * time.Second
	imageDialTimeout     = 10 * time.Second
	maxImageRedirects    = 5

	msgDownloadFailed  = "Failed to download image."
	msgHostNotAllowed  = "image host is not allowed"
	msgInvalidImageURL = "url must be an absolute http(s) URL"
)

// ErrForbiddenAddress is returned when an image URL points at a loopback,
// private, link-local or otherwise non-public address.
var ErrForbiddenAddress = errors.New("image address is not public")

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598), which
// netip does not classify as private.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// ImagesHandler proxies catalog cover images as attachment downloads.
type ImagesHandler struct {
	client       *http.Client
	hosts        []string
	allowPrivate bool
	maxBytes     int64
	log          *slog.Logger
}

// ImagesOption configures an ImagesHandler.
type ImagesOption func(*ImagesHandler)

// WithImageClient overrides the HTTP client used to fetch images. The
// client's own transport then decides which addresses it may dial; only
// literal IP hosts are still checked.
func WithImageClient(hc *http.Client) ImagesOption {
	return func(h *ImagesHandler) {
		h.client = hc
	}
}

// WithAllowedHosts restricts downloads to the given hostnames.
func WithAllowedHosts(hosts ...string) ImagesOption {
	return func(h *ImagesHandler) {
		for _, host := range hosts {
			if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
				h.hosts = append(h.hosts, host)
			}
		}
	}
}

// WithPrivateNetworks lets downloads reach loopback and private addresses.
// Meant for local development against fixture servers.
func WithPrivateNetworks(allow bool) ImagesOption {
	return func(h *ImagesHandler) {
		h.allowPrivate = allow
	}
}

// WithMaxImageBytes caps the size of a proxied image.
func WithMaxImageBytes(n int64) ImagesOption {
	return func(h *ImagesHandler) {
		h.maxBytes = n
	}
}

// WithImageLogger sets the logger.
func WithImageLogger(l *slog.Logger) ImagesOption {
	return func(h *ImagesHandler) {
		h.log = l
	}
}

// NewImagesHandler creates an ImagesHandler. Unless WithPrivateNetworks is
// set, its client refuses to connect to non-public addresses. The check runs
// on the resolved address at dial time, so it also holds across redirects
// and DNS rebinding.
func NewImagesHandler(opts ...ImagesOption) *ImagesHandler {
	h := &ImagesHandler{
		maxBytes: defaultImageMaxBytes,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = h.newClient()
	}
	return h
}

func (h *ImagesHandler) newClient() *http.Client {
	dialer := &net.Dialer{Timeout: imageDialTimeout, KeepAlive: 30 * time.Second}
	if !h.allowPrivate {
		dialer.Control = dialPublicOnly
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// A proxy would be dialed instead of the image host.
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   defaultImageTimeout,
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxImageRedirects {
				return fmt.Errorf("stopped after %d redirects", maxImageRedirects)
			}
			_, err := h.parseSource(req.URL.String())
			return err
		},
	}
}

// Download handles GET /api/v1/images/download.
//
// @Summary Download an image
// @Description Streams a catalog image as an attachment named after the product.
// @Tags images
// @Produce octet-stream
// @Param url query string true "Image URL (http or https)"
// @Param name query string false "Download file name" default(image)
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/images/download [get]
func (h *ImagesHandler) Download(c echo.Context) error {
	src, err := h.parseSource(c.QueryParam("url"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, src.String(), http.NoBody)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid image url"})
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrForbiddenAddress) {
			h.log.Warn("image download blocked", "url", src.Redacted(), "error", err)
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgHostNotAllowed})
		}
		h.log.Warn("image download failed", "url", src.Redacted(), "error", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: msgDownloadFailed})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.log.Warn("image download failed", "url", src.Redacted(), "status", resp.StatusCode)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: msgDownloadFailed})
	}

	body, length, err := h.boundedBody(resp)
	if err != nil {
		h.log.Warn("image download failed", "url", src.Redacted(), "error", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: msgDownloadFailed})
	}

	contentType := resp.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, contentType)
	header.Set(echo.HeaderContentDisposition, contentDisposition(c.QueryParam("name")))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(length, 10))
	c.Response().WriteHeader(http.StatusOK)

	if _, err := io.Copy(c.Response(), io.LimitReader(body, length)); err != nil {
		// Headers are already sent; all we can do is log.
		h.log.Warn("streaming image", "url", src.Redacted(), "error", err)
	}
	return nil
}

// boundedBody returns the response body and its length, failing when the
// image is larger than maxBytes. A body of unknown length is buffered up to
// the limit so an oversized image is rejected before any header is sent.
func (h *ImagesHandler) boundedBody(resp *http.Response) (io.Reader, int64, error) {
	if resp.ContentLength > h.maxBytes {
		return nil, 0, fmt.Errorf("image is %d bytes, limit %d", resp.ContentLength, h.maxBytes)
	}
	if resp.ContentLength >= 0 {
		return resp.Body, resp.ContentLength, nil
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, 0, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(buf)) > h.maxBytes {
		return nil, 0, fmt.Errorf("image exceeds limit of %d bytes", h.maxBytes)
	}
	return bytes.NewReader(buf), int64(len(buf)), nil
}

func (h *ImagesHandler) parseSource(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errInvalidImageURL("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errInvalidImageURL(msgInvalidImageURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errInvalidImageURL(msgInvalidImageURL)
	}
	host := strings.ToLower(u.Hostname())
	if len(h.hosts) > 0 && !slices.Contains(h.hosts, host) {
		return nil, errInvalidImageURL(msgHostNotAllowed)
	}
	if ip, err := netip.ParseAddr(host); err == nil && !h.allowPrivate && !isPublicAddr(ip) {
		return nil, errInvalidImageURL(msgHostNotAllowed)
	}
	return u, nil
}

type errInvalidImageURL string

func (e errInvalidImageURL) Error() string { return string(e) }

// dialPublicOnly is a net.Dialer Control hook refusing non-public addresses.
func dialPublicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("parsing dial address %q: %w", address, err)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("parsing dial address %q: %w", address, err)
	}
	if !isPublicAddr(ip) {
		return fmt.Errorf("dialing %s: %w", ip, ErrForbiddenAddress)
	}
	return nil
}

func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(),
		ip.IsUnspecified(),
		ip.IsLoopback(),
		ip.IsPrivate(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast(),
		sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

// contentDisposition builds an attachment header for name, falling back to
// "image" when name is blank.
func contentDisposition(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultImageName
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": defaultImageName})
}
