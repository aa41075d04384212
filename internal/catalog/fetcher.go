package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/tenant-storefront/internal/metrics"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

const (
	instrumentationName = "github.com/donaldgifford/tenant-storefront/internal/catalog"

	// DefaultSuccessCode is the embedded status code the catalog service uses
	// to signal a successful page.
	DefaultSuccessCode = 200

	defaultTimeout  = 30 * time.Second
	maxErrorBodyLen = 512
)

// HTTPFetcher implements Fetcher against the catalog service's JSON endpoint.
type HTTPFetcher struct {
	endpoint    string
	successCode int
	client      *http.Client
	rateLimiter *RateLimiter
	tracer      trace.Tracer
	attempts    metric.Int64Counter
}

// FetcherOption configures the HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = hc
	}
}

// WithSuccessCode overrides the embedded status code treated as success.
func WithSuccessCode(code int) FetcherOption {
	return func(f *HTTPFetcher) {
		f.successCode = code
	}
}

// WithRateLimiter injects a shared outbound rate limiter. When set, every
// Fetch call goes through Wait() first.
func WithRateLimiter(r *RateLimiter) FetcherOption {
	return func(f *HTTPFetcher) {
		f.rateLimiter = r
	}
}

// NewHTTPFetcher creates a catalog fetcher posting to endpoint.
func NewHTTPFetcher(endpoint string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		endpoint:    endpoint,
		successCode: DefaultSuccessCode,
		client:      &http.Client{Timeout: defaultTimeout},
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(f)
	}

	// The global meter is a no-op until telemetry is configured, so a failed
	// instrument creation only loses the OTel counter.
	if c, err := otel.Meter(instrumentationName).Int64Counter(
		"storefront.catalog.fetch.attempts",
		metric.WithDescription("Catalog page fetch attempts by outcome."),
	); err == nil {
		f.attempts = c
	}

	return f
}

// Fetch implements Fetcher by issuing one POST to the catalog endpoint. It
// never retries. Failures are returned as *FetchError.
func (f *HTTPFetcher) Fetch(
	ctx context.Context,
	req domain.FetchRequest,
) (*domain.PageResult, error) {
	ctx, span := f.tracer.Start(ctx, "catalog.Fetch", trace.WithAttributes(
		attribute.String("catalog.tenant_id", req.TenantID),
		attribute.String("catalog.category_id", req.CategoryID),
		attribute.Int("catalog.page_index", req.PageIndex),
		attribute.Int("catalog.page_size", req.PageSize),
	))
	defer span.End()

	start := time.Now()
	page, err := f.fetch(ctx, req)
	metrics.CatalogFetchDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("catalog.items", len(page.Items)),
			attribute.Int("catalog.records_total", page.RecordsTotal),
		)
	}
	metrics.CatalogFetchesTotal.WithLabelValues(outcome).Inc()
	if f.attempts != nil {
		f.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}

	return page, err
}

func (f *HTTPFetcher) fetch(
	ctx context.Context,
	req domain.FetchRequest,
) (*domain.PageResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &FetchError{Kind: KindBusiness, Message: "invalid fetch request", Err: err}
	}

	if f.rateLimiter != nil {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return nil, NewNetworkError("waiting for rate limiter", err)
		}
		metrics.CatalogRateLimitWaits.Inc()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, NewNetworkError("encoding request", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		f.endpoint,
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, NewNetworkError("creating HTTP request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewNetworkError("request timed out", err)
		}
		return nil, NewNetworkError("executing catalog request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewHTTPStatusError(resp.StatusCode, truncateBody(body))
	}

	var env fetchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &FetchError{
			Kind:       KindBusiness,
			StatusCode: resp.StatusCode,
			Message:    "malformed catalog response",
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}

	if env.StatusCode != f.successCode {
		return nil, NewBusinessError(env.StatusCode, env.Message)
	}

	page := &domain.PageResult{Items: []domain.CatalogItem{}}
	if env.Result != nil {
		if env.Result.Data != nil {
			page.Items = env.Result.Data
		}
		page.RecordsTotal = max(env.Result.RecordsTotal, 0)
	}

	return page, nil
}

func truncateBody(body []byte) string {
	if len(body) <= maxErrorBodyLen {
		return string(body)
	}
	return string(body[:maxErrorBodyLen]) + "..."
}
