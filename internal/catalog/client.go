// Package catalog provides the storefront's client for the remote catalog
// service, abstracted behind the Fetcher interface for testability.
package catalog

import (
	"context"

	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// Fetcher retrieves exactly one page of a tenant/category catalog. A single
// failed attempt is final; implementations never retry.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.FetchRequest) (*domain.PageResult, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req domain.FetchRequest) (*domain.PageResult, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req domain.FetchRequest) (*domain.PageResult, error) {
	return f(ctx, req)
}

// fetchEnvelope is the catalog service response body. StatusCode is the
// business status and is distinct from the HTTP transport status.
type fetchEnvelope struct {
	StatusCode int           `json:"statusCode"`
	Message    string        `json:"message"`
	Result     *fetchPayload `json:"result"`
}

type fetchPayload struct {
	RecordsTotal int                  `json:"recordsTotal"`
	Data         []domain.CatalogItem `json:"data"`
}
