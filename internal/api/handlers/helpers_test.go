package handlers_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	"github.com/donaldgifford/tenant-storefront/internal/session"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// pagedCatalog serves total items split into pages.
func pagedCatalog(total int) catalog.FetcherFunc {
	return func(_ context.Context, req domain.FetchRequest) (*domain.PageResult, error) {
		start := (req.PageIndex - 1) * req.PageSize
		end := min(start+req.PageSize, total)

		items := []domain.CatalogItem{}
		for i := start; i < end; i++ {
			items = append(items, domain.CatalogItem{
				Title:         fmt.Sprintf("Item %d", i),
				ModelNumber:   fmt.Sprintf("M-%d", i),
				CoverImageURL: fmt.Sprintf("https://img.example.com/%d.jpg", i),
			})
		}
		return &domain.PageResult{Items: items, RecordsTotal: total}, nil
	}
}

// failingCatalog fails every fetch with an HTTP status error.
func failingCatalog(code int) catalog.FetcherFunc {
	return func(context.Context, domain.FetchRequest) (*domain.PageResult, error) {
		return nil, catalog.NewHTTPStatusError(code, "upstream down")
	}
}

func newTestManager(t *testing.T, f catalog.Fetcher, maxSessions int) *session.Manager {
	t.Helper()

	m := session.NewManager(f,
		session.WithConfig(session.Config{
			PageSize:    10,
			MaxSessions: maxSessions,
		}),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	t.Cleanup(func() { m.CloseAll(context.Background()) })
	return m
}
