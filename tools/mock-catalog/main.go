// Package main implements a mock catalog service for local development.
// It serves paged items from a JSON fixture in the catalog service's
// envelope and can inject the failure modes the storefront handles.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

type fixtureItem struct {
	TenantID   string `json:"tenantId"`
	CategoryID string `json:"categoryId"`
	domain.CatalogItem
}

type fixtureFile struct {
	Items []fixtureItem `json:"items"`
}

type envelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Result     *payload `json:"result,omitempty"`
}

type payload struct {
	RecordsTotal int                  `json:"recordsTotal"`
	Data         []domain.CatalogItem `json:"data"`
}

// faults selects the page that fails and how it fails.
type faults struct {
	page         int
	httpStatus   int
	businessCode int
	latency      time.Duration
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixturePath := flag.String("fixture", "tools/mock-catalog/testdata/catalog.json", "path to catalog fixture")
	failPage := flag.Int("fail-page", 0, "page index that fails (0 disables)")
	failStatus := flag.Int("fail-status", http.StatusInternalServerError, "HTTP status for the failing page")
	businessCode := flag.Int("business-code", 0, "embedded status code for the failing page instead of an HTTP error")
	latency := flag.Duration("latency", 0, "delay before every response")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixturePath, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "items", len(fixture.Items))

	f := faults{page: *failPage, httpStatus: *failStatus, businessCode: *businessCode, latency: *latency}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /catalog/items", itemsHandler(logger, fixture, f))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock catalog server", "addr", addr, "endpoint", "/catalog/items")

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Minute,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*fixtureFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f fixtureFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func itemsHandler(logger *slog.Logger, fixture *fixtureFile, f faults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.FetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{StatusCode: http.StatusBadRequest, Message: "invalid request body"})
			return
		}

		if f.latency > 0 {
			select {
			case <-time.After(f.latency):
			case <-r.Context().Done():
				return
			}
		}

		if f.page > 0 && req.PageIndex == f.page {
			if f.businessCode != 0 {
				writeJSON(w, http.StatusOK, envelope{StatusCode: f.businessCode, Message: "injected catalog failure"})
			} else {
				http.Error(w, "injected failure", f.httpStatus)
			}
			logger.Warn("injected failure", "page", req.PageIndex, "http_status", f.httpStatus, "business_code", f.businessCode)
			return
		}

		if req.PageIndex < 1 || req.PageSize < 1 {
			writeJSON(w, http.StatusOK, envelope{StatusCode: http.StatusBadRequest, Message: "pageIndex and pageSize must be positive"})
			return
		}

		var matched []domain.CatalogItem
		for i := range fixture.Items {
			it := &fixture.Items[i]
			if it.TenantID == req.TenantID && it.CategoryID == req.CategoryID {
				matched = append(matched, it.CatalogItem)
			}
		}

		total := len(matched)
		data := []domain.CatalogItem{}
		if start := (req.PageIndex - 1) * req.PageSize; start < total {
			data = matched[start:min(start+req.PageSize, total)]
		}

		writeJSON(w, http.StatusOK, envelope{
			StatusCode: http.StatusOK,
			Message:    "success",
			Result:     &payload{RecordsTotal: total, Data: data},
		})
		logger.Info("page",
			"tenant", req.TenantID,
			"category", req.CategoryID,
			"page", req.PageIndex,
			"returned", len(data),
			"total", total,
		)
	}
}
