package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/tenant-storefront/internal/catalog"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

func testRequest() domain.FetchRequest {
	return domain.FetchRequest{
		CategoryID: "cat-1",
		TenantID:   "tenant-1",
		PageIndex:  2,
		PageSize:   10,
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantErr    error
		errContain string
		wantItems  int
		wantTotal  int
	}{
		{
			name: "successful page",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"statusCode": 200,
					"message": "ok",
					"result": {
						"recordsTotal": 25,
						"data": [
							{"title": "Cushion", "coverImageUrl": "https://img/1.jpg", "modelNumber": "CUSHION", "categoryName": "Soft", "dimensions": {"height": 1, "width": 2, "depth": 3}},
							{"title": "Cap", "coverImageUrl": "https://img/2.jpg", "modelNumber": "CAP", "categoryName": "Soft", "dimensions": {"height": 4, "width": 5, "depth": 6}, "sellerInfo": {"name": "Shreem"}}
						]
					}
				}`))
			},
			wantItems: 2,
			wantTotal: 25,
		},
		{
			name: "empty page",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"statusCode": 200, "message": "ok", "result": {"recordsTotal": 25, "data": []}}`))
			},
			wantItems: 0,
			wantTotal: 25,
		},
		{
			name: "missing result is an empty page",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"statusCode": 200, "message": "ok"}`))
			},
			wantItems: 0,
			wantTotal: 0,
		},
		{
			name: "500 transport status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`boom`))
			},
			wantErr:    catalog.ErrHTTPStatus,
			errContain: "status 500",
		},
		{
			name: "business status mismatch with message",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"statusCode": 404, "message": "Category not found"}`))
			},
			wantErr:    catalog.ErrBusiness,
			errContain: "Category not found",
		},
		{
			name: "business status mismatch without message",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"statusCode": 500}`))
			},
			wantErr:    catalog.ErrBusiness,
			errContain: catalog.DefaultBusinessMessage,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{not json`))
			},
			wantErr:    catalog.ErrBusiness,
			errContain: "malformed catalog response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := catalog.NewHTTPFetcher(srv.URL)
			page, err := f.Fetch(context.Background(), testRequest())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.errContain)
				assert.Nil(t, page)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, page)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantTotal, page.RecordsTotal)
		})
	}
}

func TestHTTPFetcher_RequestPayload(t *testing.T) {
	t.Parallel()

	received := make(chan domain.FetchRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got domain.FetchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		received <- got
		_, _ = w.Write([]byte(`{"statusCode": 200, "result": {"recordsTotal": 0, "data": []}}`))
	}))
	defer srv.Close()

	f := catalog.NewHTTPFetcher(srv.URL)
	_, err := f.Fetch(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, testRequest(), <-received)
}

func TestHTTPFetcher_CustomSuccessCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"statusCode": 1, "result": {"recordsTotal": 1, "data": [{"title": "x"}]}}`))
	}))
	defer srv.Close()

	f := catalog.NewHTTPFetcher(srv.URL, catalog.WithSuccessCode(1))
	page, err := f.Fetch(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	t.Parallel()

	f := catalog.NewHTTPFetcher("http://127.0.0.1:1") // nothing listening
	_, err := f.Fetch(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNetwork)
	assert.Equal(t, catalog.KindNetwork, catalog.KindOf(err))
}

func TestHTTPFetcher_ContextDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := catalog.NewHTTPFetcher(srv.URL)
	_, err := f.Fetch(ctx, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrNetwork)
}

func TestHTTPFetcher_NoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := catalog.NewHTTPFetcher(srv.URL)
	_, err := f.Fetch(context.Background(), testRequest())
	require.Error(t, err)

	var fe *catalog.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_WithRateLimiter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"statusCode": 200, "result": {"recordsTotal": 0, "data": []}}`))
	}))
	defer srv.Close()

	rl := catalog.NewRateLimiter(100, 5)
	f := catalog.NewHTTPFetcher(srv.URL, catalog.WithRateLimiter(rl))

	for range 3 {
		_, err := f.Fetch(context.Background(), testRequest())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), rl.Granted())
}

func TestHTTPFetcher_InvalidRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	req := testRequest()
	req.PageIndex = 0

	_, err := catalog.NewHTTPFetcher(srv.URL).Fetch(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrBusiness)
	assert.Contains(t, errors.Unwrap(err).Error(), "pageIndex must be >= 1")
	assert.Zero(t, calls.Load())
}
