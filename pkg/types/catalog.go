// Package domain defines the core catalog types shared by the storefront
// loader, the catalog client, and the API layer.
package domain

import (
	"errors"
	"fmt"
)

// DefaultPageSize is the number of catalog items requested per page when a
// loader is not configured otherwise.
const DefaultPageSize = 10

// Dimensions holds the physical size of a catalog item.
type Dimensions struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
}

// SellerInfo carries the tenant/seller details attached to an item.
type SellerInfo struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// CatalogItem is a single product record as returned by the catalog service.
// Items are immutable once received. Two items may share a ModelNumber; their
// display identity is the model number plus their position in the loaded
// sequence.
type CatalogItem struct {
	Title         string      `json:"title"`
	CoverImageURL string      `json:"coverImageUrl"`
	ModelNumber   string      `json:"modelNumber"`
	CategoryName  string      `json:"categoryName"`
	Dimensions    Dimensions  `json:"dimensions"`
	Description   string      `json:"description,omitempty"`
	SellerInfo    *SellerInfo `json:"sellerInfo,omitempty"`
}

// FetchRequest identifies exactly one page of one tenant/category catalog.
type FetchRequest struct {
	CategoryID string `json:"categoryId"`
	TenantID   string `json:"tenantId"`
	PageIndex  int    `json:"pageIndex"`
	PageSize   int    `json:"pageSize"`
}

// Validate reports missing ids, a page index below 1 or a non-positive size.
func (r *FetchRequest) Validate() error {
	var errs []error
	if r.CategoryID == "" {
		errs = append(errs, errors.New("categoryId is required"))
	}
	if r.TenantID == "" {
		errs = append(errs, errors.New("tenantId is required"))
	}
	if r.PageIndex < 1 {
		errs = append(errs, fmt.Errorf("pageIndex must be >= 1 (got %d)", r.PageIndex))
	}
	if r.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("pageSize must be > 0 (got %d)", r.PageSize))
	}
	return errors.Join(errs...)
}

// PageResult is one parsed page of catalog items. RecordsTotal is the
// server's authoritative count of matching items, independent of how many
// have been fetched so far.
type PageResult struct {
	Items        []CatalogItem `json:"items"`
	RecordsTotal int           `json:"recordsTotal"`
}

// ErrorRecord is the user-facing form of a terminal load failure.
type ErrorRecord struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Brand holds the static storefront header details for a tenant.
type Brand struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}
