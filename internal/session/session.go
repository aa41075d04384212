// Package session manages the lifetime of loader sessions: one loader, its
// scroll signal source and its error sink per open storefront view.
package session

import (
	"sync/atomic"
	"time"

	"github.com/donaldgifford/tenant-storefront/internal/errsink"
	"github.com/donaldgifford/tenant-storefront/internal/loader"
	"github.com/donaldgifford/tenant-storefront/internal/scroll"
	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// Session is one open loader context for a (tenant, category) pair.
type Session struct {
	ID         string
	TenantID   string
	CategoryID string
	OpenedAt   time.Time

	loader *loader.Loader
	source *scroll.Source
	sink   *errsink.Sink

	lastAccess atomic.Int64
}

// View is the presentation state of a session.
type View struct {
	ID            string               `json:"id"`
	TenantID      string               `json:"tenantId"`
	CategoryID    string               `json:"categoryId"`
	State         loader.State         `json:"state"`
	Items         []domain.CatalogItem `json:"items"`
	NextPageIndex int                  `json:"nextPageIndex"`
	HasMore       bool                 `json:"hasMore"`
	IsLoading     bool                 `json:"isLoading"`
	Error         errsink.Display      `json:"error"`
	OpenedAt      time.Time            `json:"openedAt"`
	LastAccessAt  time.Time            `json:"lastAccessAt"`
}

func (s *Session) touch(now time.Time) {
	s.lastAccess.Store(now.UnixNano())
}

// LastAccess returns when the session was last used.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// Loader returns the session's loader.
func (s *Session) Loader() *loader.Loader {
	return s.loader
}

// View returns a snapshot of the session for rendering.
func (s *Session) View() View {
	snap := s.loader.Snapshot()
	return View{
		ID:            s.ID,
		TenantID:      s.TenantID,
		CategoryID:    s.CategoryID,
		State:         snap.State,
		Items:         snap.Items,
		NextPageIndex: snap.NextPageIndex,
		HasMore:       snap.HasMore,
		IsLoading:     snap.IsLoading,
		Error:         s.sink.Display(),
		OpenedAt:      s.OpenedAt,
		LastAccessAt:  s.LastAccess(),
	}
}

func (s *Session) close() {
	s.source.Close()
	s.loader.Close()
}
