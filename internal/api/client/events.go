package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	domain "github.com/donaldgifford/tenant-storefront/pkg/types"
)

// EventsParams holds optional filters for ListEvents.
type EventsParams struct {
	Kinds  []domain.LoadEventKind
	Since  time.Time
	Limit  int
	Offset int
	Order  string
}

// EventsPage is one page of recorded session events.
type EventsPage struct {
	Session *domain.SessionRecord `json:"session"`
	Events  []domain.LoadEvent    `json:"events"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// ListEvents returns the recorded load events of a session.
func (c *Client) ListEvents(ctx context.Context, id string, p *EventsParams) (*EventsPage, error) {
	path := "/api/v1/sessions/" + url.PathEscape(id) + "/events"
	if q := p.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page EventsPage
	if err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (p *EventsParams) query() url.Values {
	q := url.Values{}
	if p == nil {
		return q
	}
	if len(p.Kinds) > 0 {
		kinds := make([]string, len(p.Kinds))
		for i, k := range p.Kinds {
			kinds[i] = string(k)
		}
		q.Set("kind", strings.Join(kinds, ","))
	}
	if !p.Since.IsZero() {
		q.Set("since", p.Since.UTC().Format(time.RFC3339))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	return q
}
