package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/donaldgifford/tenant-storefront/internal/scroll"
	"github.com/donaldgifford/tenant-storefront/internal/session"
)

// OpenSession opens a loader session. With wait set the server responds
// once the initial page has loaded.
func (c *Client) OpenSession(
	ctx context.Context,
	tenantID, categoryID string,
	wait bool,
) (*session.View, error) {
	path := fmt.Sprintf(
		"/api/v1/tenants/%s/categories/%s/sessions",
		url.PathEscape(tenantID),
		url.PathEscape(categoryID),
	)
	if wait {
		path += "?wait=true"
	}

	var v session.View
	if err := c.post(ctx, path, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetSession returns the current view of a session. With wait set the
// server first waits for any in-flight fetch.
func (c *Client) GetSession(ctx context.Context, id string, wait bool) (*session.View, error) {
	path := "/api/v1/sessions/" + url.PathEscape(id)
	if wait {
		path += "?wait=true"
	}

	var v session.View
	if err := c.get(ctx, path, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Scroll reports a viewport sample.
func (c *Client) Scroll(ctx context.Context, id string, v scroll.Viewport) error {
	var resp struct {
		Accepted bool `json:"accepted"`
	}
	return c.post(ctx, "/api/v1/sessions/"+url.PathEscape(id)+"/scroll", v, &resp)
}

// NextPage requests the next page and reports whether a fetch started.
func (c *Client) NextPage(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Started bool `json:"started"`
	}
	if err := c.post(ctx, "/api/v1/sessions/"+url.PathEscape(id)+"/next", nil, &resp); err != nil {
		return false, err
	}
	return resp.Started, nil
}

// DismissError closes the session's error display.
func (c *Client) DismissError(ctx context.Context, id string) (*session.View, error) {
	var v session.View
	if err := c.post(ctx, "/api/v1/sessions/"+url.PathEscape(id)+"/error/dismiss", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CloseSession tears a session down.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.del(ctx, "/api/v1/sessions/"+url.PathEscape(id), nil)
}
