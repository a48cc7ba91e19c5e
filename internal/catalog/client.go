// Package catalog talks to the upstream music catalog API.
package catalog

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"melodeck/internal/config"
)

// Upstream endpoints
const (
	EndpointModules   = "/modules"
	EndpointTrending  = "/trending"
	EndpointCharts    = "/charts"
	EndpointSearchAll = "/search/all"
)

// Fetcher returns the raw body of a successful GET against the catalog API
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// Client is the resty-backed Fetcher
type Client struct {
	http *resty.Client
	auth Authenticator
}

// NewClient creates a catalog client. A nil auth sends no credentials.
func NewClient(cfg *config.CatalogConfig, auth Authenticator) *Client {
	if auth == nil {
		auth = noAuth{}
	}

	client := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: client, auth: auth}
}

// Fetch performs a GET and returns the body for any 2xx response
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}
	if err := c.auth.Apply(ctx, req); err != nil {
		return nil, err
	}

	resp, err := req.Get(endpoint)
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, Operation: "request", Err: err}
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &APIError{Endpoint: endpoint, Operation: "request", StatusCode: resp.StatusCode(), Err: ErrNotFound}
	}
	if resp.IsError() {
		return nil, &APIError{
			Endpoint:   endpoint,
			Operation:  "request",
			StatusCode: resp.StatusCode(),
			Message:    truncate(resp.String(), 200),
		}
	}

	return resp.Body(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
