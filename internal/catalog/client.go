package catalog

import (
	"context"
	"fmt"
	"strconv"

	"resty.dev/v3"
)

// Client fetches catalog records over the platform's REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates a catalog client for the given base URL. The token is
// optional; public catalog entries are readable without one.
func NewClient(baseURL, token string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// Dataset fetches a dataset record by its catalog id.
func (c *Client) Dataset(ctx context.Context, id int64) (*Dataset, error) {
	var out Dataset
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get("/api/v1/datasets/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset %d: %w", id, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to fetch dataset %d: catalog returned %s", id, res.Status())
	}
	return &out, nil
}

// Problem fetches a problem record by owner and repository name.
func (c *Client) Problem(ctx context.Context, owner, name string) (*Problem, error) {
	var out Problem
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("owner", owner).
		SetPathParam("name", name).
		Get("/api/v1/problems/{owner}/{name}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch problem %s/%s: %w", owner, name, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to fetch problem %s/%s: catalog returned %s", owner, name, res.Status())
	}
	return &out, nil
}

// Optimizer fetches an optimizer record by owner and repository name.
func (c *Client) Optimizer(ctx context.Context, owner, name string) (*Optimizer, error) {
	var out Optimizer
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("owner", owner).
		SetPathParam("name", name).
		Get("/api/v1/optimizers/{owner}/{name}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch optimizer %s/%s: %w", owner, name, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to fetch optimizer %s/%s: catalog returned %s", owner, name, res.Status())
	}
	return &out, nil
}
