// Package marketapi implements the billing and directory collaborators on top
// of a ports.Transport.
package marketapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/billing"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/directory"
	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
)

const (
	pathPlan       = "/billing/plan"
	pathUsage      = "/billing/usage"
	pathLimits     = "/billing/limits"
	pathCategories = "/categories"
	pathCities     = "/cities"
)

// Client implements ports.BillingAPI and ports.DirectoryAPI.
type Client struct {
	transport ports.Transport
}

var (
	_ ports.BillingAPI   = (*Client)(nil)
	_ ports.DirectoryAPI = (*Client)(nil)
)

func New(transport ports.Transport) *Client {
	return &Client{transport: transport}
}

func (c *Client) CurrentPlan(ctx context.Context) (*billing.Plan, error) {
	return get[billing.Plan](ctx, c.transport, pathPlan)
}

func (c *Client) CurrentUsage(ctx context.Context) (*billing.Usage, error) {
	return get[billing.Usage](ctx, c.transport, pathUsage)
}

func (c *Client) CurrentLimits(ctx context.Context) (*billing.Limits, error) {
	return get[billing.Limits](ctx, c.transport, pathLimits)
}

func (c *Client) ChangePlan(ctx context.Context, planType billing.PlanType) (*billing.Plan, error) {
	raw, err := c.transport.Request(ctx, http.MethodPost, pathPlan, billing.ChangePlanRequest{Type: planType})
	if err != nil {
		return nil, err
	}
	return decode[billing.Plan](http.MethodPost+" "+pathPlan, raw)
}

func (c *Client) Categories(ctx context.Context) ([]directory.Category, error) {
	return list[directory.Category](ctx, c.transport, pathCategories)
}

func (c *Client) Cities(ctx context.Context, state string) ([]directory.City, error) {
	q := url.Values{"state": {state}}
	return list[directory.City](ctx, c.transport, pathCities+"?"+q.Encode())
}

// get fetches a single record; a null payload is returned as nil, nil.
func get[T any](ctx context.Context, t ports.Transport, path string) (*T, error) {
	raw, err := t.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[T](http.MethodGet+" "+path, raw)
}

func list[T any](ctx context.Context, t ports.Transport, path string) ([]T, error) {
	raw, err := t.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fault.Structural(http.MethodGet+" "+path, fmt.Errorf("decode list: %w", err))
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func decode[T any](op string, raw json.RawMessage) (*T, error) {
	var out *T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fault.Structural(op, fmt.Errorf("decode: %w", err))
	}
	return out, nil
}
