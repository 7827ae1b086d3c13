// Package client talks to the marketplace backend. It is a thin request
// layer: all query composition happens in pkg/query and all state handling
// in pkg/browse.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/voltdesk/voltdesk/pkg/types"
)

// ErrUnauthorized is returned before any network round trip when a gated
// call is attempted without a live token, and for backend 401 responses.
// Callers surface it as an authorization notice, distinct from a network
// error.
var ErrUnauthorized = errors.New("not authenticated")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		session: &Session{},
	}
}

func (c *Client) Session() *Session { return c.session }

// Contracts lists contracts for an already-composed query.
func (c *Client) Contracts(ctx context.Context, params url.Values) (*types.ContractList, error) {
	var out types.ContractList
	if err := c.do(ctx, http.MethodGet, "/contracts?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type priceBoundsResponse struct {
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
}

// PriceBounds returns the feasible price range for the given non-price
// filters. When no contracts match, the backend reports null bounds and the
// second return value is false.
func (c *Client) PriceBounds(ctx context.Context, params url.Values) (types.PriceBounds, bool, error) {
	var out priceBoundsResponse
	if err := c.do(ctx, http.MethodGet, "/contracts/price-bounds?"+params.Encode(), nil, &out); err != nil {
		return types.PriceBounds{}, false, err
	}
	if out.MinPrice == nil || out.MaxPrice == nil {
		return types.PriceBounds{}, false, nil
	}
	return types.PriceBounds{Min: *out.MinPrice, Max: *out.MaxPrice}, true, nil
}

func (c *Client) Locations(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/contracts/locations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Contract(ctx context.Context, id int) (*types.Contract, error) {
	var out types.Contract
	if err := c.do(ctx, http.MethodGet, "/contracts/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkSold flips a contract's status. The caller is responsible for
// invalidating the contracts and bounds cache families afterwards.
func (c *Client) MarkSold(ctx context.Context, id int) (*types.Contract, error) {
	body := map[string]string{"status": types.StatusSold}
	var out types.Contract
	if err := c.do(ctx, http.MethodPatch, "/contracts/"+strconv.Itoa(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddPortfolioItem(ctx context.Context, contractID int) error {
	if !c.session.Valid() {
		return ErrUnauthorized
	}
	return c.do(ctx, http.MethodPost, "/portfolio/items/"+strconv.Itoa(contractID), nil, nil)
}

func (c *Client) RemovePortfolioItem(ctx context.Context, contractID int) error {
	if !c.session.Valid() {
		return ErrUnauthorized
	}
	return c.do(ctx, http.MethodDelete, "/portfolio/items/"+strconv.Itoa(contractID), nil, nil)
}

func (c *Client) PortfolioItems(ctx context.Context) ([]types.PortfolioItem, error) {
	if !c.session.Valid() {
		return nil, ErrUnauthorized
	}
	var out []types.PortfolioItem
	if err := c.do(ctx, http.MethodGet, "/portfolio/items", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PortfolioMetrics(ctx context.Context) (*types.PortfolioMetrics, error) {
	if !c.session.Valid() {
		return nil, ErrUnauthorized
	}
	var out types.PortfolioMetrics
	if err := c.do(ctx, http.MethodGet, "/portfolio/metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: string(msg)}
	}
	if out == nil {
		return nil
	}
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
