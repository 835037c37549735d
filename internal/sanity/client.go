package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imrishuroy/go-order-dashboard/internal/orders"
)

// maxResponseSize caps how much of a response body is read (10MB).
const maxResponseSize = 10 * 1024 * 1024

// OrdersQuery selects every order document with cart item references resolved.
const OrdersQuery = `*[_type == "order"]{
  _id,
  firstName,
  lastName,
  phone,
  email,
  address,
  city,
  zipCode,
  total,
  discount,
  orderDate,
  status,
  cartItems[]->{
    productName,
    image
  }
}`

var (
	// ErrRequestFailed wraps non-2xx responses from the content store.
	ErrRequestFailed = errors.New("sanity: request failed")
	// ErrMissingConfig is returned by NewClient when a required setting is empty.
	ErrMissingConfig = errors.New("sanity: missing configuration")
)

// Config identifies the project and dataset the client talks to.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	Timeout    time.Duration
	// BaseURL overrides https://<project>.api.sanity.io, used by tests.
	BaseURL string
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	switch {
	case c.APIVersion == "":
		return fmt.Errorf("%w: api version", ErrMissingConfig)
	case c.Dataset == "":
		return fmt.Errorf("%w: dataset", ErrMissingConfig)
	case c.ProjectID == "":
		return fmt.Errorf("%w: project id", ErrMissingConfig)
	case c.Token == "":
		return fmt.Errorf("%w: token", ErrMissingConfig)
	}
	return nil
}

// Client implements orders.Store on top of the content store's HTTP API.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
}

var _ orders.Store = (*Client)(nil)

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}

	return &Client{
		config:     cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Ms     int             `json:"ms"`
}

type apiError struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}

// orderDocument shadows CartItems so a dereference of a deleted product,
// which the query returns as null, can be told apart from an empty item.
type orderDocument struct {
	orders.Order
	CartItems []*orders.CartItem `json:"cartItems"`
}

// FetchAll runs OrdersQuery. Cart items whose product no longer exists are dropped.
func (c *Client) FetchAll(ctx context.Context) ([]orders.Order, error) {
	var docs []orderDocument
	if err := c.Query(ctx, OrdersQuery, &docs); err != nil {
		return nil, err
	}

	result := make([]orders.Order, 0, len(docs))
	for _, d := range docs {
		o := d.Order
		o.CartItems = make([]orders.CartItem, 0, len(d.CartItems))
		for _, item := range d.CartItems {
			if item == nil {
				continue
			}
			o.CartItems = append(o.CartItems, *item)
		}
		result = append(result, o)
	}
	return result, nil
}

// Query runs a GROQ query and decodes the result into out.
func (c *Client) Query(ctx context.Context, query string, out any) error {
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?query=%s",
		c.baseURL, c.apiVersion(), url.PathEscape(c.config.Dataset), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("sanity: failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("sanity: decode query response: %w", err)
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("sanity: decode query result: %w", err)
	}
	return nil
}

// SetStatus patches the status field of one document.
func (c *Client) SetStatus(ctx context.Context, orderID string, status orders.Status) error {
	return c.Mutate(ctx, map[string]any{
		"patch": map[string]any{
			"id":  orderID,
			"set": map[string]any{"status": status},
		},
	})
}

// Delete removes one document. The API treats a missing id as success.
func (c *Client) Delete(ctx context.Context, orderID string) error {
	return c.Mutate(ctx, map[string]any{
		"delete": map[string]any{"id": orderID},
	})
}

// Mutate submits mutations as one transaction and waits until they are visible to queries.
func (c *Client) Mutate(ctx context.Context, mutations ...map[string]any) error {
	payload, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return fmt.Errorf("sanity: encode mutations: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v%s/data/mutate/%s?returnIds=true&visibility=sync",
		c.baseURL, c.apiVersion(), url.PathEscape(c.config.Dataset))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sanity: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sanity: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("sanity: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, resp.StatusCode, describe(body))
	}
	return body, nil
}

func (c *Client) apiVersion() string {
	return strings.TrimPrefix(c.config.APIVersion, "v")
}

func describe(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error.Description != "" {
			return e.Error.Description
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(body))
}
