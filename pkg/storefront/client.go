// Package storefront provides a read-only client for the e-commerce
// backend's product and review data, consumed by the directory pages'
// product listings and reviews widget.
package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the storefront operations the directory API proxies.
type Client interface {
	// Products lists published products, newest first.
	Products(ctx context.Context, limit int) ([]Product, error)
	// Reviews lists customer reviews for a product handle.
	Reviews(ctx context.Context, handle string) ([]Review, error)
}

// Product is a catalog entry as exposed by the storefront API.
type Product struct {
	ID          string  `json:"id"`
	Handle      string  `json:"handle"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	ImageURL    string  `json:"image_url"`
	Available   bool    `json:"available"`
}

// Review is a customer review for a product.
type Review struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type productsResponse struct {
	Products []Product `json:"products"`
}

type reviewsResponse struct {
	Reviews []Review `json:"reviews"`
}

// Option configures the storefront client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second. The storefront API
// enforces its own limits; staying under them avoids 429 churn.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a storefront client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: "https://shop.example.com/api/2024-01",
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "storefront: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "storefront: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "storefront: do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "storefront: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("storefront: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "storefront: decode response")
	}
	return nil
}

func (c *httpClient) Products(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}

	var out productsResponse
	if err := c.get(ctx, fmt.Sprintf("/products.json?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *httpClient) Reviews(ctx context.Context, handle string) ([]Review, error) {
	if handle == "" {
		return nil, eris.New("storefront: product handle is required")
	}

	var out reviewsResponse
	if err := c.get(ctx, fmt.Sprintf("/products/%s/reviews.json", url.PathEscape(handle)), &out); err != nil {
		return nil, err
	}
	return out.Reviews, nil
}
