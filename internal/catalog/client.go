package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/partshub/storefront/internal/models"
)

var ErrNotFound = errors.New("not found")

// Client fetches product snapshots from the catalog backend. TokenFunc, when
// set, supplies the bearer token for each request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokenFunc  func() string
}

func NewClient(baseURL string, tokenFunc func() string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokenFunc: tokenFunc,
	}
}

type productsResponse struct {
	Data []models.Product `json:"data"`
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	resp, err := c.get(ctx, c.baseURL+"/products")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list products: status %d", resp.StatusCode)
	}

	var out productsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return out.Data, nil
}

func (c *Client) Product(ctx context.Context, id string) (*models.Product, error) {
	resp, err := c.get(ctx, c.baseURL+"/products/"+id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get product: status %d", resp.StatusCode)
	}

	var out models.Product
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.tokenFunc != nil {
		if token := c.tokenFunc(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}
