// Package catalog is the client for the product catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xshopai/chat-gateway/internal/config"
	"github.com/xshopai/chat-gateway/internal/invoke"
	"github.com/xshopai/chat-gateway/internal/observability"
)

// Product is a single catalog entry as returned by the product service
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	InStock     bool    `json:"inStock"`
	Quantity    int     `json:"quantity,omitempty"`
}

// SearchParams are the optional filters for a product search
type SearchParams struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}

// SearchResult is the product service's search response
type SearchResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// Client talks to the product service through the invocation client
type Client struct {
	inv   *invoke.Client
	appID string
}

// NewClient creates a product catalog client
func NewClient(inv *invoke.Client, cfg *config.Config) *Client {
	return &Client{inv: inv, appID: cfg.ProductServiceAppID}
}

// Search queries the catalog. The free-text query takes priority: when absent
// the category name is used as the query, and finally a wildcard meaning
// "all". The category filter is only applied when no free-text query was
// given, because combining a text search with a taxonomy filter tends to
// over-constrain results (e.g. "phones" live in department "Electronics" but
// category "Mobile").
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	log := observability.LoggerFromContext(ctx)
	log.Debug().Str("query", params.Query).Str("category", params.Category).Msg("Searching products")

	values := url.Values{}

	searchQuery := params.Query
	if searchQuery == "" {
		searchQuery = params.Category
	}
	if searchQuery == "" {
		searchQuery = "*"
	}
	values.Set("q", searchQuery)

	if params.Query == "" && params.Category != "" {
		values.Set("category", params.Category)
	}

	if params.MinPrice != nil {
		values.Set("minPrice", strconv.FormatFloat(*params.MinPrice, 'f', -1, 64))
	}
	if params.MaxPrice != nil {
		values.Set("maxPrice", strconv.FormatFloat(*params.MaxPrice, 'f', -1, 64))
	}
	if params.Limit > 0 {
		values.Set("limit", strconv.Itoa(params.Limit))
	}

	method := "api/products/search?" + values.Encode()

	raw, err := c.inv.Invoke(ctx, c.appID, method, http.MethodGet, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("product search failed: %w", err)
	}

	var result SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}

	log.Debug().Int("result_count", len(result.Products)).Msg("Product search completed")
	return &result, nil
}

// GetByID fetches a single product. A downstream 404 is normalized to a nil
// product rather than an error.
func (c *Client) GetByID(ctx context.Context, productID string) (*Product, error) {
	raw, err := c.inv.Invoke(ctx, c.appID, "api/products/"+productID, http.MethodGet, nil, nil)
	if err != nil {
		if invoke.IsNotFound(err) {
			log := observability.LoggerFromContext(ctx)
			log.Debug().Str("product_id", productID).Msg("Product not found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}

	var product Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return &product, nil
}

// Categories returns all product categories, defaulting to an empty list when
// the service reports none
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	raw, err := c.inv.Invoke(ctx, c.appID, "api/products/categories", http.MethodGet, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	var payload struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	if payload.Categories == nil {
		return []string{}, nil
	}
	return payload.Categories, nil
}
