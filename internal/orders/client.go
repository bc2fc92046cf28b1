// Package orders is the client for the order service. Every call carries the
// caller identity; order data is never fetched anonymously.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/xshopai/chat-gateway/internal/config"
	"github.com/xshopai/chat-gateway/internal/invoke"
	"github.com/xshopai/chat-gateway/internal/observability"
)

// Item is a single line item of an order
type Item struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

// Address is a shipping address
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Order as returned by the order service
type Order struct {
	ID              string   `json:"id"`
	UserID          string   `json:"userId"`
	Items           []Item   `json:"items"`
	Status          string   `json:"status"`
	TotalAmount     float64  `json:"totalAmount"`
	Currency        string   `json:"currency"`
	ShippingAddress *Address `json:"shippingAddress,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

// TrackingEvent is one entry in an order's tracking timeline
type TrackingEvent struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description"`
}

// TrackingInfo is the shipment tracking state of an order
type TrackingInfo struct {
	OrderID           string          `json:"orderId"`
	Status            string          `json:"status"`
	EstimatedDelivery string          `json:"estimatedDelivery,omitempty"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	Carrier           string          `json:"carrier,omitempty"`
	Events            []TrackingEvent `json:"events"`
}

// ListParams are the filters for an order history lookup
type ListParams struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

// ListResult is the normalized order history response
type ListResult struct {
	Orders   []Order `json:"orders"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Client talks to the order service through the invocation client
type Client struct {
	inv   *invoke.Client
	appID string
}

// NewClient creates an order service client
func NewClient(inv *invoke.Client, cfg *config.Config) *Client {
	return &Client{inv: inv, appID: cfg.OrderServiceAppID}
}

func authHeaders(userID, authToken string) map[string]string {
	headers := map[string]string{}
	if userID != "" {
		headers["x-user-id"] = userID
	}
	if authToken != "" {
		if !strings.HasPrefix(authToken, "Bearer ") {
			authToken = "Bearer " + authToken
		}
		headers["Authorization"] = authToken
	}
	return headers
}

// List returns the order history for a user. The order service answers with a
// bare array; it is wrapped into a ListResult here so the tool payload has a
// stable shape.
func (c *Client) List(ctx context.Context, params ListParams, authToken string) (*ListResult, error) {
	log := observability.LoggerFromContext(ctx)
	log.Debug().Str("user_id", params.UserID).Str("status", params.Status).Msg("Getting user orders")

	method := "api/orders/customer/" + params.UserID

	raw, err := c.inv.Invoke(ctx, c.appID, method, http.MethodGet, nil, authHeaders("", authToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for %s: %w", params.UserID, err)
	}

	var list []Order
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	pageSize := params.Limit
	if pageSize <= 0 {
		pageSize = 10
	}

	if list == nil {
		list = []Order{}
	}

	log.Debug().Int("count", len(list)).Msg("Orders retrieved")
	return &ListResult{
		Orders:   list,
		Total:    len(list),
		Page:     1,
		PageSize: pageSize,
	}, nil
}

// GetByID fetches a single order on behalf of a user. A downstream 404 is
// normalized to a nil order.
func (c *Client) GetByID(ctx context.Context, orderID, userID, authToken string) (*Order, error) {
	raw, err := c.inv.Invoke(ctx, c.appID, "api/orders/"+orderID, http.MethodGet, nil, authHeaders(userID, authToken))
	if err != nil {
		if invoke.IsNotFound(err) {
			log := observability.LoggerFromContext(ctx)
			log.Debug().Str("order_id", orderID).Msg("Order not found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}

// Track fetches the tracking state of an order. A downstream 404 is
// normalized to nil tracking info.
func (c *Client) Track(ctx context.Context, orderID, userID, authToken string) (*TrackingInfo, error) {
	raw, err := c.inv.Invoke(ctx, c.appID, "api/orders/"+orderID+"/tracking", http.MethodGet, nil, authHeaders(userID, authToken))
	if err != nil {
		if invoke.IsNotFound(err) {
			log := observability.LoggerFromContext(ctx)
			log.Debug().Str("order_id", orderID).Msg("Order tracking not found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tracking for order %s: %w", orderID, err)
	}

	var tracking TrackingInfo
	if err := json.Unmarshal(raw, &tracking); err != nil {
		return nil, fmt.Errorf("failed to decode tracking info: %w", err)
	}
	return &tracking, nil
}
