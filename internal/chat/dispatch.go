package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xshopai/chat-gateway/internal/catalog"
	"github.com/xshopai/chat-gateway/internal/llm"
	"github.com/xshopai/chat-gateway/internal/observability"
	"github.com/xshopai/chat-gateway/internal/orders"
	"github.com/xshopai/chat-gateway/internal/tools"
)

const defaultResultLimit = 10

// CategoriesPayload is the tool result shape for a category listing
type CategoriesPayload struct {
	Categories []string `json:"categories"`
}

// Dispatcher translates tool calls into downstream service calls. It never
// returns an error: every failure resolves to a ToolError payload so a single
// failing tool degrades the turn instead of aborting it.
type Dispatcher struct {
	catalog *catalog.Client
	orders  *orders.Client
}

// NewDispatcher creates a dispatcher over the two domain clients
func NewDispatcher(catalogClient *catalog.Client, orderClient *orders.Client) *Dispatcher {
	return &Dispatcher{catalog: catalogClient, orders: orderClient}
}

// Execute runs one tool call and returns its payload. The payload is either a
// domain result or a ToolError; adapter failures and invalid arguments are
// folded into the latter.
func (d *Dispatcher) Execute(ctx context.Context, call llm.ToolCall, ident Identity) any {
	log := observability.LoggerFromContext(ctx)
	start := time.Now()

	payload, err := d.execute(ctx, tools.Name(call.Name), call.Arguments, ident)
	if err != nil {
		observability.RecordToolExecution(call.Name, start, false)
		observability.RecordError("tool", "dispatch")
		log.Error().Err(err).Str("tool", call.Name).Msg("Tool execution failed")
		return ToolError{Error: fmt.Sprintf("Failed to execute %s: %v", call.Name, err)}
	}

	_, isToolError := payload.(ToolError)
	observability.RecordToolExecution(call.Name, start, !isToolError)
	return payload
}

type searchArgs struct {
	Query    string   `json:"query"`
	Category string   `json:"category"`
	MinPrice *float64 `json:"minPrice"`
	MaxPrice *float64 `json:"maxPrice"`
	Limit    int      `json:"limit"`
}

type productArgs struct {
	ProductID string `json:"productId"`
}

type orderListArgs struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type orderArgs struct {
	OrderID string `json:"orderId"`
}

func (d *Dispatcher) execute(ctx context.Context, name tools.Name, argumentsJSON string, ident Identity) (any, error) {
	// Unknown names are a defined error case, not a dispatch failure: the
	// model reacts to the payload in natural language.
	if !tools.Known(name) {
		log := observability.LoggerFromContext(ctx)
		log.Warn().Str("tool", string(name)).Msg("Unknown tool called")
		return ToolError{Error: fmt.Sprintf("Unknown tool: %s", name)}, nil
	}

	// Argument blobs are validated against the tool's declared schema before
	// they reach an adapter; a validation failure is treated like any other
	// per-tool execution error.
	if err := tools.ValidateArguments(name, argumentsJSON); err != nil {
		return nil, err
	}
	if argumentsJSON == "" {
		argumentsJSON = "{}"
	}

	switch name {
	case tools.SearchProducts:
		var args searchArgs
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return nil, err
		}
		if args.Limit <= 0 {
			args.Limit = defaultResultLimit
		}
		return d.catalog.Search(ctx, catalog.SearchParams{
			Query:    args.Query,
			Category: args.Category,
			MinPrice: args.MinPrice,
			MaxPrice: args.MaxPrice,
			Limit:    args.Limit,
		})

	case tools.GetProductDetails:
		var args productArgs
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return nil, err
		}
		product, err := d.catalog.GetByID(ctx, args.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return ToolError{Error: "Product not found"}, nil
		}
		return product, nil

	case tools.GetCategories:
		categories, err := d.catalog.Categories(ctx)
		if err != nil {
			return nil, err
		}
		return CategoriesPayload{Categories: categories}, nil

	case tools.GetMyOrders:
		if ident.UserID == "" {
			return ToolError{Error: "User not logged in. Please log in to view your orders."}, nil
		}
		var args orderListArgs
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return nil, err
		}
		if args.Limit <= 0 {
			args.Limit = defaultResultLimit
		}
		return d.orders.List(ctx, orders.ListParams{
			UserID: ident.UserID,
			Status: args.Status,
			Limit:  args.Limit,
			Offset: args.Offset,
		}, ident.AuthToken)

	case tools.GetOrderDetails:
		if ident.UserID == "" {
			return ToolError{Error: "User not logged in. Please log in to view order details."}, nil
		}
		var args orderArgs
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return nil, err
		}
		order, err := d.orders.GetByID(ctx, args.OrderID, ident.UserID, ident.AuthToken)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return ToolError{Error: "Order not found"}, nil
		}
		return order, nil

	case tools.TrackOrder:
		if ident.UserID == "" {
			return ToolError{Error: "User not logged in. Please log in to track orders."}, nil
		}
		var args orderArgs
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return nil, err
		}
		tracking, err := d.orders.Track(ctx, args.OrderID, ident.UserID, ident.AuthToken)
		if err != nil {
			return nil, err
		}
		if tracking == nil {
			return ToolError{Error: "Tracking information not available for this order"}, nil
		}
		return tracking, nil

	default:
		// Kept for forward compatibility should a registered name gain no
		// dispatch arm; Known() above makes this unreachable today.
		return ToolError{Error: fmt.Sprintf("Unknown tool: %s", name)}, nil
	}
}
