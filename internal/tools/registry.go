// Package tools is the static registry of actions the assistant may take.
// Each tool pairs a name and description with a JSON schema for its
// arguments; the same schema is advertised to the model and used to validate
// the argument blobs the model sends back.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Name identifies a registered tool. The set is closed: dispatching switches
// over these constants, so adding a tool is a compile-checked change. Unknown
// names coming from the model are still handled as a defined error case.
type Name string

const (
	SearchProducts    Name = "searchProducts"
	GetProductDetails Name = "getProductDetails"
	GetCategories     Name = "getCategories"
	GetMyOrders       Name = "getMyOrders"
	GetOrderDetails   Name = "getOrderDetails"
	TrackOrder        Name = "trackOrder"
)

// Definition describes one callable tool in a provider-neutral shape
type Definition struct {
	Name        Name
	Description string
	Parameters  json.RawMessage
}

const searchProductsSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "Search query or keywords to find products (e.g., \"running shoes\", \"laptop\", \"red dress\")"
    },
    "category": {
      "type": "string",
      "description": "Filter by product category (e.g., \"Electronics\", \"Clothing\", \"Sports\")"
    },
    "minPrice": {
      "type": "number",
      "description": "Minimum price filter"
    },
    "maxPrice": {
      "type": "number",
      "description": "Maximum price filter"
    },
    "limit": {
      "type": "number",
      "description": "Maximum number of results to return (default: 10)"
    }
  },
  "required": []
}`

const getProductDetailsSchema = `{
  "type": "object",
  "properties": {
    "productId": {
      "type": "string",
      "description": "The unique identifier of the product"
    }
  },
  "required": ["productId"]
}`

const getCategoriesSchema = `{
  "type": "object",
  "properties": {},
  "required": []
}`

const getMyOrdersSchema = `{
  "type": "object",
  "properties": {
    "status": {
      "type": "string",
      "enum": ["pending", "processing", "shipped", "delivered", "cancelled"],
      "description": "Filter orders by status"
    },
    "limit": {
      "type": "number",
      "description": "Maximum number of orders to return (default: 10)"
    },
    "offset": {
      "type": "number",
      "description": "Number of orders to skip for pagination"
    }
  },
  "required": []
}`

const getOrderDetailsSchema = `{
  "type": "object",
  "properties": {
    "orderId": {
      "type": "string",
      "description": "The unique identifier of the order"
    }
  },
  "required": ["orderId"]
}`

const trackOrderSchema = `{
  "type": "object",
  "properties": {
    "orderId": {
      "type": "string",
      "description": "The unique identifier of the order to track"
    }
  },
  "required": ["orderId"]
}`

var definitions = []Definition{
	{
		Name:        SearchProducts,
		Description: "Search for products in the catalog by keyword, category, or filters. Use this when the user asks about products, wants to find items, browse categories, or check product availability.",
		Parameters:  json.RawMessage(searchProductsSchema),
	},
	{
		Name:        GetProductDetails,
		Description: "Get detailed information about a specific product by its ID. Use this when the user asks for details about a particular product, wants to know specifications, availability, or pricing.",
		Parameters:  json.RawMessage(getProductDetailsSchema),
	},
	{
		Name:        GetCategories,
		Description: "Get a list of all available product categories. Use this when the user wants to browse categories or asks what types of products are available.",
		Parameters:  json.RawMessage(getCategoriesSchema),
	},
	{
		Name:        GetMyOrders,
		Description: "Get the order history for the current user. Use this when the user asks about their orders, wants to check order status, or view past purchases.",
		Parameters:  json.RawMessage(getMyOrdersSchema),
	},
	{
		Name:        GetOrderDetails,
		Description: "Get detailed information about a specific order. Use this when the user asks about a particular order, wants tracking information, or order specifics.",
		Parameters:  json.RawMessage(getOrderDetailsSchema),
	},
	{
		Name:        TrackOrder,
		Description: "Get tracking information for an order. Use this when the user wants to know where their order is or check delivery status.",
		Parameters:  json.RawMessage(trackOrderSchema),
	},
}

var schemas = map[Name]*jsonschema.Schema{
	SearchProducts:    jsonschema.MustCompileString("searchProducts.json", searchProductsSchema),
	GetProductDetails: jsonschema.MustCompileString("getProductDetails.json", getProductDetailsSchema),
	GetCategories:     jsonschema.MustCompileString("getCategories.json", getCategoriesSchema),
	GetMyOrders:       jsonschema.MustCompileString("getMyOrders.json", getMyOrdersSchema),
	GetOrderDetails:   jsonschema.MustCompileString("getOrderDetails.json", getOrderDetailsSchema),
	TrackOrder:        jsonschema.MustCompileString("trackOrder.json", trackOrderSchema),
}

// Catalog returns all registered tool definitions in a stable order
func Catalog() []Definition {
	return definitions
}

// Known reports whether name is a registered tool
func Known(name Name) bool {
	_, ok := schemas[name]
	return ok
}

// ValidateArguments checks a raw argument blob against the tool's parameter
// schema. An empty blob is treated as an empty object, which some providers
// send for tools without required parameters.
func ValidateArguments(name Name, argumentsJSON string) error {
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}

	if argumentsJSON == "" {
		argumentsJSON = "{}"
	}

	var decoded any
	if err := json.Unmarshal([]byte(argumentsJSON), &decoded); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("arguments failed schema validation: %w", err)
	}
	return nil
}
