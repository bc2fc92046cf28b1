package chat

import (
	"github.com/xshopai/chat-gateway/internal/catalog"
	"github.com/xshopai/chat-gateway/internal/orders"
)

// fold appends the structured records of a successful tool payload to the
// accumulator. Single records are only folded when they carry an identity.
// Error payloads, category listings and tracking info are never folded; the
// model summarizes those in text.
func (c *CollectedData) fold(payload any) {
	switch v := payload.(type) {
	case *catalog.SearchResult:
		c.Products = append(c.Products, v.Products...)
	case *catalog.Product:
		if v.ID != "" {
			c.Products = append(c.Products, *v)
		}
	case *orders.ListResult:
		c.Orders = append(c.Orders, v.Orders...)
	case *orders.Order:
		if v.ID != "" {
			c.Orders = append(c.Orders, *v)
		}
	}
}
