package models

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// OrderItem is a line item as the server stores it inside an order.
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Name        string  `json:"name,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total,omitempty"`
}

// DisplayName prefers the server's product name over the cart snapshot name.
func (oi OrderItem) DisplayName() string {
	if oi.ProductName != "" {
		return oi.ProductName
	}
	return oi.Name
}

// Order is server-owned; the client only ever re-fetches it.
type Order struct {
	OrderID         string      `json:"order_id"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total_price"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	CreatedAt       *time.Time  `json:"created_at,omitempty"`
}

// CreateOrderRequest is the snapshot of the cart at submission time.
type CreateOrderRequest struct {
	Items           []LineItem `json:"items"`
	TotalAmount     float64    `json:"total_amount"`
	ShippingAddress string     `json:"shipping_address"`
}

// OrderCreated is the body returned by a successful order submission.
type OrderCreated struct {
	OrderID string  `json:"order_id"`
	Total   float64 `json:"total_price"`
	Message string  `json:"message,omitempty"`
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	Status OrderStatus
}
