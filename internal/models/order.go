package models

import (
	"time"

	"github.com/google/uuid"
)

// Order status constants
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// OrderStatuses lists every order status in fulfilment order.
var OrderStatuses = []string{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

// Order is a placed checkout.
type Order struct {
	ID              int64       `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	ShippingAddress string      `json:"shipping_address"`
	BillingAddress  string      `json:"billing_address"`
	TotalAmount     float64     `json:"total_amount"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem records the price paid at checkout time.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"-"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// TotalPrice is the line total.
func (i OrderItem) TotalPrice() float64 {
	return float64(i.Quantity) * i.Price
}

// CheckoutRequest carries the contact and address details for a new order.
type CheckoutRequest struct {
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ShippingAddress string `json:"shipping_address"`
	BillingAddress  string `json:"billing_address"`
}
