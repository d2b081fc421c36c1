package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds items for a signed-in user or an anonymous session.
type Cart struct {
	ID         int64      `json:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	SessionKey string     `json:"-"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is one product line in a cart.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"-"`
	ProductID int64     `json:"product_id"`
	Product   Product   `json:"product"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// TotalPrice is the line total at the current product price.
func (i CartItem) TotalPrice() float64 {
	return float64(i.Quantity) * i.Product.Price
}

// TotalPrice sums all line totals.
func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.TotalPrice()
	}
	return total
}

// TotalItems counts units across all lines.
func (c *Cart) TotalItems() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
