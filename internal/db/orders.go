package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"riverway/internal/models"
)

// Checkout turns the user's cart into an order in one transaction: the cart
// lines are copied at the current product price, stock is decremented, and
// the cart is emptied.
func (d *DB) Checkout(ctx context.Context, userID uuid.UUID, req models.CheckoutRequest) (*models.Order, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var cartID int64
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCartEmpty
	}
	if err != nil {
		return nil, err
	}

	items, err := d.cartItems(ctx, tx, cartID, true)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	cart := models.Cart{Items: items}
	for _, it := range items {
		if !it.Product.IsActive {
			return nil, ErrProductInactive
		}
		if it.Quantity > it.Product.StockQuantity {
			return nil, &StockError{Available: it.Product.StockQuantity}
		}
	}

	order := models.Order{
		UserID:          userID,
		Email:           req.Email,
		Phone:           req.Phone,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		TotalAmount:     cart.TotalPrice(),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, email, phone, shipping_address, billing_address, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at, updated_at
	`, userID, order.Email, order.Phone, order.ShippingAddress, order.BillingAddress, order.TotalAmount,
	).Scan(&order.ID, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		line := models.OrderItem{
			OrderID:     order.ID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			Price:       it.Product.Price,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, line.OrderID, line.ProductID, line.ProductName, line.Quantity, line.Price).Scan(&line.ID)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, line)

		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW() WHERE id = $2
		`, it.Quantity, it.ProductID); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &order, nil
}

const orderColumns = `id, user_id, email, phone, shipping_address, billing_address, total_amount::float8, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Email, &o.Phone, &o.ShippingAddress, &o.BillingAddress,
		&o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderForUser returns an order with its lines, only if userID placed it.
func (d *DB) GetOrderForUser(ctx context.Context, orderID int64, userID uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(d.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID))
	if err != nil {
		return nil, err
	}
	if o.Items, err = d.orderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder returns any order with its lines (staff only).
func (d *DB) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	o, err := scanOrder(d.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, err
	}
	if o.Items, err = d.orderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (d *DB) orderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT id, order_id, COALESCE(product_id, 0), product_name, quantity, price::float8
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func (d *DB) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}

	return orders, rows.Err()
}

// ListOrdersForUser returns the user's orders, newest first.
func (d *DB) ListOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return d.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// RecentOrders returns the latest orders across all customers.
func (d *DB) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return d.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

// OrderFilter narrows the staff order listing. Query matches the order number
// or the customer email.
type OrderFilter struct {
	Status string
	Query  string
	Limit  int
	Offset int
}

// ListOrders returns orders across all customers, newest first.
func (d *DB) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	where := []string{"TRUE"}
	var args []any

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, likePatterns([]string{q})[0])
		where = append(where, fmt.Sprintf("(id::text ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return d.queryOrders(ctx, query, args...)
}

// UpdateOrderStatus moves an order to a new status (staff only).
func (d *DB) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	tag, err := d.Pool.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// OrderStatusForUser implements chatbot.OrderLookup.
func (d *DB) OrderStatusForUser(ctx context.Context, orderID int64, userID uuid.UUID) (string, bool, error) {
	var status string
	err := d.Pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return status, true, nil
}
