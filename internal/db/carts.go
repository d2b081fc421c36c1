package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"riverway/internal/models"
)

// CartOwner identifies a cart: the signed-in user, or the anonymous browser
// session when UserID is nil.
type CartOwner struct {
	UserID     *uuid.UUID
	SessionKey string
}

// GetOrCreateCart returns the owner's cart with its items loaded.
func (d *DB) GetOrCreateCart(ctx context.Context, owner CartOwner) (*models.Cart, error) {
	var (
		cart  models.Cart
		query string
		arg   any
	)
	if owner.UserID != nil {
		query = `
			INSERT INTO carts (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
			RETURNING id, user_id, COALESCE(session_key, ''), created_at, updated_at`
		arg = *owner.UserID
	} else {
		query = `
			INSERT INTO carts (session_key) VALUES ($1)
			ON CONFLICT (session_key) DO UPDATE SET updated_at = carts.updated_at
			RETURNING id, user_id, COALESCE(session_key, ''), created_at, updated_at`
		arg = owner.SessionKey
	}

	if err := d.Pool.QueryRow(ctx, query, arg).Scan(&cart.ID, &cart.UserID, &cart.SessionKey, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return nil, err
	}

	items, err := d.cartItems(ctx, d.Pool, cart.ID, false)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return &cart, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (d *DB) cartItems(ctx context.Context, q querier, cartID int64, lock bool) ([]models.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.added_at, ` + productColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.id`
	if lock {
		query += ` FOR UPDATE OF p`
	}

	rows, err := q.Query(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var (
			it models.CartItem
			p  = &it.Product
		)
		if err := rows.Scan(
			&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.AddedAt,
			&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Description, &p.Price, &p.Unit, &p.SKU,
			&p.StockQuantity, &p.Image, &p.Specifications, &p.Rating, &p.RatingCount,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// AddCartItem adds quantity units of a product. The cumulative quantity in the
// cart may not exceed the product's stock.
func (d *DB) AddCartItem(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInsufficientStock
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		stock  int
		active bool
	)
	err = tx.QueryRow(ctx, `SELECT stock_quantity, is_active FROM products WHERE id = $1 FOR SHARE`, productID).Scan(&stock, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrProductInactive
	}

	var current int
	err = tx.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID).Scan(&current)
	if err != nil {
		return nil, err
	}
	if stock <= 0 || current+quantity > stock {
		return nil, &StockError{Available: stock}
	}

	item := models.CartItem{CartID: cartID, ProductID: productID}
	err = tx.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, added_at
	`, cartID, productID, quantity).Scan(&item.ID, &item.Quantity, &item.AddedAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
func (d *DB) UpdateCartItem(ctx context.Context, cartID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return d.RemoveCartItem(ctx, cartID, itemID)
	}

	var stock int
	err := d.Pool.QueryRow(ctx, `
		SELECT p.stock_quantity FROM cart_items ci JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1 AND ci.cart_id = $2
	`, itemID, cartID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCartItemNotFound
	}
	if err != nil {
		return err
	}
	if quantity > stock {
		return &StockError{Available: stock}
	}

	_, err = d.Pool.Exec(ctx, `UPDATE cart_items SET quantity = $1 WHERE id = $2 AND cart_id = $3`, quantity, itemID, cartID)
	return err
}

// RemoveCartItem deletes a line from the cart.
func (d *DB) RemoveCartItem(ctx context.Context, cartID, itemID int64) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// MergeSessionCart moves an anonymous cart's lines into the user's cart after
// sign-in. Quantities for the same product are added together.
func (d *DB) MergeSessionCart(ctx context.Context, sessionKey string, userID uuid.UUID) error {
	if sessionKey == "" {
		return nil
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var anonID int64
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE session_key = $1 AND user_id IS NULL`, sessionKey).Scan(&anonID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	var userCartID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, userID).Scan(&userCartID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, added_at)
		SELECT $1, product_id, quantity, added_at FROM cart_items WHERE cart_id = $2
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, userCartID, anonID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, anonID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
