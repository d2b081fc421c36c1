package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level database error sentinels.
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Catalog errors
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("a category with this name already exists")
	ErrSKUExists        = errors.New("a product with this sku already exists")

	// Cart errors
	ErrCartEmpty         = errors.New("cart is empty")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("not enough stock available")
	ErrProductInactive   = errors.New("product is not available")

	// Order errors
	ErrOrderNotFound = errors.New("order not found")

	// Chat errors
	ErrChatSessionNotFound = errors.New("chat session not found")
	ErrEscalationNotFound  = errors.New("escalation not found")
	ErrFAQNotFound         = errors.New("faq not found")
	ErrFAQExists           = errors.New("an faq with this question already exists")

	// Settings errors
	ErrSettingsNotFound = errors.New("settings not found")
)

// StockError reports how many units are actually available. It matches
// ErrInsufficientStock with errors.Is.
type StockError struct {
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d items available in stock", e.Available)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Postgres error codes mapped onto sentinels.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// mapWriteError converts constraint violations on insert or update into the
// given sentinels. Either sentinel may be nil.
func mapWriteError(err error, onUnique, onForeignKey error) error {
	switch {
	case err == nil:
		return nil
	case onUnique != nil && hasPgCode(err, pgUniqueViolation):
		return onUnique
	case onForeignKey != nil && hasPgCode(err, pgForeignKeyViolation):
		return onForeignKey
	}
	return err
}
