package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"riverway/internal/chatbot"
	"riverway/internal/models"
)

const productColumns = `
	p.id, p.category_id, c.name, p.name, p.description, p.price::float8, p.unit, p.sku,
	p.stock_quantity, p.image, p.specifications, p.rating::float8, p.rating_count,
	p.is_active, p.created_at, p.updated_at`

const productFrom = ` FROM products p JOIN categories c ON c.id = p.category_id `

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Description, &p.Price, &p.Unit, &p.SKU,
		&p.StockQuantity, &p.Image, &p.Specifications, &p.Rating, &p.RatingCount,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// likePatterns turns search terms into escaped ILIKE patterns.
func likePatterns(terms []string) []string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			patterns = append(patterns, "%"+escaper.Replace(t)+"%")
		}
	}
	return patterns
}

// SearchProducts implements chatbot.ProductCatalog. A product matches when any
// term occurs in its name, description or category name, and with
// IncludeSpecifications also in the specification keys or values.
func (d *DB) SearchProducts(ctx context.Context, q chatbot.ProductQuery) ([]models.Product, error) {
	patterns := likePatterns(q.Terms)
	if len(patterns) == 0 {
		return nil, nil
	}

	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}

	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.is_active
		  AND (
			p.name ILIKE ANY($1)
			OR p.description ILIKE ANY($1)
			OR c.name ILIKE ANY($1)
			OR ($2 AND EXISTS (
				SELECT 1 FROM jsonb_each_text(p.specifications) s
				WHERE s.key ILIKE ANY($1) OR s.value ILIKE ANY($1)
			))
		  )
		ORDER BY p.stock_quantity DESC, p.name ASC
		LIMIT $3`

	return d.queryProducts(ctx, query, patterns, q.IncludeSpecifications, limit)
}

// PopularProducts implements chatbot.ProductCatalog.
func (d *DB) PopularProducts(ctx context.Context, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.is_active AND p.stock_quantity > 0
		ORDER BY p.stock_quantity DESC, p.name ASC
		LIMIT $1`
	return d.queryProducts(ctx, query, limit)
}

// BrowseProducts implements chatbot.ProductCatalog.
func (d *DB) BrowseProducts(ctx context.Context, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.is_active AND p.stock_quantity > 0
		ORDER BY p.stock_quantity DESC, p.updated_at DESC, p.name ASC
		LIMIT $1`
	return d.queryProducts(ctx, query, limit)
}

// ProductFilter narrows the storefront listing.
type ProductFilter struct {
	Query      string
	CategoryID int64
	Sort       string // price_low, price_high, name_az, name_za; anything else is newest first
	Limit      int
	Offset     int
}

var productSorts = map[string]string{
	"price_low":  "p.price ASC, p.id",
	"price_high": "p.price DESC, p.id",
	"name_az":    "p.name ASC, p.id",
	"name_za":    "p.name DESC, p.id",
}

// ListProducts returns active products for the storefront.
func (d *DB) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "p.is_active")

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, likePatterns([]string{q})[0])
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	order, ok := productSorts[f.Sort]
	if !ok {
		order = "p.created_at DESC, p.id DESC"
	}

	query := `SELECT ` + productColumns + productFrom +
		`WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, order, len(args)-1, len(args))

	return d.queryProducts(ctx, query, args...)
}

// GetProduct returns an active product by id.
func (d *DB) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `WHERE p.id = $1 AND p.is_active`
	return scanProduct(d.Pool.QueryRow(ctx, query, id))
}

// RelatedProducts returns other active products from the same category.
func (d *DB) RelatedProducts(ctx context.Context, p *models.Product, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.category_id = $1 AND p.id != $2 AND p.is_active
		ORDER BY p.stock_quantity DESC, p.name ASC
		LIMIT $3`
	return d.queryProducts(ctx, query, p.CategoryID, p.ID, limit)
}

// ListCategories returns all categories by name.
func (d *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := d.Pool.Query(ctx, `SELECT id, name, description, image, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Image, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// LowStockProducts returns active products at or below threshold units.
func (d *DB) LowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.is_active AND p.stock_quantity <= $1
		ORDER BY p.stock_quantity ASC, p.name ASC`
	return d.queryProducts(ctx, query, threshold)
}

// UpsertCategory creates a category or updates its description, returning its id.
func (d *DB) UpsertCategory(ctx context.Context, name, description string) (int64, error) {
	var id int64
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO categories (name, description) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id
	`, name, description).Scan(&id)
	return id, err
}

// UpsertProduct creates or updates a product keyed by SKU.
func (d *DB) UpsertProduct(ctx context.Context, p *models.Product) error {
	specs := p.Specifications
	if specs == nil {
		specs = map[string]any{}
	}
	return d.Pool.QueryRow(ctx, `
		INSERT INTO products (category_id, name, description, price, unit, sku, stock_quantity, image, specifications, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		ON CONFLICT (sku) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			unit = EXCLUDED.unit,
			stock_quantity = EXCLUDED.stock_quantity,
			image = EXCLUDED.image,
			specifications = EXCLUDED.specifications,
			updated_at = NOW()
		RETURNING id, is_active, created_at, updated_at
	`, p.CategoryID, p.Name, p.Description, p.Price, p.Unit, p.SKU, p.StockQuantity, p.Image, specs,
	).Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

// Stock states for the staff product filter.
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
	ProductStatusLowStock = "low_stock"
)

// StaffProductFilter narrows the staff product listing, which unlike the
// storefront includes inactive products and also searches the SKU.
type StaffProductFilter struct {
	Query      string
	CategoryID int64
	Status     string
	Limit      int
	Offset     int
}

// ListProductsForStaff returns products in any state, newest first.
func (d *DB) ListProductsForStaff(ctx context.Context, f StaffProductFilter) ([]models.Product, error) {
	where := []string{"TRUE"}
	var args []any

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, likePatterns([]string{q})[0])
		n := len(args)
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.sku ILIKE $%d OR p.description ILIKE $%d)", n, n, n))
	}
	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	switch f.Status {
	case ProductStatusActive:
		where = append(where, "p.is_active")
	case ProductStatusInactive:
		where = append(where, "NOT p.is_active")
	case ProductStatusLowStock:
		args = append(args, LowStockThreshold)
		where = append(where, fmt.Sprintf("p.stock_quantity <= $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	query := `SELECT ` + productColumns + productFrom +
		`WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return d.queryProducts(ctx, query, args...)
}

// FindProduct returns a product whether or not it is active.
func (d *DB) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	return scanProduct(d.Pool.QueryRow(ctx, `SELECT `+productColumns+productFrom+`WHERE p.id = $1`, id))
}

// CreateProduct inserts p and fills in its generated fields. A taken SKU
// returns ErrSKUExists and an unknown category ErrCategoryNotFound.
func (d *DB) CreateProduct(ctx context.Context, p *models.Product) error {
	specs := p.Specifications
	if specs == nil {
		specs = map[string]any{}
	}
	query := `
		WITH p AS (
			INSERT INTO products (category_id, name, description, price, unit, sku, stock_quantity, image, specifications, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING *
		)
		SELECT ` + productColumns + ` FROM p JOIN categories c ON c.id = p.category_id`

	created, err := scanProduct(d.Pool.QueryRow(ctx, query,
		p.CategoryID, p.Name, p.Description, p.Price, p.Unit, p.SKU, p.StockQuantity, p.Image, specs, p.IsActive))
	if err != nil {
		return mapWriteError(err, ErrSKUExists, ErrCategoryNotFound)
	}
	*p = *created
	return nil
}

// UpdateProduct rewrites the editable fields of the product with p.ID.
// Ratings are left alone.
func (d *DB) UpdateProduct(ctx context.Context, p *models.Product) error {
	specs := p.Specifications
	if specs == nil {
		specs = map[string]any{}
	}
	query := `
		WITH p AS (
			UPDATE products SET
				category_id = $2, name = $3, description = $4, price = $5, unit = $6, sku = $7,
				stock_quantity = $8, image = $9, specifications = $10, is_active = $11, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + productColumns + ` FROM p JOIN categories c ON c.id = p.category_id`

	updated, err := scanProduct(d.Pool.QueryRow(ctx, query, p.ID,
		p.CategoryID, p.Name, p.Description, p.Price, p.Unit, p.SKU, p.StockQuantity, p.Image, specs, p.IsActive))
	if err != nil {
		return mapWriteError(err, ErrSKUExists, ErrCategoryNotFound)
	}
	*p = *updated
	return nil
}

// DeleteProduct removes a product. Past order lines keep their copied name
// and price.
func (d *DB) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// CategorySummary is a category with the number of products filed under it.
type CategorySummary struct {
	models.Category
	ProductCount int `json:"product_count"`
}

// ListCategorySummaries returns all categories by name with product counts.
func (d *DB) ListCategorySummaries(ctx context.Context) ([]CategorySummary, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT c.id, c.name, c.description, c.image, c.created_at, COUNT(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []CategorySummary
	for rows.Next() {
		var s CategorySummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Image, &s.CreatedAt, &s.ProductCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// CreateCategory inserts a category. A taken name returns ErrCategoryExists.
func (d *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO categories (name, description, image) VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.Name, c.Description, c.Image).Scan(&c.ID, &c.CreatedAt)
	return mapWriteError(err, ErrCategoryExists, nil)
}

// UpdateCategory renames or redescribes the category with c.ID.
func (d *DB) UpdateCategory(ctx context.Context, c *models.Category) error {
	err := d.Pool.QueryRow(ctx, `
		UPDATE categories SET name = $2, description = $3, image = $4 WHERE id = $1
		RETURNING created_at
	`, c.ID, c.Name, c.Description, c.Image).Scan(&c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCategoryNotFound
	}
	return mapWriteError(err, ErrCategoryExists, nil)
}
