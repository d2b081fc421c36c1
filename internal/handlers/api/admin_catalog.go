package api

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"riverway/internal/db"
	"riverway/internal/models"
	"riverway/internal/validation"
)

// CatalogAdminDB is the persistence behind the staff product, category and
// order screens.
type CatalogAdminDB interface {
	ListProductsForStaff(ctx context.Context, f db.StaffProductFilter) ([]models.Product, error)
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	ListCategorySummaries(ctx context.Context) ([]db.CategorySummary, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error

	ListOrders(ctx context.Context, f db.OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
}

// CatalogAdminHandler lets staff manage the catalog and browse every order.
type CatalogAdminHandler struct {
	db     CatalogAdminDB
	logger *zap.Logger
}

// NewCatalogAdminHandler creates a new catalog admin handler.
func NewCatalogAdminHandler(database CatalogAdminDB, logger *zap.Logger) *CatalogAdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogAdminHandler{db: database, logger: logger.Named("catalog_admin")}
}

func pageParams(c fiber.Ctx) (limit, offset int) {
	limit = fiber.Query[int](c, "limit", 50)
	offset = fiber.Query[int](c, "offset")
	switch {
	case limit <= 0:
		limit = 50
	case limit > 100:
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// productWriteError maps store errors from a product insert or update. Only
// unexpected errors are logged.
func (h *CatalogAdminHandler) productWriteError(c fiber.Ctx, err error, id int64) error {
	switch {
	case errors.Is(err, db.ErrProductNotFound):
		return jsonError(c, fiber.StatusNotFound, "product not found")
	case errors.Is(err, db.ErrSKUExists):
		return jsonError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, db.ErrCategoryNotFound):
		return jsonError(c, fiber.StatusBadRequest, "category not found")
	}
	h.logger.Error("failed to save product", zap.Error(err), zap.Int64("product_id", id))
	return jsonError(c, fiber.StatusInternalServerError, "failed to save product")
}

// ListProducts handles GET /admin/products. Filters: q (name, SKU or
// description), category, and status (active, inactive or low_stock).
func (h *CatalogAdminHandler) ListProducts(c fiber.Ctx) error {
	filter := db.StaffProductFilter{
		Query:      c.Query("q"),
		CategoryID: fiber.Query[int64](c, "category"),
		Status:     c.Query("status"),
	}
	switch filter.Status {
	case "", db.ProductStatusActive, db.ProductStatusInactive, db.ProductStatusLowStock:
	default:
		return jsonError(c, fiber.StatusBadRequest, "status must be active, inactive or low_stock")
	}
	filter.Limit, filter.Offset = pageParams(c)

	products, err := h.db.ListProductsForStaff(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return jsonSuccess(c, products)
}

// GetProduct handles GET /admin/products/:id, inactive products included.
func (h *CatalogAdminHandler) GetProduct(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid product id")
	}
	product, err := h.db.FindProduct(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrProductNotFound) {
			return jsonError(c, fiber.StatusNotFound, "product not found")
		}
		h.logger.Error("failed to load product", zap.Error(err), zap.Int64("product_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load product")
	}
	return jsonSuccess(c, product)
}

// CreateProduct handles POST /admin/products. New products are active unless
// the body says otherwise.
func (h *CatalogAdminHandler) CreateProduct(c fiber.Ctx) error {
	product := models.Product{IsActive: true}
	if err := json.Unmarshal(c.Body(), &product); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	product.ID = 0

	if ok, msg := validation.ValidateProduct(&product); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if err := h.db.CreateProduct(c.Context(), &product); err != nil {
		return h.productWriteError(c, err, 0)
	}

	h.logger.Info("product created", zap.Int64("product_id", product.ID), zap.String("sku", product.SKU))
	return jsonCreated(c, product)
}

// UpdateProduct handles PUT /admin/products/:id. Fields missing from the body
// keep their stored values.
func (h *CatalogAdminHandler) UpdateProduct(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid product id")
	}

	product, err := h.db.FindProduct(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrProductNotFound) {
			return jsonError(c, fiber.StatusNotFound, "product not found")
		}
		h.logger.Error("failed to load product", zap.Error(err), zap.Int64("product_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load product")
	}
	if err := json.Unmarshal(c.Body(), product); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	product.ID = id

	if ok, msg := validation.ValidateProduct(product); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if err := h.db.UpdateProduct(c.Context(), product); err != nil {
		return h.productWriteError(c, err, id)
	}

	h.logger.Info("product updated", zap.Int64("product_id", id), zap.Bool("is_active", product.IsActive))
	return jsonSuccess(c, product)
}

// DeleteProduct handles DELETE /admin/products/:id.
func (h *CatalogAdminHandler) DeleteProduct(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid product id")
	}
	if err := h.db.DeleteProduct(c.Context(), id); err != nil {
		if errors.Is(err, db.ErrProductNotFound) {
			return jsonError(c, fiber.StatusNotFound, "product not found")
		}
		h.logger.Error("failed to delete product", zap.Error(err), zap.Int64("product_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete product")
	}

	h.logger.Info("product deleted", zap.Int64("product_id", id))
	return jsonSuccess(c, fiber.Map{"id": id, "deleted": true})
}

// ListCategories handles GET /admin/categories.
func (h *CatalogAdminHandler) ListCategories(c fiber.Ctx) error {
	categories, err := h.db.ListCategorySummaries(c.Context())
	if err != nil {
		h.logger.Error("failed to list categories", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load categories")
	}
	if categories == nil {
		categories = []db.CategorySummary{}
	}
	return jsonSuccess(c, categories)
}

func (h *CatalogAdminHandler) categoryWriteError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, db.ErrCategoryNotFound):
		return jsonError(c, fiber.StatusNotFound, "category not found")
	case errors.Is(err, db.ErrCategoryExists):
		return jsonError(c, fiber.StatusConflict, err.Error())
	}
	h.logger.Error("failed to save category", zap.Error(err))
	return jsonError(c, fiber.StatusInternalServerError, "failed to save category")
}

// CreateCategory handles POST /admin/categories.
func (h *CatalogAdminHandler) CreateCategory(c fiber.Ctx) error {
	var category models.Category
	if err := json.Unmarshal(c.Body(), &category); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	category.ID = 0

	if ok, msg := validation.ValidateCategory(&category); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if err := h.db.CreateCategory(c.Context(), &category); err != nil {
		return h.categoryWriteError(c, err)
	}

	h.logger.Info("category created", zap.Int64("category_id", category.ID), zap.String("name", category.Name))
	return jsonCreated(c, category)
}

// UpdateCategory handles PUT /admin/categories/:id.
func (h *CatalogAdminHandler) UpdateCategory(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid category id")
	}

	var category models.Category
	if err := json.Unmarshal(c.Body(), &category); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	category.ID = id

	if ok, msg := validation.ValidateCategory(&category); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}
	if err := h.db.UpdateCategory(c.Context(), &category); err != nil {
		return h.categoryWriteError(c, err)
	}
	return jsonSuccess(c, category)
}

// ListOrders handles GET /admin/orders. Filters: status, and q matching the
// order number or customer email.
func (h *CatalogAdminHandler) ListOrders(c fiber.Ctx) error {
	filter := db.OrderFilter{
		Status: strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Query:  c.Query("q"),
	}
	if filter.Status != "" && !slices.Contains(models.OrderStatuses, filter.Status) {
		return jsonError(c, fiber.StatusBadRequest, "invalid order status")
	}
	filter.Limit, filter.Offset = pageParams(c)

	orders, err := h.db.ListOrders(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return jsonSuccess(c, orders)
}

// GetOrder handles GET /admin/orders/:id for any customer's order.
func (h *CatalogAdminHandler) GetOrder(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid order id")
	}
	order, err := h.db.GetOrder(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			return jsonError(c, fiber.StatusNotFound, "order not found")
		}
		h.logger.Error("failed to load order", zap.Error(err), zap.Int64("order_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load order")
	}
	return jsonSuccess(c, order)
}
