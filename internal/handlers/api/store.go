package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"riverway/internal/db"
	"riverway/internal/middleware"
	"riverway/internal/models"
	"riverway/internal/validation"
)

// SessionCartKey holds the anonymous cart key in the browser session.
const SessionCartKey = "cart_key"

const relatedProductLimit = 4

// StoreDB is the catalog, cart and order persistence.
type StoreDB interface {
	ListProducts(ctx context.Context, f db.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	RelatedProducts(ctx context.Context, p *models.Product, limit int) ([]models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetOrCreateCart(ctx context.Context, owner db.CartOwner) (*models.Cart, error)
	AddCartItem(ctx context.Context, cartID, productID int64, quantity int) (*models.CartItem, error)
	UpdateCartItem(ctx context.Context, cartID, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, cartID, itemID int64) error
	Checkout(ctx context.Context, userID uuid.UUID, req models.CheckoutRequest) (*models.Order, error)
	ListOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	GetOrderForUser(ctx context.Context, orderID int64, userID uuid.UUID) (*models.Order, error)
}

// OrderNotifier sends order confirmations.
type OrderNotifier interface {
	NotifyOrderPlaced(ctx context.Context, order *models.Order)
}

// StoreHandler serves the storefront API.
type StoreHandler struct {
	db       StoreDB
	notifier OrderNotifier
	logger   *zap.Logger
}

// NewStoreHandler creates a new storefront handler.
func NewStoreHandler(database StoreDB, notifier OrderNotifier, logger *zap.Logger) *StoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreHandler{db: database, notifier: notifier, logger: logger.Named("store")}
}

// cartResponse is the cart plus its computed totals.
type cartResponse struct {
	*models.Cart
	TotalItems int     `json:"total_items"`
	TotalPrice float64 `json:"total_price"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cartResponse{Cart: cart, TotalItems: cart.TotalItems(), TotalPrice: cart.TotalPrice()}
}

// ListProducts handles GET /api/products.
func (h *StoreHandler) ListProducts(c fiber.Ctx) error {
	filter := db.ProductFilter{
		Query:      c.Query("q"),
		CategoryID: fiber.Query[int64](c, "category"),
		Sort:       c.Query("sort"),
		Limit:      fiber.Query[int](c, "limit", 50),
		Offset:     fiber.Query[int](c, "offset"),
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := h.db.ListProducts(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return jsonSuccess(c, products)
}

// GetProduct handles GET /api/products/:id.
func (h *StoreHandler) GetProduct(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid product id")
	}

	product, err := h.db.GetProduct(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrProductNotFound) {
			return jsonError(c, fiber.StatusNotFound, "product not found")
		}
		h.logger.Error("failed to load product", zap.Error(err), zap.Int64("product_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load product")
	}

	related, err := h.db.RelatedProducts(c.Context(), product, relatedProductLimit)
	if err != nil {
		h.logger.Warn("failed to load related products", zap.Error(err), zap.Int64("product_id", id))
	}
	if related == nil {
		related = []models.Product{}
	}

	return jsonSuccess(c, fiber.Map{
		"product": product,
		"related": related,
	})
}

// ListCategories handles GET /api/categories.
func (h *StoreHandler) ListCategories(c fiber.Ctx) error {
	categories, err := h.db.ListCategories(c.Context())
	if err != nil {
		h.logger.Error("failed to list categories", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load categories")
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return jsonSuccess(c, categories)
}

// cartOwner identifies the current cart: the signed-in user, or an anonymous
// key stored in the session.
func cartOwner(c fiber.Ctx) (db.CartOwner, error) {
	if user := middleware.CurrentUser(c); user != nil {
		id := user.ID
		return db.CartOwner{UserID: &id}, nil
	}

	sess := session.FromContext(c)
	if sess == nil {
		return db.CartOwner{}, errors.New("session not available")
	}
	key, _ := sess.Get(SessionCartKey).(string)
	if key == "" {
		key = uuid.NewString()
		sess.Set(SessionCartKey, key)
	}
	return db.CartOwner{SessionKey: key}, nil
}

func (h *StoreHandler) currentCart(c fiber.Ctx) (*models.Cart, error) {
	owner, err := cartOwner(c)
	if err != nil {
		return nil, err
	}
	return h.db.GetOrCreateCart(c.Context(), owner)
}

// cartError maps cart sentinels to responses.
func cartError(c fiber.Ctx, err error) error {
	var stockErr *db.StockError
	switch {
	case errors.As(err, &stockErr):
		return jsonError(c, fiber.StatusConflict, stockErr.Error())
	case errors.Is(err, db.ErrInsufficientStock):
		return jsonError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, db.ErrProductNotFound):
		return jsonError(c, fiber.StatusNotFound, "product not found")
	case errors.Is(err, db.ErrProductInactive):
		return jsonError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, db.ErrCartItemNotFound):
		return jsonError(c, fiber.StatusNotFound, "cart item not found")
	case errors.Is(err, db.ErrCartEmpty):
		return jsonError(c, fiber.StatusBadRequest, "your cart is empty")
	}
	return jsonError(c, fiber.StatusInternalServerError, "failed to update cart")
}

// GetCart handles GET /api/cart.
func (h *StoreHandler) GetCart(c fiber.Ctx) error {
	cart, err := h.currentCart(c)
	if err != nil {
		h.logger.Error("failed to load cart", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load cart")
	}
	return jsonSuccess(c, newCartResponse(cart))
}

// AddCartItem handles POST /api/cart/items.
func (h *StoreHandler) AddCartItem(c fiber.Ctx) error {
	var body struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if body.ProductID <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "product_id is required")
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	if body.Quantity < 0 {
		return jsonError(c, fiber.StatusBadRequest, "quantity must be positive")
	}

	cart, err := h.currentCart(c)
	if err != nil {
		h.logger.Error("failed to load cart", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load cart")
	}

	if _, err := h.db.AddCartItem(c.Context(), cart.ID, body.ProductID, body.Quantity); err != nil {
		if !isCartSentinel(err) {
			h.logger.Error("failed to add cart item", zap.Error(err), zap.Int64("product_id", body.ProductID))
		}
		return cartError(c, err)
	}

	return h.GetCart(c)
}

// UpdateCartItem handles PUT /api/cart/items/:id. A quantity of zero or less
// removes the line.
func (h *StoreHandler) UpdateCartItem(c fiber.Ctx) error {
	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid cart item id")
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	cart, err := h.currentCart(c)
	if err != nil {
		h.logger.Error("failed to load cart", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load cart")
	}

	if err := h.db.UpdateCartItem(c.Context(), cart.ID, itemID, body.Quantity); err != nil {
		if !isCartSentinel(err) {
			h.logger.Error("failed to update cart item", zap.Error(err), zap.Int64("item_id", itemID))
		}
		return cartError(c, err)
	}

	return h.GetCart(c)
}

// RemoveCartItem handles DELETE /api/cart/items/:id.
func (h *StoreHandler) RemoveCartItem(c fiber.Ctx) error {
	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid cart item id")
	}

	cart, err := h.currentCart(c)
	if err != nil {
		h.logger.Error("failed to load cart", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load cart")
	}

	if err := h.db.RemoveCartItem(c.Context(), cart.ID, itemID); err != nil {
		if !isCartSentinel(err) {
			h.logger.Error("failed to remove cart item", zap.Error(err), zap.Int64("item_id", itemID))
		}
		return cartError(c, err)
	}

	return h.GetCart(c)
}

func isCartSentinel(err error) bool {
	return errors.Is(err, db.ErrInsufficientStock) ||
		errors.Is(err, db.ErrProductNotFound) ||
		errors.Is(err, db.ErrProductInactive) ||
		errors.Is(err, db.ErrCartItemNotFound) ||
		errors.Is(err, db.ErrCartEmpty)
}

// Checkout handles POST /api/checkout for signed-in users.
func (h *StoreHandler) Checkout(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req models.CheckoutRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		req.Email = user.Email
	}
	if req.Phone == "" {
		req.Phone = user.Phone
	}
	if ok, msg := validation.ValidateCheckout(&req); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	order, err := h.db.Checkout(c.Context(), user.ID, req)
	if err != nil {
		if !isCartSentinel(err) {
			h.logger.Error("checkout failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
		return cartError(c, err)
	}

	h.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("user_id", user.ID.String()),
		zap.Float64("total", order.TotalAmount),
	)
	if h.notifier != nil {
		h.notifier.NotifyOrderPlaced(c.Context(), order)
	}

	return jsonCreated(c, order)
}

// ListOrders handles GET /api/orders.
func (h *StoreHandler) ListOrders(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	orders, err := h.db.ListOrdersForUser(c.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return jsonSuccess(c, orders)
}

// GetOrder handles GET /api/orders/:id. Other users' orders are reported as
// not found.
func (h *StoreHandler) GetOrder(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.db.GetOrderForUser(c.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			return jsonError(c, fiber.StatusNotFound, "order not found")
		}
		h.logger.Error("failed to load order", zap.Error(err), zap.Int64("order_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load order")
	}
	return jsonSuccess(c, order)
}
