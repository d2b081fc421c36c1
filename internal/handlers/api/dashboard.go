package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"riverway/internal/config"
	"riverway/internal/db"
	"riverway/internal/middleware"
	"riverway/internal/models"
)

// Export kinds for GET /admin/export/:kind.csv.
const (
	ExportProducts = "products"
	ExportOrders   = "orders"
	ExportChats    = "chats"
)

// chatExportWindow bounds the chat session export.
const chatExportWindow = 30 * 24 * time.Hour

// DashboardDB is the staff reporting persistence.
type DashboardDB interface {
	Dashboard(ctx context.Context, now time.Time) (*db.Dashboard, error)
	ListEscalations(ctx context.Context, unresolvedOnly bool) ([]models.Escalation, error)
	ResolveEscalation(ctx context.Context, id int64, agentID uuid.UUID, notes string) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	ExportProducts(ctx context.Context) ([]models.Product, error)
	ExportOrders(ctx context.Context) ([]models.Order, error)
	ExportChatSessions(ctx context.Context, since time.Time) ([]db.ChatSessionSummary, error)
}

// DashboardHandler serves the staff-only overview, escalation queue and exports.
type DashboardHandler struct {
	db     DashboardDB
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(database DashboardDB, cfg *config.Config, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{db: database, cfg: cfg, logger: logger.Named("dashboard"), now: time.Now}
}

// Overview handles GET /admin/dashboard.
func (h *DashboardHandler) Overview(c fiber.Ctx) error {
	dash, err := h.db.Dashboard(c.Context(), h.now().In(h.cfg.Location()))
	if err != nil {
		h.logger.Error("failed to build dashboard", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load dashboard")
	}
	return jsonSuccess(c, dash)
}

// Escalations handles GET /admin/escalations. ?all=true includes resolved ones.
func (h *DashboardHandler) Escalations(c fiber.Ctx) error {
	all := fiber.Query[bool](c, "all")
	escalations, err := h.db.ListEscalations(c.Context(), !all)
	if err != nil {
		h.logger.Error("failed to list escalations", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load escalations")
	}
	if escalations == nil {
		escalations = []models.Escalation{}
	}
	return jsonSuccess(c, escalations)
}

// ResolveEscalation handles POST /admin/escalations/:id/resolve.
func (h *DashboardHandler) ResolveEscalation(c fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return jsonError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid escalation id")
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	if err := h.db.ResolveEscalation(c.Context(), id, user.ID, strings.TrimSpace(body.Notes)); err != nil {
		if errors.Is(err, db.ErrEscalationNotFound) {
			return jsonError(c, fiber.StatusNotFound, "escalation not found or already resolved")
		}
		h.logger.Error("failed to resolve escalation", zap.Error(err), zap.Int64("escalation_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to resolve escalation")
	}

	h.logger.Info("escalation resolved", zap.Int64("escalation_id", id), zap.String("agent_id", user.ID.String()))
	return jsonSuccess(c, fiber.Map{"id": id, "resolved": true})
}

// UpdateOrderStatus handles POST /admin/orders/:id/status.
func (h *DashboardHandler) UpdateOrderStatus(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid order id")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	status := strings.ToLower(strings.TrimSpace(body.Status))
	if !slices.Contains(models.OrderStatuses, status) {
		return jsonError(c, fiber.StatusBadRequest, "invalid order status")
	}

	if err := h.db.UpdateOrderStatus(c.Context(), id, status); err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			return jsonError(c, fiber.StatusNotFound, "order not found")
		}
		h.logger.Error("failed to update order status", zap.Error(err), zap.Int64("order_id", id))
		return jsonError(c, fiber.StatusInternalServerError, "failed to update order")
	}

	h.logger.Info("order status updated", zap.Int64("order_id", id), zap.String("status", status))
	return jsonSuccess(c, fiber.Map{"id": id, "status": status})
}

// Export handles GET /admin/export/:kind.csv.
func (h *DashboardHandler) Export(c fiber.Ctx) error {
	kind := strings.TrimSuffix(c.Params("kind"), ".csv")

	var (
		rows [][]string
		err  error
	)
	switch kind {
	case ExportProducts:
		rows, err = h.productRows(c.Context())
	case ExportOrders:
		rows, err = h.orderRows(c.Context())
	case ExportChats:
		rows, err = h.chatRows(c.Context())
	default:
		return jsonError(c, fiber.StatusNotFound, "unknown export")
	}
	if err != nil {
		h.logger.Error("export failed", zap.Error(err), zap.String("kind", kind))
		return jsonError(c, fiber.StatusInternalServerError, "failed to export "+kind)
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to export "+kind)
	}

	filename := kind + "-" + h.now().In(h.cfg.Location()).Format("20060102") + ".csv"
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.SendString(buf.String())
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (h *DashboardHandler) productRows(ctx context.Context) ([][]string, error) {
	products, err := h.db.ExportProducts(ctx)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"id", "sku", "name", "category", "price", "unit", "stock", "active"}}
	for _, p := range products {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.SKU,
			p.Name,
			p.CategoryName,
			formatMoney(p.Price),
			p.Unit,
			strconv.Itoa(p.StockQuantity),
			strconv.FormatBool(p.IsActive),
		})
	}
	return rows, nil
}

func (h *DashboardHandler) orderRows(ctx context.Context) ([][]string, error) {
	orders, err := h.db.ExportOrders(ctx)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"id", "email", "phone", "status", "total", "shipping_address", "created_at"}}
	for _, o := range orders {
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			o.Email,
			o.Phone,
			o.Status,
			formatMoney(o.TotalAmount),
			o.ShippingAddress,
			o.CreatedAt.In(h.cfg.Location()).Format(time.RFC3339),
		})
	}
	return rows, nil
}

func (h *DashboardHandler) chatRows(ctx context.Context) ([][]string, error) {
	sessions, err := h.db.ExportChatSessions(ctx, h.now().Add(-chatExportWindow))
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"session_id", "channel", "status", "escalated", "escalation_reason", "messages", "created_at"}}
	for _, s := range sessions {
		rows = append(rows, []string{
			s.SessionID,
			s.Channel,
			s.Status,
			strconv.FormatBool(s.IsEscalated),
			s.EscalationReason,
			strconv.Itoa(s.MessageCount),
			s.CreatedAt.In(h.cfg.Location()).Format(time.RFC3339),
		})
	}
	return rows, nil
}
