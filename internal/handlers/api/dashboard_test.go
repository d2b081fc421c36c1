package api

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"riverway/internal/db"
	"riverway/internal/middleware"
	"riverway/internal/models"
)

type fakeDashboardDB struct {
	escalations    []models.Escalation
	unresolvedOnly bool
	resolved       map[int64]uuid.UUID
	notes          string
	since          time.Time
	orderStatus    map[int64]string
}

func (f *fakeDashboardDB) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	if orderID != 9 {
		return db.ErrOrderNotFound
	}
	if f.orderStatus == nil {
		f.orderStatus = make(map[int64]string)
	}
	f.orderStatus[orderID] = status
	return nil
}

func (f *fakeDashboardDB) Dashboard(_ context.Context, now time.Time) (*db.Dashboard, error) {
	return &db.Dashboard{TotalProducts: 24, OpenEscalations: 1, ChatActivity: []db.DailyCount{{Date: now, Count: 3}}}, nil
}

func (f *fakeDashboardDB) ListEscalations(_ context.Context, unresolvedOnly bool) ([]models.Escalation, error) {
	f.unresolvedOnly = unresolvedOnly
	return f.escalations, nil
}

func (f *fakeDashboardDB) ResolveEscalation(_ context.Context, id int64, agentID uuid.UUID, notes string) error {
	if id != 1 {
		return db.ErrEscalationNotFound
	}
	if f.resolved == nil {
		f.resolved = make(map[int64]uuid.UUID)
	}
	f.resolved[id] = agentID
	f.notes = notes
	return nil
}

func (f *fakeDashboardDB) ExportProducts(context.Context) ([]models.Product, error) {
	return []models.Product{
		{ID: 1, SKU: "HW-HAM-001", Name: "Stanley Claw Hammer 16oz", CategoryName: "Hardware Products", Price: 45, Unit: "piece", StockQuantity: 25, IsActive: true},
		{ID: 2, SKU: "HW-SCR-001", Name: "Screwdriver Set, 5-piece", CategoryName: "Hardware Products", Price: 35.5, Unit: "piece", StockQuantity: 0, IsActive: false},
	}, nil
}

func (f *fakeDashboardDB) ExportOrders(context.Context) ([]models.Order, error) {
	return []models.Order{{ID: 9, Email: "ama@example.com", Status: models.OrderShipped, TotalAmount: 153, ShippingAddress: "Tudu, Accra", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}}, nil
}

func (f *fakeDashboardDB) ExportChatSessions(_ context.Context, since time.Time) ([]db.ChatSessionSummary, error) {
	f.since = since
	return []db.ChatSessionSummary{{
		ChatSession:  models.ChatSession{SessionID: "abc", Channel: "website", Status: "escalated", IsEscalated: true, EscalationReason: "Customer complaint", CreatedAt: time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)},
		MessageCount: 6,
	}}, nil
}

func newDashboardFixture(t *testing.T, user *models.User) (*fiber.App, *fakeDashboardDB) {
	t.Helper()
	store := &fakeDashboardDB{escalations: []models.Escalation{{ID: 1, ChatSessionID: "abc", Priority: models.PriorityMedium}}}
	h := NewDashboardHandler(store, testConfig(), zaptest.NewLogger(t))
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	app := newTestApp(user)
	admin := app.Group("/admin", middleware.RequireStaff)
	admin.Get("/dashboard", h.Overview)
	admin.Get("/escalations", h.Escalations)
	admin.Post("/escalations/:id/resolve", h.ResolveEscalation)
	admin.Post("/orders/:id/status", h.UpdateOrderStatus)
	admin.Get("/export/:kind.csv", h.Export)
	return app, store
}

func TestDashboard_StaffOnly(t *testing.T) {
	app, _ := newDashboardFixture(t, newUser(models.RoleCustomer))

	resp := doRequest(t, app, http.MethodGet, "/admin/dashboard", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Permission denied", resp.Body["error"])
}

func TestDashboard_Overview(t *testing.T) {
	app, _ := newDashboardFixture(t, newUser(models.RoleStaff))

	resp := doRequest(t, app, http.MethodGet, "/admin/dashboard", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	data := resp.Body["data"].(map[string]any)
	assert.EqualValues(t, 24, data["total_products"])
	assert.EqualValues(t, 1, data["open_escalations"])
}

func TestEscalations(t *testing.T) {
	app, store := newDashboardFixture(t, newUser(models.RoleAdmin))

	resp := doRequest(t, app, http.MethodGet, "/admin/escalations", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, resp.Body["data"], 1)
	assert.True(t, store.unresolvedOnly)

	doRequest(t, app, http.MethodGet, "/admin/escalations?all=true", nil, nil)
	assert.False(t, store.unresolvedOnly)
}

func TestResolveEscalation(t *testing.T) {
	staff := newUser(models.RoleStaff)
	app, store := newDashboardFixture(t, staff)

	resp := doRequest(t, app, http.MethodPost, "/admin/escalations/1/resolve", map[string]string{"notes": "  Called the customer back "}, nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)
	assert.Equal(t, staff.ID, store.resolved[1])
	assert.Equal(t, "Called the customer back", store.notes)

	resp = doRequest(t, app, http.MethodPost, "/admin/escalations/2/resolve", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = doRequest(t, app, http.MethodPost, "/admin/escalations/x/resolve", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func readCSV(t *testing.T, raw string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExport(t *testing.T) {
	app, store := newDashboardFixture(t, newUser(models.RoleStaff))

	req := doRequest(t, app, http.MethodGet, "/admin/export/products.csv", nil, nil)
	require.Equal(t, http.StatusOK, req.Status)
	products := readCSV(t, req.Raw)
	require.Len(t, products, 3)
	assert.Equal(t, []string{"id", "sku", "name", "category", "price", "unit", "stock", "active"}, products[0])
	assert.Equal(t, []string{"2", "HW-SCR-001", "Screwdriver Set, 5-piece", "Hardware Products", "35.50", "piece", "0", "false"}, products[2])

	req = doRequest(t, app, http.MethodGet, "/admin/export/orders.csv", nil, nil)
	require.Equal(t, http.StatusOK, req.Status)
	orders := readCSV(t, req.Raw)
	require.Len(t, orders, 2)
	assert.Equal(t, "153.00", orders[1][4])
	assert.Equal(t, "2024-05-01T09:00:00Z", orders[1][6])

	req = doRequest(t, app, http.MethodGet, "/admin/export/chats.csv", nil, nil)
	require.Equal(t, http.StatusOK, req.Status)
	chats := readCSV(t, req.Raw)
	require.Len(t, chats, 2)
	assert.Equal(t, []string{"abc", "website", "escalated", "true", "Customer complaint", "6", "2024-04-30T08:00:00Z"}, chats[1])
	assert.Equal(t, time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC), store.since)

	req = doRequest(t, app, http.MethodGet, "/admin/export/users.csv", nil, nil)
	assert.Equal(t, http.StatusNotFound, req.Status)
}

func TestExport_Headers(t *testing.T) {
	app, _ := newDashboardFixture(t, newUser(models.RoleStaff))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/export/orders.csv", nil))
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="orders-20240501.csv"`, resp.Header.Get("Content-Disposition"))
}

func TestUpdateOrderStatus(t *testing.T) {
	app, store := newDashboardFixture(t, newUser(models.RoleStaff))

	tests := []struct {
		name   string
		id     string
		status string
		want   int
	}{
		{"shipped", "9", " Shipped ", http.StatusOK},
		{"unknown status", "9", "lost", http.StatusBadRequest},
		{"bad id", "x", models.OrderDelivered, http.StatusBadRequest},
		{"missing order", "10", models.OrderDelivered, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, app, http.MethodPost, "/admin/orders/"+tt.id+"/status", map[string]string{"status": tt.status}, nil)
			assert.Equal(t, tt.want, resp.Status, resp.Raw)
		})
	}
	assert.Equal(t, models.OrderShipped, store.orderStatus[9])
}
