package server

import (
	"context"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"riverway/internal/chatbot"
	"riverway/internal/db"
	"riverway/internal/email"
	"riverway/internal/handlers"
	"riverway/internal/handlers/api"
	"riverway/internal/metrics"
	"riverway/internal/middleware"
)

// Dependencies are the components the routes are built from.
type Dependencies struct {
	DB          *db.DB
	Engine      *chatbot.Engine
	Settings    api.SettingsSource
	Invalidator api.SettingsInvalidator
	Notifier    *email.Notifier
	Metrics     *metrics.Recorder
	Checks      map[string]api.Pinger
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Dependencies) error {
	authMiddleware := middleware.NewAuthMiddleware(deps.DB)

	chatHandler := api.NewChatHandler(deps.DB, deps.Engine, deps.Notifier, deps.Settings, deps.Metrics, s.Cfg, s.Logger)
	storeHandler := api.NewStoreHandler(deps.DB, deps.Notifier, s.Logger)
	dashboardHandler := api.NewDashboardHandler(deps.DB, s.Cfg, s.Logger)
	userHandler := api.NewUserHandler(deps.DB, s.Logger)
	catalogAdmin := api.NewCatalogAdminHandler(deps.DB, s.Logger)
	settingsAdmin := api.NewSettingsAdminHandler(deps.DB, deps.Invalidator, s.Logger)
	healthHandler := api.NewHealthHandler(deps.Checks, s.Logger)
	widgetHandler := handlers.NewWidgetHandler(deps.Settings, s.Cfg, s.Logger)

	s.App.Get("/healthz", healthHandler.Live)
	s.App.Get("/readyz", healthHandler.Ready)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Sign-in is optional; the storefront and chat work for guests.
	if s.Cfg.OIDCIssuer != "" {
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.DB, s.Logger)
		if err != nil {
			return err
		}
		s.App.Get("/auth/login", authHandler.Login)
		s.App.Get("/auth/callback", authHandler.Callback)
		s.App.Get("/auth/logout", authHandler.Logout)
		s.App.Get("/auth/me", authMiddleware.OptionalAuth, authHandler.Me)
	} else {
		s.Logger.Warn("OIDC_ISSUER not set; sign-in, checkout and the staff area are unavailable")
	}

	// Chat widget API
	chat := s.App.Group("/chatbot", authMiddleware.OptionalAuth)
	chat.Get("/widget", widgetHandler.Widget)
	chat.Post("/api", chatLimiter(), chatHandler.Message)
	chat.Post("/feedback", chatHandler.Feedback)
	chat.Get("/history/:session_id", chatHandler.History)
	chat.Post("/reset", chatHandler.Reset)
	chat.Post("/contact-support", chatLimiter(), chatHandler.ContactSupport)
	chat.Post("/webhook/whatsapp", chatHandler.WhatsApp)
	chat.Post("/webhook/messenger", chatHandler.Messenger)
	chat.Get("/analytics", authMiddleware.RequireAuth, middleware.RequireStaff, chatHandler.Analytics)

	// Storefront
	store := s.App.Group("/api", authMiddleware.OptionalAuth)
	store.Get("/products", storeHandler.ListProducts)
	store.Get("/products/:id", storeHandler.GetProduct)
	store.Get("/categories", storeHandler.ListCategories)
	store.Get("/cart", storeHandler.GetCart)
	store.Post("/cart/items", storeHandler.AddCartItem)
	store.Put("/cart/items/:id", storeHandler.UpdateCartItem)
	store.Delete("/cart/items/:id", storeHandler.RemoveCartItem)
	store.Post("/checkout", authMiddleware.RequireAuth, storeHandler.Checkout)
	store.Get("/orders", authMiddleware.RequireAuth, storeHandler.ListOrders)
	store.Get("/orders/:id", authMiddleware.RequireAuth, storeHandler.GetOrder)
	store.Get("/profile", authMiddleware.RequireAuth, userHandler.Profile)
	store.Put("/profile", authMiddleware.RequireAuth, userHandler.UpdateProfile)

	// Staff area
	admin := s.App.Group("/admin", authMiddleware.RequireAuth, middleware.RequireStaff)
	admin.Get("/dashboard", dashboardHandler.Overview)
	admin.Get("/escalations", dashboardHandler.Escalations)
	admin.Post("/escalations/:id/resolve", dashboardHandler.ResolveEscalation)
	admin.Get("/export/:kind.csv", dashboardHandler.Export)
	admin.Get("/users", userHandler.List)
	admin.Post("/users/:id/role", userHandler.UpdateRole)

	admin.Get("/orders", catalogAdmin.ListOrders)
	admin.Get("/orders/:id", catalogAdmin.GetOrder)
	admin.Post("/orders/:id/status", dashboardHandler.UpdateOrderStatus)
	admin.Get("/products", catalogAdmin.ListProducts)
	admin.Post("/products", catalogAdmin.CreateProduct)
	admin.Get("/products/:id", catalogAdmin.GetProduct)
	admin.Put("/products/:id", catalogAdmin.UpdateProduct)
	admin.Delete("/products/:id", catalogAdmin.DeleteProduct)
	admin.Get("/categories", catalogAdmin.ListCategories)
	admin.Post("/categories", catalogAdmin.CreateCategory)
	admin.Put("/categories/:id", catalogAdmin.UpdateCategory)

	admin.Get("/faqs", settingsAdmin.ListFAQs)
	admin.Post("/faqs", settingsAdmin.CreateFAQ)
	admin.Put("/faqs/:id", settingsAdmin.UpdateFAQ)
	admin.Delete("/faqs/:id", settingsAdmin.DeleteFAQ)
	admin.Post("/faqs/:id/toggle", settingsAdmin.ToggleFAQ)
	admin.Get("/settings", settingsAdmin.Settings)
	admin.Put("/settings/hours", settingsAdmin.UpdateBusinessHours)
	admin.Put("/settings/company", settingsAdmin.UpdateCompanyInfo)
	admin.Put("/settings/chatbot", settingsAdmin.UpdateChatbotSettings)

	s.Logger.Info("routes registered", zap.Int("handlers", int(s.App.HandlersCount())))
	return nil
}
