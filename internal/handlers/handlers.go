package handlers

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"riverway/internal/config"
	"riverway/internal/handlers/api"
	"riverway/internal/middleware"
	"riverway/internal/models"
)

// WidgetHandler renders the embeddable chat widget page.
type WidgetHandler struct {
	settings api.SettingsSource
	cfg      *config.Config
	logger   *zap.Logger
}

// NewWidgetHandler creates a new widget handler.
func NewWidgetHandler(settings api.SettingsSource, cfg *config.Config, logger *zap.Logger) *WidgetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WidgetHandler{settings: settings, cfg: cfg, logger: logger.Named("widget")}
}

// Widget handles GET /chatbot/widget.
func (h *WidgetHandler) Widget(c fiber.Ctx) error {
	settings, err := h.settings.ChatbotSettings(c.Context())
	if err != nil || settings == nil {
		if err != nil {
			h.logger.Warn("using default chatbot settings", zap.Error(err))
		}
		defaults := models.DefaultChatbotSettings()
		settings = &defaults
	}

	data := fiber.Map{
		"Title":          h.cfg.BrandName + " Support",
		"BrandName":      h.cfg.BrandName,
		"WelcomeMessage": settings.WelcomeMessage,
		"EnableFeedback": settings.EnableFeedback,
		"Ratings":        []int{1, 2, 3, 4, 5},
		"Authenticated":  false,
	}
	if user := middleware.CurrentUser(c); user != nil {
		data["Authenticated"] = true
		data["UserName"] = user.DisplayName()
	}
	return c.Render("widget", data)
}
