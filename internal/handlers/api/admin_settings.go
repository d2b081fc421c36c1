package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"riverway/internal/db"
	"riverway/internal/models"
	"riverway/internal/validation"
)

// SettingsAdminDB is the persistence behind the staff FAQ and settings screens.
type SettingsAdminDB interface {
	ListFAQs(ctx context.Context, category string) ([]models.FAQ, error)
	GetFAQ(ctx context.Context, id int64) (*models.FAQ, error)
	CreateFAQ(ctx context.Context, f *models.FAQ) error
	UpdateFAQ(ctx context.Context, f *models.FAQ) error
	DeleteFAQ(ctx context.Context, id int64) error
	ToggleFAQ(ctx context.Context, id int64) (bool, error)

	BusinessHours(ctx context.Context) ([]models.BusinessHours, error)
	UpsertBusinessHours(ctx context.Context, h *models.BusinessHours) error
	CompanyInfo(ctx context.Context) (*models.CompanyInfo, error)
	SaveCompanyInfo(ctx context.Context, c *models.CompanyInfo) error
	ChatbotSettings(ctx context.Context) (*models.ChatbotSettings, error)
	SaveChatbotSettings(ctx context.Context, s *models.ChatbotSettings) error
}

// SettingsInvalidator drops cached settings so the chatbot sees an edit on
// its next turn.
type SettingsInvalidator interface {
	Invalidate()
}

// SettingsAdminHandler lets staff manage FAQs, business hours, the company
// profile and the chatbot configuration.
type SettingsAdminHandler struct {
	db     SettingsAdminDB
	cache  SettingsInvalidator
	logger *zap.Logger
}

// NewSettingsAdminHandler creates a new settings admin handler. cache may be nil.
func NewSettingsAdminHandler(database SettingsAdminDB, cache SettingsInvalidator, logger *zap.Logger) *SettingsAdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsAdminHandler{db: database, cache: cache, logger: logger.Named("settings_admin")}
}

func (h *SettingsAdminHandler) invalidate() {
	if h.cache != nil {
		h.cache.Invalidate()
	}
}

func idParam(c fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func faqError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, db.ErrFAQNotFound):
		return jsonError(c, fiber.StatusNotFound, "faq not found")
	case errors.Is(err, db.ErrFAQExists):
		return jsonError(c, fiber.StatusConflict, err.Error())
	}
	return jsonError(c, fiber.StatusInternalServerError, "failed to save faq")
}

// ListFAQs handles GET /admin/faqs. ?category= narrows the list.
func (h *SettingsAdminHandler) ListFAQs(c fiber.Ctx) error {
	faqs, err := h.db.ListFAQs(c.Context(), c.Query("category"))
	if err != nil {
		h.logger.Error("failed to list faqs", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load faqs")
	}
	if faqs == nil {
		faqs = []models.FAQ{}
	}
	return jsonSuccess(c, faqs)
}

// CreateFAQ handles POST /admin/faqs. New FAQs are active unless the body
// says otherwise.
func (h *SettingsAdminHandler) CreateFAQ(c fiber.Ctx) error {
	faq := models.FAQ{IsActive: true}
	if err := json.Unmarshal(c.Body(), &faq); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	faq.ID = 0

	validation.NormalizeFAQ(&faq)
	if ok, msg := validation.ValidateFAQ(&faq); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	if err := h.db.CreateFAQ(c.Context(), &faq); err != nil {
		if !errors.Is(err, db.ErrFAQExists) {
			h.logger.Error("failed to create faq", zap.Error(err))
		}
		return faqError(c, err)
	}

	h.logger.Info("faq created", zap.Int64("faq_id", faq.ID), zap.String("category", faq.Category))
	return jsonCreated(c, faq)
}

// UpdateFAQ handles PUT /admin/faqs/:id. Fields missing from the body keep
// their stored values.
func (h *SettingsAdminHandler) UpdateFAQ(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid faq id")
	}

	faq, err := h.db.GetFAQ(c.Context(), id)
	if err != nil {
		if !errors.Is(err, db.ErrFAQNotFound) {
			h.logger.Error("failed to load faq", zap.Error(err), zap.Int64("faq_id", id))
		}
		return faqError(c, err)
	}
	if err := json.Unmarshal(c.Body(), faq); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	faq.ID = id

	validation.NormalizeFAQ(faq)
	if ok, msg := validation.ValidateFAQ(faq); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	if err := h.db.UpdateFAQ(c.Context(), faq); err != nil {
		if !errors.Is(err, db.ErrFAQExists) && !errors.Is(err, db.ErrFAQNotFound) {
			h.logger.Error("failed to update faq", zap.Error(err), zap.Int64("faq_id", id))
		}
		return faqError(c, err)
	}
	return jsonSuccess(c, faq)
}

// DeleteFAQ handles DELETE /admin/faqs/:id.
func (h *SettingsAdminHandler) DeleteFAQ(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid faq id")
	}
	if err := h.db.DeleteFAQ(c.Context(), id); err != nil {
		if !errors.Is(err, db.ErrFAQNotFound) {
			h.logger.Error("failed to delete faq", zap.Error(err), zap.Int64("faq_id", id))
		}
		return faqError(c, err)
	}

	h.logger.Info("faq deleted", zap.Int64("faq_id", id))
	return jsonSuccess(c, fiber.Map{"id": id, "deleted": true})
}

// ToggleFAQ handles POST /admin/faqs/:id/toggle.
func (h *SettingsAdminHandler) ToggleFAQ(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid faq id")
	}
	active, err := h.db.ToggleFAQ(c.Context(), id)
	if err != nil {
		if !errors.Is(err, db.ErrFAQNotFound) {
			h.logger.Error("failed to toggle faq", zap.Error(err), zap.Int64("faq_id", id))
		}
		return faqError(c, err)
	}
	return jsonSuccess(c, fiber.Map{"id": id, "is_active": active})
}

// settingsView is everything on the staff settings screen.
type settingsView struct {
	BusinessHours []models.BusinessHours  `json:"business_hours"`
	Company       *models.CompanyInfo     `json:"company"`
	Chatbot       *models.ChatbotSettings `json:"chatbot"`
}

// companyOrEmpty returns the stored profile, or an empty one before the first save.
func (h *SettingsAdminHandler) companyOrEmpty(ctx context.Context) (*models.CompanyInfo, error) {
	info, err := h.db.CompanyInfo(ctx)
	if errors.Is(err, db.ErrSettingsNotFound) {
		return &models.CompanyInfo{}, nil
	}
	return info, err
}

// chatbotOrDefaults returns the stored configuration, or the column defaults
// before the first save.
func (h *SettingsAdminHandler) chatbotOrDefaults(ctx context.Context) (*models.ChatbotSettings, error) {
	s, err := h.db.ChatbotSettings(ctx)
	if errors.Is(err, db.ErrSettingsNotFound) {
		defaults := models.DefaultChatbotSettings()
		return &defaults, nil
	}
	return s, err
}

// Settings handles GET /admin/settings. It reads the database directly so
// staff never see a stale cached copy.
func (h *SettingsAdminHandler) Settings(c fiber.Ctx) error {
	var (
		view settingsView
		err  error
	)
	if view.BusinessHours, err = h.db.BusinessHours(c.Context()); err == nil {
		if view.Company, err = h.companyOrEmpty(c.Context()); err == nil {
			view.Chatbot, err = h.chatbotOrDefaults(c.Context())
		}
	}
	if err != nil {
		h.logger.Error("failed to load settings", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load settings")
	}
	if view.BusinessHours == nil {
		view.BusinessHours = []models.BusinessHours{}
	}
	return jsonSuccess(c, view)
}

// UpdateBusinessHours handles PUT /admin/settings/hours. The body is a list
// of weekday schedules; days not listed are left unchanged. Nothing is
// written unless every entry is valid.
func (h *SettingsAdminHandler) UpdateBusinessHours(c fiber.Ctx) error {
	var hours []models.BusinessHours
	if err := json.Unmarshal(c.Body(), &hours); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(hours) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "at least one day is required")
	}
	for i := range hours {
		if ok, msg := validation.ValidateBusinessHours(&hours[i]); !ok {
			return jsonError(c, fiber.StatusBadRequest, msg)
		}
	}

	for i := range hours {
		if err := h.db.UpsertBusinessHours(c.Context(), &hours[i]); err != nil {
			h.logger.Error("failed to save business hours", zap.Error(err), zap.String("day", hours[i].Day))
			return jsonError(c, fiber.StatusInternalServerError, "failed to save business hours")
		}
	}
	h.invalidate()

	saved, err := h.db.BusinessHours(c.Context())
	if err != nil {
		h.logger.Error("failed to reload business hours", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load business hours")
	}
	h.logger.Info("business hours updated", zap.Int("days", len(hours)))
	return jsonSuccess(c, saved)
}

// UpdateCompanyInfo handles PUT /admin/settings/company. Fields missing from
// the body keep their stored values.
func (h *SettingsAdminHandler) UpdateCompanyInfo(c fiber.Ctx) error {
	info, err := h.companyOrEmpty(c.Context())
	if err != nil {
		h.logger.Error("failed to load company info", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load company info")
	}
	if err := json.Unmarshal(c.Body(), info); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if ok, msg := validation.ValidateCompanyInfo(info); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	if err := h.db.SaveCompanyInfo(c.Context(), info); err != nil {
		h.logger.Error("failed to save company info", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to save company info")
	}
	h.invalidate()

	h.logger.Info("company info updated")
	return jsonSuccess(c, info)
}

// UpdateChatbotSettings handles PUT /admin/settings/chatbot. Fields missing
// from the body keep their stored values.
func (h *SettingsAdminHandler) UpdateChatbotSettings(c fiber.Ctx) error {
	settings, err := h.chatbotOrDefaults(c.Context())
	if err != nil {
		h.logger.Error("failed to load chatbot settings", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to load chatbot settings")
	}
	if err := json.Unmarshal(c.Body(), settings); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if ok, msg := validation.ValidateChatbotSettings(settings); !ok {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	if err := h.db.SaveChatbotSettings(c.Context(), settings); err != nil {
		h.logger.Error("failed to save chatbot settings", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to save chatbot settings")
	}
	h.invalidate()

	h.logger.Info("chatbot settings updated",
		zap.Int("escalation_threshold", settings.EscalationThreshold),
		zap.Bool("enable_feedback", settings.EnableFeedback),
	)
	return jsonSuccess(c, settings)
}
