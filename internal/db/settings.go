package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"riverway/internal/models"
)

func clockFromPg(t pgtype.Time) *models.ClockTime {
	if !t.Valid {
		return nil
	}
	c := models.ClockTimeOf(time.UnixMicro(t.Microseconds).UTC())
	return &c
}

func clockToPg(c *models.ClockTime) pgtype.Time {
	if c == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: c.SinceMidnight().Microseconds(), Valid: true}
}

// BusinessHours implements chatbot.SettingsStore.
func (d *DB) BusinessHours(ctx context.Context) ([]models.BusinessHours, error) {
	query := `
		SELECT id, day, open_time, close_time, is_closed
		FROM business_hours
		ORDER BY array_position(ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'], day)
	`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []models.BusinessHours
	for rows.Next() {
		var (
			h               models.BusinessHours
			openAt, closeAt pgtype.Time
		)
		if err := rows.Scan(&h.ID, &h.Day, &openAt, &closeAt, &h.IsClosed); err != nil {
			return nil, err
		}
		h.OpenTime = clockFromPg(openAt)
		h.CloseTime = clockFromPg(closeAt)
		hours = append(hours, h)
	}

	return hours, rows.Err()
}

// UpsertBusinessHours writes one weekday's schedule.
func (d *DB) UpsertBusinessHours(ctx context.Context, h *models.BusinessHours) error {
	return d.Pool.QueryRow(ctx, `
		INSERT INTO business_hours (day, open_time, close_time, is_closed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE SET
			open_time = EXCLUDED.open_time,
			close_time = EXCLUDED.close_time,
			is_closed = EXCLUDED.is_closed
		RETURNING id
	`, h.Day, clockToPg(h.OpenTime), clockToPg(h.CloseTime), h.IsClosed).Scan(&h.ID)
}

// CompanyInfo implements chatbot.SettingsStore.
func (d *DB) CompanyInfo(ctx context.Context) (*models.CompanyInfo, error) {
	var c models.CompanyInfo
	err := d.Pool.QueryRow(ctx, `
		SELECT name, address, phone, email, website, description, services, pricing_info
		FROM company_info WHERE id = 1
	`).Scan(&c.Name, &c.Address, &c.Phone, &c.Email, &c.Website, &c.Description, &c.Services, &c.PricingInfo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCompanyInfo replaces the company profile.
func (d *DB) SaveCompanyInfo(ctx context.Context, c *models.CompanyInfo) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO company_info (id, name, address, phone, email, website, description, services, pricing_info)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			website = EXCLUDED.website,
			description = EXCLUDED.description,
			services = EXCLUDED.services,
			pricing_info = EXCLUDED.pricing_info,
			updated_at = NOW()
	`, c.Name, c.Address, c.Phone, c.Email, c.Website, c.Description, c.Services, c.PricingInfo)
	return err
}

// ChatbotSettings implements chatbot.SettingsStore.
func (d *DB) ChatbotSettings(ctx context.Context) (*models.ChatbotSettings, error) {
	var s models.ChatbotSettings
	err := d.Pool.QueryRow(ctx, `
		SELECT welcome_message, fallback_message, escalation_threshold, response_delay,
		       working_hours_message, max_session_duration, enable_analytics,
		       enable_feedback, enable_notifications
		FROM chatbot_settings WHERE id = 1
	`).Scan(&s.WelcomeMessage, &s.FallbackMessage, &s.EscalationThreshold, &s.ResponseDelay,
		&s.WorkingHoursMessage, &s.MaxSessionDuration, &s.EnableAnalytics,
		&s.EnableFeedback, &s.EnableNotifications)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveChatbotSettings replaces the bot configuration.
func (d *DB) SaveChatbotSettings(ctx context.Context, s *models.ChatbotSettings) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO chatbot_settings (id, welcome_message, fallback_message, escalation_threshold, response_delay,
			working_hours_message, max_session_duration, enable_analytics, enable_feedback, enable_notifications)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			welcome_message = EXCLUDED.welcome_message,
			fallback_message = EXCLUDED.fallback_message,
			escalation_threshold = EXCLUDED.escalation_threshold,
			response_delay = EXCLUDED.response_delay,
			working_hours_message = EXCLUDED.working_hours_message,
			max_session_duration = EXCLUDED.max_session_duration,
			enable_analytics = EXCLUDED.enable_analytics,
			enable_feedback = EXCLUDED.enable_feedback,
			enable_notifications = EXCLUDED.enable_notifications,
			updated_at = NOW()
	`, s.WelcomeMessage, s.FallbackMessage, s.EscalationThreshold, s.ResponseDelay,
		s.WorkingHoursMessage, s.MaxSessionDuration, s.EnableAnalytics, s.EnableFeedback, s.EnableNotifications)
	return err
}
