package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"riverway/internal/models"
)

const hoursUnavailableMessage = "Please contact us for our business hours information."

// SettingsStore supplies the singleton configuration records. CompanyInfo and
// ChatbotSettings return nil without error when no record exists.
type SettingsStore interface {
	BusinessHours(ctx context.Context) ([]models.BusinessHours, error)
	CompanyInfo(ctx context.Context) (*models.CompanyInfo, error)
	ChatbotSettings(ctx context.Context) (*models.ChatbotSettings, error)
}

// IsBusinessHours reports whether the store is open now. A missing or closed
// day is closed; a lookup failure or incomplete record counts as open.
func (e *Engine) IsBusinessHours(ctx context.Context) bool {
	now := e.now().In(e.location)
	day := strings.ToLower(now.Weekday().String())

	hours, err := e.settings.BusinessHours(ctx)
	if err != nil {
		e.logger.Error("failed to check business hours", zap.Error(err))
		return true
	}

	var record *models.BusinessHours
	for i := range hours {
		if hours[i].Day == day {
			record = &hours[i]
			break
		}
	}
	if record == nil || record.IsClosed {
		return false
	}
	if record.OpenTime == nil || record.CloseTime == nil {
		e.logger.Warn("business hours record has no times", zap.String("day", day))
		return true
	}

	current := models.ClockTimeOf(now).SinceMidnight() + time.Duration(now.Nanosecond())
	return record.OpenTime.SinceMidnight() <= current && current <= record.CloseTime.SinceMidnight()
}

func (e *Engine) businessHoursResponse(ctx context.Context) string {
	hours, err := e.settings.BusinessHours(ctx)
	if err != nil {
		e.logger.Error("failed to load business hours", zap.Error(err))
		return hoursUnavailableMessage
	}
	if len(hours) == 0 {
		return hoursUnavailableMessage
	}

	var b strings.Builder
	b.WriteString("Our business hours are:\n")
	for _, h := range hours {
		day := capitalizeWords(h.Day)
		if h.IsClosed {
			fmt.Fprintf(&b, "• %s: Closed\n", day)
			continue
		}
		if h.OpenTime == nil || h.CloseTime == nil {
			e.logger.Warn("business hours record has no times", zap.String("day", h.Day))
			return hoursUnavailableMessage
		}
		fmt.Fprintf(&b, "• %s: %s - %s\n", day, h.OpenTime.Format12h(), h.CloseTime.Format12h())
	}

	return strings.TrimSpace(b.String())
}
