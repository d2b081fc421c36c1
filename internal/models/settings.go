package models

import (
	"fmt"
	"time"
)

// Weekdays in display order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ClockTime is a wall-clock time of day without a date.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClockTime parses "HH:MM" or "HH:MM:SS".
func ParseClockTime(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("invalid time of day %q", s)
}

// ClockTimeOf returns the time of day of t.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// SinceMidnight returns the offset from midnight.
func (c ClockTime) SinceMidnight() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute + time.Duration(c.Second)*time.Second
}

// Format12h renders the time like "07:00 AM".
func (c ClockTime) Format12h() string {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, c.Second, 0, time.UTC).Format("03:04 PM")
}

// String renders the time as "HH:MM:SS".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// MarshalText implements encoding.TextMarshaler.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// BusinessHours is the opening schedule for one weekday.
type BusinessHours struct {
	ID        int64      `json:"id"`
	Day       string     `json:"day"` // lower-case weekday name
	OpenTime  *ClockTime `json:"open_time"`
	CloseTime *ClockTime `json:"close_time"`
	IsClosed  bool       `json:"is_closed"`
}

// CompanyInfo is the singleton company profile.
type CompanyInfo struct {
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"address" yaml:"address"`
	Phone       string `json:"phone" yaml:"phone"`
	Email       string `json:"email" yaml:"email"`
	Website     string `json:"website" yaml:"website"`
	Description string `json:"description" yaml:"description"`
	Services    string `json:"services" yaml:"services"`
	PricingInfo string `json:"pricing_info" yaml:"pricing_info"`
}

// ChatbotSettings is the singleton bot configuration.
type ChatbotSettings struct {
	WelcomeMessage      string  `json:"welcome_message" yaml:"welcome_message"`
	FallbackMessage     string  `json:"fallback_message" yaml:"fallback_message"`
	EscalationThreshold int     `json:"escalation_threshold" yaml:"escalation_threshold"`
	ResponseDelay       float64 `json:"response_delay" yaml:"response_delay"`
	WorkingHoursMessage string  `json:"working_hours_message" yaml:"working_hours_message"`
	MaxSessionDuration  int     `json:"max_session_duration" yaml:"max_session_duration"` // seconds
	EnableAnalytics     bool    `json:"enable_analytics" yaml:"enable_analytics"`
	EnableFeedback      bool    `json:"enable_feedback" yaml:"enable_feedback"`
	EnableNotifications bool    `json:"enable_notifications" yaml:"enable_notifications"`
}

// DefaultChatbotSettings mirrors the column defaults.
func DefaultChatbotSettings() ChatbotSettings {
	return ChatbotSettings{
		WelcomeMessage:      "Welcome to Riverway Company! How can I help you today?",
		FallbackMessage:     "I'm sorry, I didn't understand. Let me connect you with a human agent.",
		EscalationThreshold: 3,
		ResponseDelay:       1.0,
		WorkingHoursMessage: "We're currently outside business hours. Your message will be answered when we return.",
		MaxSessionDuration:  3600,
		EnableAnalytics:     true,
		EnableFeedback:      true,
		EnableNotifications: true,
	}
}

// FAQ categories
const (
	FAQGeneral  = "general"
	FAQProducts = "products"
	FAQServices = "services"
	FAQPricing  = "pricing"
	FAQHours    = "hours"
	FAQLocation = "location"
	FAQContact  = "contact"
)

// FAQCategories lists the FAQ categories staff can choose from.
var FAQCategories = []string{FAQGeneral, FAQProducts, FAQServices, FAQPricing, FAQHours, FAQLocation, FAQContact}

// FAQ is a stored question/answer pair with matching keywords.
type FAQ struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	Keywords  string    `json:"keywords"` // comma separated
	IsActive  bool      `json:"is_active"`
	ViewCount int       `json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
