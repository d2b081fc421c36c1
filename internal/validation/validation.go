package validation

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"riverway/internal/models"
)

// EmailPattern is the address format accepted on contact and checkout forms.
var EmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// phonePattern allows an optional leading plus followed by digits and the
// usual separators.
var phonePattern = regexp.MustCompile(`^\+?[0-9(][0-9 ().-]{5,22}[0-9]$`)

const (
	maxNameLength        = 100
	maxDescriptionLength = 5000
	maxAddressLength     = 500
	maxMessageLength     = 2000
	maxQuestionLength    = 500
)

// ValidateEmail checks an email address.
func ValidateEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	return EmailPattern.MatchString(email)
}

// ValidatePhone checks a phone number such as "+233 55 845 9119".
func ValidatePhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

// NormalizeContactRequest trims every field and lowercases the priority.
func NormalizeContactRequest(req *models.ContactRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	req.Description = strings.TrimSpace(req.Description)
}

// ValidateContactRequest checks a normalized contact-support form.
func ValidateContactRequest(req *models.ContactRequest) (bool, string) {
	if req.Name == "" || req.Email == "" || req.Priority == "" || req.Description == "" {
		return false, "All fields are required"
	}
	if !ValidateEmail(req.Email) {
		return false, "Please enter a valid email address"
	}
	if utf8.RuneCountInString(req.Name) > maxNameLength {
		return false, "Name is too long"
	}
	if !slices.Contains(models.ContactPriorities, req.Priority) {
		return false, "Priority must be one of low, medium, high or critical"
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return false, "Description is too long"
	}
	return true, ""
}

// ValidateCheckout checks the contact and address details of an order.
// A missing billing address defaults to the shipping address.
func ValidateCheckout(req *models.CheckoutRequest) (bool, string) {
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	req.BillingAddress = strings.TrimSpace(req.BillingAddress)

	if !ValidateEmail(req.Email) {
		return false, "A valid email address is required"
	}
	if !ValidatePhone(req.Phone) {
		return false, "A valid phone number is required"
	}
	if req.ShippingAddress == "" {
		return false, "Shipping address is required"
	}
	if len(req.ShippingAddress) > maxAddressLength || len(req.BillingAddress) > maxAddressLength {
		return false, "Address is too long"
	}
	if req.BillingAddress == "" {
		req.BillingAddress = req.ShippingAddress
	}
	return true, ""
}

// ValidateRating checks a 1-5 star feedback rating.
func ValidateRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// ValidateChannel reports whether channel is a known chat channel.
func ValidateChannel(channel string) bool {
	switch channel {
	case models.ChannelWebsite, models.ChannelWhatsApp, models.ChannelMessenger, models.ChannelSMS:
		return true
	}
	return false
}

// TruncateMessage caps an inbound chat message.
func TruncateMessage(msg string) string {
	if utf8.RuneCountInString(msg) <= maxMessageLength {
		return msg
	}
	return string([]rune(msg)[:maxMessageLength])
}

// NormalizeFAQ trims an FAQ, tidies its keyword list and defaults the
// category to general.
func NormalizeFAQ(f *models.FAQ) {
	f.Question = strings.TrimSpace(f.Question)
	f.Answer = strings.TrimSpace(f.Answer)
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	if f.Category == "" {
		f.Category = models.FAQGeneral
	}

	var keywords []string
	for _, k := range strings.Split(f.Keywords, ",") {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	f.Keywords = strings.Join(keywords, ", ")
}

// ValidateFAQ checks a normalized FAQ.
func ValidateFAQ(f *models.FAQ) (bool, string) {
	if f.Question == "" || f.Answer == "" {
		return false, "Question and answer are required"
	}
	if utf8.RuneCountInString(f.Question) > maxQuestionLength {
		return false, "Question is too long"
	}
	if utf8.RuneCountInString(f.Answer) > maxDescriptionLength {
		return false, "Answer is too long"
	}
	if !slices.Contains(models.FAQCategories, f.Category) {
		return false, "Unknown FAQ category"
	}
	return true, ""
}

// ValidateProduct trims a product form and checks it. An empty unit defaults
// to piece.
func ValidateProduct(p *models.Product) (bool, string) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	p.Description = strings.TrimSpace(p.Description)
	p.Unit = strings.ToLower(strings.TrimSpace(p.Unit))
	if p.Unit == "" {
		p.Unit = models.UnitPiece
	}

	switch {
	case p.Name == "":
		return false, "Product name is required"
	case utf8.RuneCountInString(p.Name) > maxNameLength:
		return false, "Product name is too long"
	case p.SKU == "":
		return false, "SKU is required"
	case p.CategoryID <= 0:
		return false, "Category is required"
	case p.Price < 0:
		return false, "Price cannot be negative"
	case p.StockQuantity < 0:
		return false, "Stock quantity cannot be negative"
	case !slices.Contains(models.ProductUnits, p.Unit):
		return false, "Unknown unit"
	case utf8.RuneCountInString(p.Description) > maxDescriptionLength:
		return false, "Description is too long"
	}
	return true, ""
}

// ValidateCategory trims a category form and checks it.
func ValidateCategory(c *models.Category) (bool, string) {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	if c.Name == "" {
		return false, "Category name is required"
	}
	if utf8.RuneCountInString(c.Name) > maxNameLength {
		return false, "Category name is too long"
	}
	return true, ""
}

// ValidateCompanyInfo trims the company profile and checks it. Contact
// fields are optional but must be well formed when present.
func ValidateCompanyInfo(c *models.CompanyInfo) (bool, string) {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Website = strings.TrimSpace(c.Website)

	if c.Name == "" {
		return false, "Company name is required"
	}
	if c.Email != "" && !ValidateEmail(c.Email) {
		return false, "Please enter a valid email address"
	}
	if c.Phone != "" && !ValidatePhone(c.Phone) {
		return false, "Please enter a valid phone number"
	}
	return true, ""
}

// ValidateChatbotSettings checks the bot configuration form.
func ValidateChatbotSettings(s *models.ChatbotSettings) (bool, string) {
	s.WelcomeMessage = strings.TrimSpace(s.WelcomeMessage)
	s.FallbackMessage = strings.TrimSpace(s.FallbackMessage)
	s.WorkingHoursMessage = strings.TrimSpace(s.WorkingHoursMessage)

	switch {
	case s.WelcomeMessage == "" || s.FallbackMessage == "":
		return false, "Welcome and fallback messages are required"
	case s.EscalationThreshold < 1:
		return false, "Escalation threshold must be at least 1"
	case s.ResponseDelay < 0:
		return false, "Response delay cannot be negative"
	case s.MaxSessionDuration <= 0:
		return false, "Maximum session duration must be positive"
	}
	return true, ""
}

// ValidateBusinessHours checks one weekday's schedule. Open days need both
// times, and the shop must close after it opens on the same day.
func ValidateBusinessHours(h *models.BusinessHours) (bool, string) {
	h.Day = strings.ToLower(strings.TrimSpace(h.Day))
	if !slices.Contains(models.Weekdays, h.Day) {
		return false, "Unknown weekday"
	}
	if h.IsClosed {
		return true, ""
	}
	if h.OpenTime == nil || h.CloseTime == nil {
		return false, "Opening and closing times are required for open days"
	}
	if h.OpenTime.SinceMidnight() >= h.CloseTime.SinceMidnight() {
		return false, "Closing time must be after opening time"
	}
	return true, ""
}
