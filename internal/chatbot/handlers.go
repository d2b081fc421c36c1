package chatbot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"riverway/internal/models"
)

const (
	defaultWelcomeMessage      = "Welcome to Riverway Company! I'm here to help you find the perfect products and answer any questions you have."
	defaultFallbackMessage     = "I'm sorry, I didn't understand. Let me connect you with a human agent."
	defaultWorkingHoursMessage = "We're currently outside business hours. Your message will be answered when we return."
	newGuestGreeting           = "Hi there. How can I help you today?"

	complaintMessage = "I sincerely apologize for any inconvenience you've experienced. Let me immediately connect you with one of our customer service representatives who will personally address your concern and work to resolve this issue promptly."
	complaintReason  = "Customer complaint requiring immediate human attention"
	bookingMessage   = "I'd be happy to help you schedule an appointment. Let me connect you with our booking specialist."
	bookingReason    = "Booking request requiring human assistance"

	availabilityLeadIn   = "Let me check our current inventory for you.\n\n"
	availabilityQuestion = "I'd be happy to check product availability for you. What specific construction material or product are you looking for? I can provide real-time stock information, pricing, and delivery options."
	priceLeadIn          = "Here's our current pricing information:\n\n"
	priceQuestion        = "I can provide detailed pricing for all our products. What specific products are you interested in? I can also help you get bulk pricing or project quotes if you need larger quantities."

	orderTrackingMessage = "I can help you track your order. Please provide your order number, or I can connect you with our customer service team who can assist you with order tracking and delivery information."
	rephraseMessage      = "I want to make sure I give you the most helpful information possible. Could you please rephrase your question or be more specific? I can assist you with our products, pricing, availability, services, business hours, location, or any other questions about Riverway Company."
)

// settingsOrDefault returns the stored chatbot settings, or the defaults when
// none exist or the lookup fails.
func (e *Engine) settingsOrDefault(ctx context.Context) models.ChatbotSettings {
	s, err := e.settings.ChatbotSettings(ctx)
	if err != nil {
		e.logger.Error("failed to load chatbot settings", zap.Error(err))
	}
	if s == nil {
		return models.DefaultChatbotSettings()
	}
	return *s
}

func (e *Engine) handleGreeting(ctx context.Context, t *turn) {
	welcome := defaultWelcomeMessage
	if s, err := e.settings.ChatbotSettings(ctx); err != nil {
		e.logger.Error("failed to load chatbot settings", zap.Error(err))
	} else if s != nil && s.WelcomeMessage != "" {
		welcome = s.WelcomeMessage
	}

	u := t.req.User
	switch {
	case u != nil && u.IsAuthenticated:
		t.resp.Message = fmt.Sprintf("Hello %s! %s", nameOr(u.Username, "there"), welcome)
		t.resp.GreetingType = GreetingReturningUser
	case u != nil && u.IsGuest && u.HasName:
		t.resp.Message = fmt.Sprintf("Hello %s! %s", u.Username, welcome)
		t.resp.GreetingType = GreetingReturningGuest
	case u != nil && u.IsGuest:
		t.resp.Message = newGuestGreeting
		t.resp.GreetingType = GreetingNewGuest
		t.resp.CollectingName = true
	default:
		t.resp.Message = welcome
		t.resp.GreetingType = GreetingNewUser
	}
}

func (e *Engine) handleBusinessHours(ctx context.Context, t *turn) {
	t.resp.Message = e.businessHoursResponse(ctx)
}

func (e *Engine) applyProducts(t *turn, leadIn string, result ProductResult) {
	t.resp.Message = leadIn + result.Message
	t.resp.Products = result.Products
	if len(result.SuggestedActions) > 0 {
		t.resp.SuggestedActions = result.SuggestedActions
	}
}

func (e *Engine) handleProducts(ctx context.Context, t *turn) {
	e.applyProducts(t, "", e.products.Search(ctx, t.req.Message, t.entities))
}

func (e *Engine) handleCompanyInfo(ctx context.Context, t *turn) {
	t.resp.Message = e.companyInfoResponse(ctx, t.intent)
}

func (e *Engine) handleComplaint(_ context.Context, t *turn) {
	t.resp.Message = complaintMessage
	t.resp.ShouldEscalate = true
	t.resp.EscalationReason = complaintReason
}

func (e *Engine) handleBooking(ctx context.Context, t *turn) {
	if e.IsBusinessHours(ctx) {
		t.resp.Message = bookingMessage
		t.resp.ShouldEscalate = true
		t.resp.EscalationReason = bookingReason
		return
	}

	msg := defaultWorkingHoursMessage
	if s, err := e.settings.ChatbotSettings(ctx); err != nil {
		e.logger.Error("failed to load chatbot settings", zap.Error(err))
	} else if s != nil && s.WorkingHoursMessage != "" {
		msg = s.WorkingHoursMessage
	}
	t.resp.Message = msg
}

func (e *Engine) handleAvailability(ctx context.Context, t *turn) {
	if !t.entities.HasProducts() {
		t.resp.Message = availabilityQuestion
		t.resp.SuggestedActions = []string{"show_popular_products", "browse_categories", "ask_human_help"}
		return
	}
	e.applyProducts(t, availabilityLeadIn, e.products.Search(ctx, t.req.Message, t.entities))
}

func (e *Engine) handlePriceInquiry(ctx context.Context, t *turn) {
	if !t.entities.HasProducts() {
		t.resp.Message = priceQuestion
		t.resp.SuggestedActions = []string{"browse_products", "get_bulk_quote", "contact_sales"}
		return
	}
	e.applyProducts(t, priceLeadIn, e.products.Search(ctx, t.req.Message, t.entities))
}

var orderNumberPattern = regexp.MustCompile(`(?i)(?:order\s*(?:number|no\.?|#)?\s*#?\s*|#)(\d{1,12})\b`)

func (e *Engine) handleOrderTracking(ctx context.Context, t *turn) {
	t.resp.SuggestedActions = []string{"contact_support", "request_order_number"}

	u := t.req.User
	if u == nil || !u.IsAuthenticated {
		t.resp.Message = orderTrackingMessage
		return
	}

	name := nameOr(u.Username, "there")
	if msg, ok := e.lookupOrder(ctx, t.req.Message, u, name); ok {
		t.resp.Message = msg
		return
	}
	t.resp.Message = fmt.Sprintf("Hi %s, I'd be happy to help you track your order. Please provide your order number, and I'll get you the latest status update. Alternatively, I can connect you directly with our customer service team.", name)
}

// lookupOrder answers with the status of an order number quoted in message,
// when the order belongs to the user.
func (e *Engine) lookupOrder(ctx context.Context, message string, u *UserContext, name string) (string, bool) {
	if e.orders == nil || u.UserID == nil {
		return "", false
	}
	m := orderNumberPattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "", false
	}

	status, found, err := e.orders.OrderStatusForUser(ctx, id, *u.UserID)
	if err != nil {
		e.logger.Error("failed to look up order", zap.Int64("order_id", id), zap.Error(err))
		return "", false
	}
	if !found {
		return fmt.Sprintf("Hi %s, I couldn't find order #%d on your account. Please double-check the number, or I can connect you with our customer service team.", name, id), true
	}
	return fmt.Sprintf("Hi %s, order #%d is currently %s. Let me know if there's anything else I can help with.", name, id, strings.ToLower(status)), true
}

func (e *Engine) handleGoodbye(_ context.Context, t *turn) {
	if u := t.req.User; u != nil && u.IsAuthenticated {
		t.resp.Message = fmt.Sprintf("Thank you %s for choosing %s! Have a wonderful day, and please don't hesitate to contact us anytime for your hardware and building supply needs.", nameOr(u.Username, "there"), e.brand)
		return
	}
	t.resp.Message = fmt.Sprintf("Thank you for choosing %s! Have a wonderful day, and please don't hesitate to contact us anytime for your hardware and building supply needs.", e.brand)
}

func (e *Engine) handleAcknowledgment(_ context.Context, t *turn) {
	t.resp.Message = acknowledgmentReplies[e.selector.Select(t.req.Message, len(acknowledgmentReplies))]
	t.resp.SuggestedActions = []string{"browse_products", "ask_question", "contact_sales"}
}

func (e *Engine) handleNegativeAcknowledgment(_ context.Context, t *turn) {
	t.resp.Message = negativeAcknowledgmentReplies[e.selector.Select(t.req.Message, len(negativeAcknowledgmentReplies))]
	t.resp.SuggestedActions = []string{"browse_products", "check_hours", "contact_info"}
}

// handleUnknown covers everything the classifier could not place: a guest
// introducing themselves, a product question in disguise, or a miss that
// counts toward escalation. It reports true when the reply is final.
func (e *Engine) handleUnknown(ctx context.Context, t *turn) bool {
	if u := t.req.User; u != nil && u.IsGuest && !u.HasName && IsLikelyName(t.req.Message) {
		if name := ExtractName(t.req.Message); name != "" {
			t.resp.GuestNameCollected = name
			t.resp.Message = fmt.Sprintf("Nice to meet you, %s! How can I help you today?", name)
			t.resp.Intent = IntentNameCollection
			return true
		}
	}

	if result, ok := e.products.AggressiveSearch(ctx, t.req.Message); ok {
		e.applyProducts(t, "", result)
		return false
	}

	attempts, err := e.attempts.RecordFailedAttempt(ctx, t.req.SessionID)
	if err != nil {
		e.logger.Error("failed to record failed attempt",
			zap.String("session_id", t.req.SessionID),
			zap.Error(err),
		)
	}

	settings := e.settingsOrDefault(ctx)
	threshold := settings.EscalationThreshold
	if threshold <= 0 {
		threshold = defaultEscalationThreshold
	}

	if attempts >= threshold {
		msg := settings.FallbackMessage
		if msg == "" {
			msg = defaultFallbackMessage
		}
		t.resp.Message = msg
		t.resp.ShouldEscalate = true
		t.resp.EscalationReason = fmt.Sprintf("Multiple failed attempts (%d)", attempts)
		return false
	}

	t.resp.Message = rephraseMessage
	return false
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
