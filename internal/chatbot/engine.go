// Package chatbot turns a customer's chat message into a reply: it classifies
// intent and sentiment, extracts entities, consults the FAQ and product
// catalog, and decides when a conversation needs a human.
package chatbot

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultEscalationThreshold = 3
	defaultCurrency            = "₵"
	defaultMediaURL            = "/media/"
	defaultBrandName           = "Riverway Company"

	technicalErrorMessage = "I'm experiencing technical difficulties. Please try again or contact us directly."
	technicalErrorReason  = "Technical error in chatbot engine"
)

// Greeting types reported back to the caller.
const (
	GreetingReturningUser  = "returning_user"
	GreetingReturningGuest = "returning_guest"
	GreetingNewGuest       = "new_guest"
	GreetingNewUser        = "new_user"
)

// UserContext describes who is talking.
type UserContext struct {
	IsAuthenticated bool
	UserID          *uuid.UUID
	Username        string // display name for greetings
	Email           string
	IsGuest         bool
	HasName         bool
	Channel         string
}

// Request is one inbound chat turn.
type Request struct {
	Message   string
	SessionID string
	User      *UserContext     // nil for channels without a user notion
	History   []HistoryMessage // oldest first, may be empty
}

// Response is the engine's reply. The caller persists it and acts on
// ShouldEscalate.
type Response struct {
	Message            string        `json:"message"`
	Intent             Intent        `json:"intent"`
	Confidence         float64       `json:"confidence"`
	Sentiment          Sentiment     `json:"sentiment"`
	Entities           EntitySet     `json:"entities"`
	ShouldEscalate     bool          `json:"should_escalate"`
	EscalationReason   string        `json:"escalation_reason"`
	SuggestedActions   []string      `json:"suggested_actions"`
	Products           []ProductCard `json:"products"`
	GreetingType       string        `json:"greeting_type,omitempty"`
	CollectingName     bool          `json:"collecting_name"`
	GuestNameCollected string        `json:"guest_name_collected,omitempty"`
	ConversationStage  string        `json:"conversation_stage,omitempty"`
	FAQID              int64         `json:"faq_id,omitempty"` // set when a stored FAQ answered
}

// OrderLookup resolves an order's status for its owner.
type OrderLookup interface {
	OrderStatusForUser(ctx context.Context, orderID int64, userID uuid.UUID) (status string, found bool, err error)
}

// Dependencies are the stores the engine reads from. Orders may be nil.
type Dependencies struct {
	FAQs     FAQStore
	Catalog  ProductCatalog
	Settings SettingsStore
	Attempts AttemptTracker
	Orders   OrderLookup
	Logger   *zap.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for business hours.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone business hours are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithVariantSelector sets how canned replies are chosen.
func WithVariantSelector(s VariantSelector) Option {
	return func(e *Engine) { e.selector = s }
}

// WithCurrency sets the symbol prefixed to prices.
func WithCurrency(symbol string) Option {
	return func(e *Engine) { e.currency = symbol }
}

// WithMediaURL sets the prefix for product image URLs.
func WithMediaURL(url string) Option {
	return func(e *Engine) { e.mediaURL = url }
}

// WithBrandName sets the company name used in sign-offs.
func WithBrandName(name string) Option {
	return func(e *Engine) { e.brand = name }
}

// WithFAQThreshold sets the minimum FAQ match score. Non-positive values
// keep DefaultFAQThreshold.
func WithFAQThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.faqThreshold = t
		}
	}
}

type intentHandler func(ctx context.Context, t *turn)

// turn carries the per-message state through the intent handlers.
type turn struct {
	req      Request
	lower    string
	intent   Intent
	entities EntitySet
	resp     *Response
}

// Engine produces chatbot replies. It is safe for concurrent use.
type Engine struct {
	classifier *Classifier
	faqs       *FAQMatcher
	products   *ProductMatcher
	settings   SettingsStore
	attempts   AttemptTracker
	orders     OrderLookup
	logger     *zap.Logger

	now          func() time.Time
	location     *time.Location
	selector     VariantSelector
	currency     string
	mediaURL     string
	brand        string
	faqThreshold float64

	handlers map[Intent]intentHandler
}

// NewEngine wires an engine from its stores.
func NewEngine(deps Dependencies, opts ...Option) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("chatbot")

	e := &Engine{
		classifier:   NewClassifier(),
		settings:     deps.Settings,
		attempts:     deps.Attempts,
		orders:       deps.Orders,
		logger:       logger,
		now:          time.Now,
		location:     time.Local,
		selector:     HashSelector{},
		currency:     defaultCurrency,
		mediaURL:     defaultMediaURL,
		brand:        defaultBrandName,
		faqThreshold: DefaultFAQThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.attempts == nil {
		e.attempts = NewMemoryAttemptTracker()
	}

	e.faqs = NewFAQMatcher(deps.FAQs, logger)
	e.products = NewProductMatcher(deps.Catalog, logger, e.currency, e.mediaURL)

	e.handlers = map[Intent]intentHandler{
		IntentGreeting:               e.handleGreeting,
		IntentBusinessHours:          e.handleBusinessHours,
		IntentProducts:               e.handleProducts,
		IntentLocation:               e.handleCompanyInfo,
		IntentServices:               e.handleCompanyInfo,
		IntentContact:                e.handleCompanyInfo,
		IntentPricing:                e.handleCompanyInfo,
		IntentComplaint:              e.handleComplaint,
		IntentBooking:                e.handleBooking,
		IntentAvailability:           e.handleAvailability,
		IntentPriceInquiry:           e.handlePriceInquiry,
		IntentOrderTracking:          e.handleOrderTracking,
		IntentGoodbye:                e.handleGoodbye,
		IntentAcknowledgment:         e.handleAcknowledgment,
		IntentNegativeAcknowledgment: e.handleNegativeAcknowledgment,
	}

	return e
}

// Shopping phrases that send a message to product search before the FAQ.
var shoppingKeywords = []string{
	"do you have", "sell", "available", "stock", "buy", "need", "looking for", "want",
	"get", "find", "price", "cost", "how much", "cement", "steel", "lumber", "brick",
	"paint", "tile", "hammer", "screw", "nail",
}

func productsFirst(intent Intent, entities EntitySet, lower string) bool {
	switch intent {
	case IntentProducts, IntentAvailability, IntentPriceInquiry:
		return true
	}
	return entities.HasProducts() || containsAny(lower, shoppingKeywords)
}

// GenerateResponse answers one message. It never returns nil and never
// panics; internal failures become a technical-difficulty reply that asks for
// escalation.
func (e *Engine) GenerateResponse(ctx context.Context, req Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("error generating response",
				zap.Any("panic", r),
				zap.String("session_id", req.SessionID),
			)
			resp = technicalErrorResponse()
		}
	}()

	lower := strings.ToLower(req.Message)
	classification := e.classifier.ClassifyIntent(req.Message)
	entities := ExtractEntities(req.Message)
	chatCtx := AnalyzeChatContext(req.History)

	resp = &Response{
		Intent:            classification.Intent,
		Confidence:        classification.Confidence,
		Sentiment:         e.classifier.ClassifySentiment(req.Message),
		Entities:          entities,
		SuggestedActions:  []string{},
		Products:          []ProductCard{},
		ConversationStage: chatCtx.Stage,
	}

	if !productsFirst(classification.Intent, entities, lower) {
		if faq := e.faqs.FindBestMatch(ctx, req.Message, e.faqThreshold); faq != nil {
			resp.Message = faq.Answer
			resp.FAQID = faq.ID
			return resp
		}
	}

	t := &turn{
		req:      req,
		lower:    lower,
		intent:   classification.Intent,
		entities: entities,
		resp:     resp,
	}

	if handle, ok := e.handlers[classification.Intent]; ok {
		handle(ctx, t)
	} else if done := e.handleUnknown(ctx, t); done {
		return resp
	}

	if len(resp.SuggestedActions) == 0 {
		resp.SuggestedActions = SuggestedActions(classification.Intent)
	}
	e.personalize(t)

	return resp
}

// ResetSession clears the failed-attempt counter for sessionID.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) error {
	return e.attempts.Reset(ctx, sessionID)
}

// personalize greets known users by name on product, service and pricing replies.
func (e *Engine) personalize(t *turn) {
	u := t.req.User
	if u == nil {
		return
	}
	switch t.intent {
	case IntentProducts, IntentServices, IntentPricing:
	default:
		return
	}
	if u.Username == "" || strings.Contains(strings.ToLower(t.resp.Message), strings.ToLower(u.Username)) {
		return
	}
	if u.IsAuthenticated || (u.IsGuest && u.HasName) {
		t.resp.Message = "Hi " + u.Username + ", " + lowerFirst(t.resp.Message)
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func technicalErrorResponse() *Response {
	return &Response{
		Message:          technicalErrorMessage,
		Intent:           IntentError,
		Confidence:       0,
		Sentiment:        SentimentNeutral,
		Entities:         NewEntitySet(),
		ShouldEscalate:   true,
		EscalationReason: technicalErrorReason,
		SuggestedActions: []string{},
		Products:         []ProductCard{},
	}
}
