package chatbot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverway/internal/models"
)

type engineFixture struct {
	store    *memoryStore
	attempts *MemoryAttemptTracker
	engine   *Engine
}

func newEngineFixture(t *testing.T, now time.Time, opts ...Option) *engineFixture {
	t.Helper()
	store := newMemoryStore()
	store.hours = weekHours()
	store.company = &models.CompanyInfo{
		Name:        "Riverway Company",
		Address:     "12 Harbour Road, Accra",
		Phone:       "+233 30 000 0000",
		Email:       "sales@riverway.example",
		Services:    "Delivery and bulk supply",
		Description: "Hardware and building supplies.",
	}
	store.products = []models.Product{
		product(1, "Portland Cement", "Cement", 100),
		product(2, "River Sand", "Sand", 40),
	}
	attempts := NewMemoryAttemptTracker()

	opts = append([]Option{WithClock(func() time.Time { return now }), WithLocation(time.UTC)}, opts...)
	e := NewEngine(Dependencies{
		FAQs:     store,
		Catalog:  store,
		Settings: store,
		Attempts: attempts,
	}, opts...)

	return &engineFixture{store: store, attempts: attempts, engine: e}
}

func (f *engineFixture) ask(message string, user *UserContext) *Response {
	return f.engine.GenerateResponse(context.Background(), Request{
		Message:   message,
		SessionID: "session-1",
		User:      user,
	})
}

var mondayNoon = at(1, 12, 0, 0, 0)

func TestGenerateResponse_EscalatesOnThirdFailure(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	for i := 1; i <= 2; i++ {
		resp := f.ask("xyzzy", nil)
		assert.Equal(t, IntentUnknown, resp.Intent)
		assert.Equal(t, rephraseMessage, resp.Message)
		assert.False(t, resp.ShouldEscalate, "attempt %d", i)
		assert.Equal(t, []string{"ask_human_help", "browse_faq"}, resp.SuggestedActions)
	}

	resp := f.ask("xyzzy", nil)
	assert.True(t, resp.ShouldEscalate)
	assert.Equal(t, "Multiple failed attempts (3)", resp.EscalationReason)
	assert.Equal(t, defaultFallbackMessage, resp.Message)
}

func TestGenerateResponse_EscalationThresholdFromSettings(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)
	settings := models.DefaultChatbotSettings()
	settings.EscalationThreshold = 1
	settings.FallbackMessage = "Connecting you now."
	f.store.settings = &settings

	resp := f.ask("xyzzy", nil)
	assert.True(t, resp.ShouldEscalate)
	assert.Equal(t, "Connecting you now.", resp.Message)
	assert.Equal(t, "Multiple failed attempts (1)", resp.EscalationReason)
}

func TestGenerateResponse_ResetSession(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	f.ask("xyzzy", nil)
	f.ask("xyzzy", nil)
	require.NoError(t, f.engine.ResetSession(context.Background(), "session-1"))
	assert.Equal(t, 0, f.attempts.Count("session-1"))

	resp := f.ask("xyzzy", nil)
	assert.False(t, resp.ShouldEscalate)
	assert.Equal(t, 1, f.attempts.Count("session-1"))
}

func TestGenerateResponse_Greeting(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	tests := []struct {
		name       string
		user       *UserContext
		message    string
		greeting   string
		collecting bool
	}{
		{
			name:     "anonymous",
			message:  defaultWelcomeMessage,
			greeting: GreetingNewUser,
		},
		{
			name:     "authenticated",
			user:     &UserContext{IsAuthenticated: true, Username: "Ama"},
			message:  "Hello Ama! " + defaultWelcomeMessage,
			greeting: GreetingReturningUser,
		},
		{
			name:     "named guest",
			user:     &UserContext{IsGuest: true, HasName: true, Username: "Kofi"},
			message:  "Hello Kofi! " + defaultWelcomeMessage,
			greeting: GreetingReturningGuest,
		},
		{
			name:       "new guest",
			user:       &UserContext{IsGuest: true},
			message:    newGuestGreeting,
			greeting:   GreetingNewGuest,
			collecting: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.ask("hello", tt.user)
			assert.Equal(t, IntentGreeting, resp.Intent)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, tt.greeting, resp.GreetingType)
			assert.Equal(t, tt.collecting, resp.CollectingName)
			assert.Equal(t, []string{"ask_services", "ask_hours", "ask_location"}, resp.SuggestedActions)
			assert.NotNil(t, resp.Products)
		})
	}
}

func TestGenerateResponse_GreetingUsesStoredWelcome(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)
	settings := models.DefaultChatbotSettings()
	f.store.settings = &settings

	resp := f.ask("hello", nil)
	assert.Equal(t, settings.WelcomeMessage, resp.Message)
}

func TestGenerateResponse_GuestNameCollection(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	resp := f.ask("Kwame", &UserContext{IsGuest: true})
	assert.Equal(t, IntentNameCollection, resp.Intent)
	assert.Equal(t, "Kwame", resp.GuestNameCollected)
	assert.Equal(t, "Nice to meet you, Kwame! How can I help you today?", resp.Message)
	assert.Equal(t, 0, f.attempts.Count("session-1"))

	resp = f.ask("Kwame", &UserContext{IsGuest: true, HasName: true, Username: "Kwame"})
	assert.Equal(t, IntentUnknown, resp.Intent, "named guests are not asked again")
}

func TestGenerateResponse_Complaint(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	resp := f.ask("I have a problem with my order", nil)
	assert.Equal(t, IntentComplaint, resp.Intent)
	assert.Equal(t, SentimentNegative, resp.Sentiment)
	assert.True(t, resp.ShouldEscalate)
	assert.Equal(t, complaintReason, resp.EscalationReason)
	assert.Equal(t, complaintMessage, resp.Message)
}

func TestGenerateResponse_Booking(t *testing.T) {
	open := newEngineFixture(t, mondayNoon)
	resp := open.ask("Can I book an appointment", nil)
	assert.Equal(t, IntentBooking, resp.Intent)
	assert.True(t, resp.ShouldEscalate)
	assert.Equal(t, bookingReason, resp.EscalationReason)

	closed := newEngineFixture(t, at(1, 22, 0, 0, 0))
	resp = closed.ask("Can I book an appointment", nil)
	assert.False(t, resp.ShouldEscalate)
	assert.Equal(t, defaultWorkingHoursMessage, resp.Message)
}

func TestGenerateResponse_BusinessHours(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	resp := f.ask("what are your hours", nil)
	assert.Equal(t, IntentBusinessHours, resp.Intent)
	assert.True(t, strings.HasPrefix(resp.Message, "Our business hours are:"))
	assert.Contains(t, resp.Message, "• Sunday: Closed")
}

func TestGenerateResponse_Location(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	resp := f.ask("where are you located", nil)
	assert.Equal(t, IntentLocation, resp.Intent)
	assert.Equal(t, "We're located at: 12 Harbour Road, Accra\n\nPhone: +233 30 000 0000\nEmail: sales@riverway.example", resp.Message)
	assert.Equal(t, []string{"get_directions", "call_company"}, resp.SuggestedActions)
}

func TestGenerateResponse_ProductsPersonalized(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)
	user := &UserContext{IsAuthenticated: true, Username: "Ama"}

	resp := f.ask("cement", user)
	assert.Equal(t, IntentProducts, resp.Intent)
	assert.InDelta(t, 0.6, resp.Confidence, 1e-9)
	assert.True(t, strings.HasPrefix(resp.Message, "Hi Ama, perfect! I found exactly"), resp.Message)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Portland Cement", resp.Products[0].Name)
	assert.Equal(t, []string{"cement"}, resp.Entities.Products)

	anon := f.ask("cement", &UserContext{IsGuest: true, Username: "Guest"})
	assert.True(t, strings.HasPrefix(anon.Message, "Perfect!"), "unnamed guests are not personalised")
}

func TestGenerateResponse_Availability(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	resp := f.ask("is it available", nil)
	assert.Equal(t, IntentAvailability, resp.Intent)
	assert.Equal(t, availabilityQuestion, resp.Message)
	assert.Equal(t, []string{"show_popular_products", "browse_categories", "ask_human_help"}, resp.SuggestedActions)

	resp = f.ask("is there sand available", nil)
	assert.Equal(t, IntentAvailability, resp.Intent)
	assert.True(t, strings.HasPrefix(resp.Message, availabilityLeadIn))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "River Sand", resp.Products[0].Name)
}

func TestGenerateResponse_PriceInquiry(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	resp := f.ask("how much does it cost", nil)
	assert.Equal(t, IntentPriceInquiry, resp.Intent)
	assert.Equal(t, priceQuestion, resp.Message)
	assert.Equal(t, []string{"browse_products", "get_bulk_quote", "contact_sales"}, resp.SuggestedActions)
}

func TestGenerateResponse_FAQ(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)
	f.store.faqs = []models.FAQ{
		{ID: 1, Question: "Is delivery free?", Answer: "Delivery is free over 500.", Keywords: "delivery,fee", IsActive: true},
		{ID: 2, Question: "Cement?", Answer: "FAQ about cement.", Keywords: "cement,bulk", IsActive: true},
	}

	resp := f.ask("delivery fee", nil)
	assert.Equal(t, "Delivery is free over 500.", resp.Message)
	assert.Equal(t, 1, f.store.viewCount(1))

	resp = f.ask("cement bulk", nil)
	assert.NotEqual(t, "FAQ about cement.", resp.Message, "shopping questions skip the FAQ")
	assert.Equal(t, 0, f.store.viewCount(2))
}

func TestGenerateResponse_OrderTracking(t *testing.T) {
	owner := uuid.New()
	f := newEngineFixture(t, mondayNoon)
	f.engine.orders = orderStub{owner: owner, id: 42, status: "Shipped"}
	user := &UserContext{IsAuthenticated: true, UserID: &owner, Username: "Ama"}

	resp := f.ask("where is my order #42", user)
	assert.Equal(t, IntentOrderTracking, resp.Intent)
	assert.Equal(t, "Hi Ama, order #42 is currently shipped. Let me know if there's anything else I can help with.", resp.Message)
	assert.Equal(t, []string{"contact_support", "request_order_number"}, resp.SuggestedActions)

	resp = f.ask("where is my order #7", user)
	assert.Contains(t, resp.Message, "I couldn't find order #7")

	resp = f.ask("track my order", user)
	assert.True(t, strings.HasPrefix(resp.Message, "Hi Ama, I'd be happy to help you track your order."))

	resp = f.ask("where is my order #42", nil)
	assert.Equal(t, orderTrackingMessage, resp.Message)
}

func TestGenerateResponse_Goodbye(t *testing.T) {
	f := newEngineFixture(t, mondayNoon, WithBrandName("Riverway Hardware"))

	resp := f.ask("bye", nil)
	assert.True(t, strings.HasPrefix(resp.Message, "Thank you for choosing Riverway Hardware!"))

	resp = f.ask("bye", &UserContext{IsAuthenticated: true, Username: "Ama"})
	assert.True(t, strings.HasPrefix(resp.Message, "Thank you Ama for choosing Riverway Hardware!"))
}

func TestGenerateResponse_AcknowledgmentIsDeterministic(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	first := f.ask("thanks", nil)
	second := f.ask("thanks", nil)
	assert.Equal(t, IntentAcknowledgment, first.Intent)
	assert.Contains(t, acknowledgmentReplies, first.Message)
	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, []string{"browse_products", "ask_question", "contact_sales"}, first.SuggestedActions)

	resp := f.ask("nope", nil)
	assert.Contains(t, negativeAcknowledgmentReplies, resp.Message)
}

type fixedSelector int

func (s fixedSelector) Select(string, int) int { return int(s) }

func TestGenerateResponse_VariantSelector(t *testing.T) {
	f := newEngineFixture(t, mondayNoon, WithVariantSelector(fixedSelector(2)))

	resp := f.ask("thanks", nil)
	assert.Equal(t, acknowledgmentReplies[2], resp.Message)
}

func TestGenerateResponse_TechnicalError(t *testing.T) {
	e := NewEngine(Dependencies{})

	resp := e.GenerateResponse(context.Background(), Request{Message: "hello", SessionID: "x"})
	require.NotNil(t, resp)
	assert.Equal(t, IntentError, resp.Intent)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.True(t, resp.ShouldEscalate)
	assert.Equal(t, technicalErrorReason, resp.EscalationReason)
	assert.Equal(t, technicalErrorMessage, resp.Message)
}

func TestGenerateResponse_Concurrent(t *testing.T) {
	f := newEngineFixture(t, mondayNoon)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := f.engine.GenerateResponse(context.Background(), Request{
				Message:   "xyzzy",
				SessionID: uuid.NewString(),
			})
			assert.False(t, resp.ShouldEscalate)
		}()
	}
	wg.Wait()
}

func TestGenerateResponse_RandomVariants(t *testing.T) {
	f := newEngineFixture(t, mondayNoon, WithVariantSelector(RandomSelector{}))

	for range 20 {
		resp := f.ask("thanks", nil)
		assert.Equal(t, IntentAcknowledgment, resp.Intent)
		assert.Contains(t, acknowledgmentReplies, resp.Message)
	}
}

func TestGenerateResponse_FAQThreshold(t *testing.T) {
	warranty := models.FAQ{ID: 3, Question: "Do your tools come with a warranty?", Answer: "All power tools carry a one-year warranty.", Keywords: "warranty,guarantee", IsActive: true}

	tests := []struct {
		name    string
		opts    []Option
		matched bool
	}{
		{"default needs two keywords", nil, false},
		{"lowered threshold accepts one", []Option{WithFAQThreshold(0.5)}, true},
		{"non-positive keeps default", []Option{WithFAQThreshold(0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, mondayNoon, tt.opts...)
			f.store.faqs = []models.FAQ{warranty}

			resp := f.ask("warranty", nil)
			if tt.matched {
				assert.Equal(t, warranty.Answer, resp.Message)
				assert.Equal(t, int64(3), resp.FAQID)
			} else {
				assert.NotEqual(t, warranty.Answer, resp.Message)
				assert.Zero(t, resp.FAQID)
			}
		})
	}
}
