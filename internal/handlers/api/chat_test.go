package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"riverway/internal/chatbot"
	"riverway/internal/db"
	"riverway/internal/middleware"
	"riverway/internal/models"
)

type chatFixture struct {
	app      *fiber.App
	store    *fakeChatStore
	engine   *fakeResponder
	notifier *fakeNotifier
	handler  *ChatHandler
}

func newChatFixture(t *testing.T, user *models.User, settings SettingsSource) *chatFixture {
	t.Helper()
	f := &chatFixture{
		store:    newFakeChatStore(),
		engine:   &fakeResponder{reply: chatbot.Response{Message: "Hello! How can I help?", Intent: chatbot.IntentGreeting, Confidence: 0.8}},
		notifier: &fakeNotifier{},
	}
	f.handler = NewChatHandler(f.store, f.engine, f.notifier, settings, nil, testConfig(), zaptest.NewLogger(t))
	f.handler.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	app := newTestApp(user)
	app.Post("/chatbot/api", f.handler.Message)
	app.Post("/chatbot/feedback", f.handler.Feedback)
	app.Get("/chatbot/history/:session_id", f.handler.History)
	app.Post("/chatbot/reset", f.handler.Reset)
	app.Post("/chatbot/webhook/whatsapp", f.handler.WhatsApp)
	app.Post("/chatbot/webhook/messenger", f.handler.Messenger)
	app.Get("/chatbot/analytics", middleware.RequireStaff, f.handler.Analytics)
	app.Post("/chatbot/contact-support", f.handler.ContactSupport)
	f.app = app
	return f
}

func TestMessage_EmptyMessage(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "   "}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Please enter a message.", resp.Body["response"])
	assert.Equal(t, "error", resp.Body["status"])
	assert.Empty(t, f.engine.requests)
}

func TestMessage_InvalidJSON(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/api", "{not json", nil)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "error", resp.Body["status"])
}

func TestMessage_GuestConversation(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	first := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hello"}, nil)
	require.Equal(t, http.StatusOK, first.Status, first.Raw)

	assert.Equal(t, "success", first.Body["status"])
	assert.Equal(t, "Hello! How can I help?", first.Body["response"])
	assert.Equal(t, "greeting", first.Body["intent"])
	assert.Equal(t, false, first.Body["user_authenticated"])
	assert.Nil(t, first.Body["username"])
	assert.Equal(t, "standard", first.Body["greeting_type"])
	assert.Equal(t, false, first.Body["personalized"])
	assert.Equal(t, false, first.Body["escalated"])

	sessionID, _ := first.Body["session_id"].(string)
	_, err := uuid.Parse(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.messageCount(sessionID))

	req := f.engine.lastRequest()
	assert.Equal(t, sessionID, req.SessionID)
	assert.True(t, req.User.IsGuest)
	assert.False(t, req.User.HasName)
	assert.Equal(t, models.ChannelWebsite, req.User.Channel)
	require.Len(t, req.History, 1)
	assert.Equal(t, models.MessageUser, req.History[0].Type)
	assert.Equal(t, "hello", req.History[0].Content)

	// The session cookie keeps the conversation going.
	second := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "what do you sell"}, first.Cookies)
	require.Equal(t, http.StatusOK, second.Status)
	assert.Equal(t, sessionID, second.Body["session_id"])
	assert.Equal(t, 4, f.store.messageCount(sessionID))
	assert.Len(t, f.engine.lastRequest().History, 3)
}

func TestMessage_StoresBotMessageDetails(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	f.engine.reply = chatbot.Response{Message: "We deliver.", Intent: chatbot.IntentServices, Confidence: 0.9, FAQID: 3}

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "do you deliver", "channel": "sms"}, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	sess := f.store.sessions[resp.Body["session_id"].(string)]
	require.NotNil(t, sess)
	assert.Equal(t, models.ChannelSMS, sess.Channel)

	msgs := f.store.messages[sess.ID]
	require.Len(t, msgs, 2)
	bot := msgs[1]
	assert.Equal(t, models.MessageBot, bot.MessageType)
	assert.Equal(t, "services", bot.Intent)
	require.NotNil(t, bot.Confidence)
	assert.InDelta(t, 0.9, *bot.Confidence, 1e-9)
	require.NotNil(t, bot.ResponseTime)
}

func TestMessage_UnknownChannelFallsBackToWebsite(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi", "channel": "telegram"}, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, models.ChannelWebsite, f.engine.lastRequest().User.Channel)
}

func TestMessage_GuestNameRemembered(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	f.engine.reply = chatbot.Response{Message: "Nice to meet you, Ama!", Intent: chatbot.IntentGreeting, GuestNameCollected: "Ama"}

	first := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "my name is Ama"}, nil)
	require.Equal(t, http.StatusOK, first.Status)

	f.engine.reply = chatbot.Response{Message: "Sure.", Intent: chatbot.IntentAcknowledgment}
	second := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "thanks"}, first.Cookies)
	require.Equal(t, http.StatusOK, second.Status)

	req := f.engine.lastRequest()
	assert.True(t, req.User.HasName)
	assert.Equal(t, "Ama", req.User.Username)
}

func TestMessage_AuthenticatedUser(t *testing.T) {
	user := newUser(models.RoleCustomer)
	f := newChatFixture(t, user, nil)
	f.engine.reply = chatbot.Response{Message: "Welcome back, Kofi!", Intent: chatbot.IntentGreeting, GreetingType: "personalized"}

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi"}, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	assert.Equal(t, true, resp.Body["user_authenticated"])
	assert.Equal(t, "Kofi", resp.Body["username"])
	assert.Equal(t, true, resp.Body["personalized"])
	assert.Equal(t, "personalized", resp.Body["greeting_type"])

	req := f.engine.lastRequest()
	assert.True(t, req.User.IsAuthenticated)
	require.NotNil(t, req.User.UserID)
	assert.Equal(t, user.ID, *req.User.UserID)

	sess := f.store.sessions[resp.Body["session_id"].(string)]
	require.NotNil(t, sess.UserID)
	assert.Equal(t, user.ID, *sess.UserID)
}

func TestMessage_EscalatesOnce(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	f.engine.reply = chatbot.Response{
		Message:          "Let me connect you with a team member.",
		Intent:           chatbot.IntentComplaint,
		ShouldEscalate:   true,
		EscalationReason: "Customer complaint",
	}

	first := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]any{"message": "this is terrible", "email": "ama@example.com"}, nil)
	require.Equal(t, http.StatusOK, first.Status)
	assert.Equal(t, true, first.Body["escalated"])

	require.Len(t, f.store.escalations, 1)
	assert.Equal(t, "Customer complaint", f.store.escalations[0])
	require.Len(t, f.notifier.escalations, 1)
	alert := f.notifier.escalations[0]
	assert.Equal(t, "Customer complaint", alert.Reason)
	assert.Equal(t, "Guest (ama@example.com)", alert.User)
	assert.Len(t, alert.Transcript, 2)
	assert.True(t, alert.Session.IsEscalated)

	second := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "still waiting"}, first.Cookies)
	require.Equal(t, http.StatusOK, second.Status)
	assert.Len(t, f.store.escalations, 1)
	assert.Len(t, f.notifier.escalations, 1)
}

func TestMessage_EscalationWithoutNotifications(t *testing.T) {
	settings := models.DefaultChatbotSettings()
	settings.EnableNotifications = false
	f := newChatFixture(t, nil, fakeSettings{settings: &settings})
	f.engine.reply = chatbot.Response{Message: "Connecting you.", Intent: chatbot.IntentBooking, ShouldEscalate: true, EscalationReason: "Booking request"}

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "book a delivery"}, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	assert.Len(t, f.store.escalations, 1)
	assert.Empty(t, f.notifier.escalations)
}

func TestMessage_StoreFailure(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	f.store.err = errors.New("db down")

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi"}, nil)

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, chatErrorReply, resp.Body["response"])
}

func TestFeedback(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	start := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi"}, nil)
	sessionID := start.Body["session_id"].(string)

	tests := []struct {
		name    string
		body    map[string]any
		status  int
		message string
	}{
		{"missing rating", map[string]any{"session_id": sessionID}, http.StatusBadRequest, "Session ID and rating are required"},
		{"missing session", map[string]any{"rating": 4}, http.StatusBadRequest, "Session ID and rating are required"},
		{"rating too high", map[string]any{"session_id": sessionID, "rating": 6}, http.StatusBadRequest, "Rating must be between 1 and 5"},
		{"unknown session", map[string]any{"session_id": "nope", "rating": 4}, http.StatusNotFound, "Chat session not found"},
		{"ok", map[string]any{"session_id": sessionID, "rating": 5, "feedback": "great", "was_helpful": true}, http.StatusOK, "Thank you for your feedback!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, f.app, http.MethodPost, "/chatbot/feedback", tt.body, start.Cookies)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.message, resp.Body["message"])
		})
	}

	require.Len(t, f.store.feedback, 1)
	fb := f.store.feedback[0]
	assert.Equal(t, 5, fb.Rating)
	assert.Equal(t, "great", fb.FeedbackText)
	require.NotNil(t, fb.WasHelpful)
	assert.True(t, *fb.WasHelpful)
}

func TestFeedback_Disabled(t *testing.T) {
	settings := models.DefaultChatbotSettings()
	settings.EnableFeedback = false
	f := newChatFixture(t, nil, fakeSettings{settings: &settings})
	start := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi"}, nil)

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/feedback", map[string]any{"session_id": start.Body["session_id"], "rating": 3}, start.Cookies)

	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Empty(t, f.store.feedback)
}

func TestHistory(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	start := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi"}, nil)
	sessionID := start.Body["session_id"].(string)

	resp := doRequest(t, f.app, http.MethodGet, "/chatbot/history/"+sessionID, nil, start.Cookies)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, sessionID, resp.Body["session_id"])
	messages, _ := resp.Body["messages"].([]any)
	assert.Len(t, messages, 2)
	info, _ := resp.Body["session_info"].(map[string]any)
	assert.Equal(t, "website", info["channel"])

	resp = doRequest(t, f.app, http.MethodGet, "/chatbot/history/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestHistory_OtherUsersSession(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	owner := uuid.New()
	f.store.sessions["owned"] = &models.ChatSession{ID: 99, SessionID: "owned", UserID: &owner, Channel: models.ChannelWebsite}

	resp := doRequest(t, f.app, http.MethodGet, "/chatbot/history/owned", nil, nil)

	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Permission denied", resp.Body["message"])
}

func TestHistory_GuestSessionNeedsItsBrowser(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	start := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "my email is ama@example.com"}, nil)
	sessionID := start.Body["session_id"].(string)

	resp := doRequest(t, f.app, http.MethodGet, "/chatbot/history/"+sessionID, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	other := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi"}, nil)
	resp = doRequest(t, f.app, http.MethodGet, "/chatbot/history/"+sessionID, nil, other.Cookies)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.NotContains(t, resp.Raw, "ama@example.com")
}

func TestChannelSessionsAreStaffOnly(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/webhook/whatsapp", map[string]any{
		"from": "233241234567",
		"text": map[string]string{"body": "my email is kofi@example.com, deliver to 12 Ring Rd"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.Status)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusForbidden},
		{"customer", newUser(models.RoleCustomer), http.StatusForbidden},
		{"staff", newUser(models.RoleStaff), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.user)
			app.Get("/chatbot/history/:session_id", f.handler.History)
			app.Post("/chatbot/feedback", f.handler.Feedback)

			history := doRequest(t, app, http.MethodGet, "/chatbot/history/whatsapp_233241234567", nil, nil)
			assert.Equal(t, tt.want, history.Status)
			if tt.want != http.StatusOK {
				assert.NotContains(t, history.Raw, "kofi@example.com")
			}

			feedback := doRequest(t, app, http.MethodPost, "/chatbot/feedback", map[string]any{"session_id": "whatsapp_233241234567", "rating": 1}, nil)
			assert.Equal(t, tt.want, feedback.Status)
		})
	}
	assert.Len(t, f.store.feedback, 1, "only staff may rate a channel session")
}

func TestReset_StartsNewSession(t *testing.T) {
	f := newChatFixture(t, nil, nil)
	first := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi"}, nil)
	firstID := first.Body["session_id"].(string)

	reset := doRequest(t, f.app, http.MethodPost, "/chatbot/reset", nil, first.Cookies)
	require.Equal(t, http.StatusOK, reset.Status)
	assert.Equal(t, []string{firstID}, f.engine.resets)
	assert.Equal(t, models.SessionEnded, f.store.sessions[firstID].Status)

	next := doRequest(t, f.app, http.MethodPost, "/chatbot/api", map[string]string{"message": "hi again"}, reset.Cookies)
	require.Equal(t, http.StatusOK, next.Status)
	assert.NotEqual(t, firstID, next.Body["session_id"])
}

func TestWhatsAppWebhook(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/webhook/whatsapp", map[string]any{"from": "233241234567"}, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "no_message", resp.Body["status"])

	resp = doRequest(t, f.app, http.MethodPost, "/chatbot/webhook/whatsapp", map[string]any{
		"from": "233241234567",
		"text": map[string]string{"body": "are you open?"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "success", resp.Body["status"])
	assert.Equal(t, "Hello! How can I help?", resp.Body["response"])

	sess := f.store.sessions["whatsapp_233241234567"]
	require.NotNil(t, sess)
	assert.Equal(t, models.ChannelWhatsApp, sess.Channel)
	assert.Equal(t, "233241234567", sess.UserPhone)
	assert.Equal(t, models.ChannelWhatsApp, f.engine.lastRequest().User.Channel)
}

func TestMessengerWebhook(t *testing.T) {
	f := newChatFixture(t, nil, nil)

	resp := doRequest(t, f.app, http.MethodPost, "/chatbot/webhook/messenger", map[string]any{
		"entry": []any{
			map[string]any{"messaging": []any{
				map[string]any{"sender": map[string]string{"id": "p1"}, "message": map[string]string{"text": "hi"}},
				map[string]any{"sender": map[string]string{"id": "p2"}, "message": map[string]string{"text": ""}},
			}},
			map[string]any{"messaging": []any{
				map[string]any{"sender": map[string]string{"id": "p3"}, "message": map[string]string{"text": "price of cement"}},
			}},
		},
	}, nil)

	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "success", resp.Body["status"])
	assert.EqualValues(t, 2, resp.Body["replies"])
	assert.Contains(t, f.store.sessions, "messenger_p1")
	assert.Contains(t, f.store.sessions, "messenger_p3")
	assert.NotContains(t, f.store.sessions, "messenger_p2")
}

func TestAnalytics(t *testing.T) {
	f := newChatFixture(t, newUser(models.RoleStaff), nil)
	f.store.report = &db.ChatReport{
		Start:             time.Date(2024, 4, 24, 0, 0, 0, 0, time.UTC),
		End:               time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		TotalSessions:     10,
		EscalatedSessions: 2,
		EscalationRate:    20,
		IntentStats:       []db.CountStat{{Label: "greeting", Count: 7}},
	}

	resp := doRequest(t, f.app, http.MethodGet, "/chatbot/analytics?days=7", nil, nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)
	assert.Equal(t, 7, f.store.reportDays)

	data, _ := resp.Body["data"].(map[string]any)
	assert.EqualValues(t, 10, data["total_sessions"])
	assert.EqualValues(t, 20, data["escalation_rate"])
	dates, _ := data["date_range"].(map[string]any)
	assert.Equal(t, "2024-04-24", dates["start"])
	assert.Equal(t, "2024-05-01", dates["end"])

	doRequest(t, f.app, http.MethodGet, "/chatbot/analytics?days=-3", nil, nil)
	assert.Equal(t, 30, f.store.reportDays)
}

func TestAnalytics_CustomersDenied(t *testing.T) {
	f := newChatFixture(t, newUser(models.RoleCustomer), nil)

	resp := doRequest(t, f.app, http.MethodGet, "/chatbot/analytics", nil, nil)

	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestContactSupport(t *testing.T) {
	valid := map[string]string{
		"name":        "Ama Owusu",
		"email":       "ama@example.com",
		"priority":    "High",
		"description": "My order has not arrived.",
	}

	t.Run("validation error", func(t *testing.T) {
		f := newChatFixture(t, nil, nil)
		resp := doRequest(t, f.app, http.MethodPost, "/chatbot/contact-support", map[string]string{"name": "Ama"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "All fields are required", resp.Body["message"])
		assert.Empty(t, f.notifier.contacts)
	})

	t.Run("sent", func(t *testing.T) {
		f := newChatFixture(t, nil, nil)
		resp := doRequest(t, f.app, http.MethodPost, "/chatbot/contact-support", valid, nil)
		require.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "Support request sent successfully", resp.Body["message"])
		require.Len(t, f.notifier.contacts, 1)
		assert.Equal(t, "high", f.notifier.contacts[0].Priority)
	})

	t.Run("delivery failure", func(t *testing.T) {
		f := newChatFixture(t, nil, nil)
		f.notifier.contactErr = errors.New("smtp down")
		resp := doRequest(t, f.app, http.MethodPost, "/chatbot/contact-support", valid, nil)
		assert.Equal(t, http.StatusBadGateway, resp.Status)
		assert.Equal(t, "Failed to send support request. Please try again.", resp.Body["message"])
	})
}
