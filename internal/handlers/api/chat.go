package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"riverway/internal/chatbot"
	"riverway/internal/config"
	"riverway/internal/db"
	"riverway/internal/email"
	"riverway/internal/metrics"
	"riverway/internal/middleware"
	"riverway/internal/models"
	"riverway/internal/validation"
)

// Session keys for the website chat.
const (
	SessionChatID    = "chat_session_id"
	SessionGuestName = "guest_name"
)

const (
	historyLimit        = 10
	chatErrorReply      = "Sorry, I encountered an error. Please try again or contact our support team."
	emptyMessageReply   = "Please enter a message."
	defaultGreetingType = "standard"
)

// ChatStore is the persistence the chat endpoints need.
type ChatStore interface {
	GetOrCreateChatSession(ctx context.Context, s *models.ChatSession) (*models.ChatSession, error)
	GetChatSession(ctx context.Context, sessionID string) (*models.ChatSession, error)
	EndChatSession(ctx context.Context, id int64) error
	AddChatMessage(ctx context.Context, m *models.ChatMessage) error
	RecentChatMessages(ctx context.Context, sessionID int64, limit int) ([]models.ChatMessage, error)
	ChatMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
	EscalateChatSession(ctx context.Context, sessionID int64, reason, priority string) (*models.Escalation, error)
	UpsertChatFeedback(ctx context.Context, f *models.ChatFeedback) error
	ChatReport(ctx context.Context, days int, now time.Time) (*db.ChatReport, error)
}

// Responder produces chatbot replies.
type Responder interface {
	GenerateResponse(ctx context.Context, req chatbot.Request) *chatbot.Response
	ResetSession(ctx context.Context, sessionID string) error
}

// ChatNotifier delivers escalation alerts and contact requests to staff.
type ChatNotifier interface {
	NotifyEscalation(ctx context.Context, d email.EscalationDetails)
	NotifyContactRequest(ctx context.Context, req *models.ContactRequest) error
}

// SettingsSource supplies the stored chatbot settings.
type SettingsSource interface {
	ChatbotSettings(ctx context.Context) (*models.ChatbotSettings, error)
}

// ChatHandler serves the chat widget API and the messaging webhooks.
type ChatHandler struct {
	db       ChatStore
	engine   Responder
	notifier ChatNotifier
	settings SettingsSource
	metrics  *metrics.Recorder
	cfg      *config.Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewChatHandler creates a new chat handler. settings and recorder may be nil.
func NewChatHandler(database ChatStore, engine Responder, notifier ChatNotifier, settings SettingsSource, recorder *metrics.Recorder, cfg *config.Config, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		db:       database,
		engine:   engine,
		notifier: notifier,
		settings: settings,
		metrics:  recorder,
		cfg:      cfg,
		logger:   logger.Named("chat"),
		now:      time.Now,
	}
}

// chatSettings returns the stored settings or the defaults.
func (h *ChatHandler) chatSettings(ctx context.Context) models.ChatbotSettings {
	if h.settings != nil {
		s, err := h.settings.ChatbotSettings(ctx)
		if err == nil && s != nil {
			return *s
		}
		if err != nil {
			h.logger.Warn("using default chatbot settings", zap.Error(err))
		}
	}
	return models.DefaultChatbotSettings()
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(c fiber.Ctx) string {
	if ips := c.IPs(); len(ips) > 0 && ips[0] != "" {
		return strings.TrimSpace(ips[0])
	}
	return c.IP()
}

func toHistory(messages []models.ChatMessage) []chatbot.HistoryMessage {
	history := make([]chatbot.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, chatbot.HistoryMessage{
			Type:      m.MessageType,
			Content:   m.Content,
			Intent:    m.Intent,
			Timestamp: m.Timestamp,
		})
	}
	return history
}

// describeUser is how an escalation alert names the customer.
func describeUser(s *models.ChatSession, user *models.User) string {
	switch {
	case user != nil:
		return strings.TrimSpace(user.Name + " (" + user.Email + ")")
	case s.UserEmail != "":
		return "Guest (" + s.UserEmail + ")"
	case s.UserPhone != "":
		return "Guest (" + s.UserPhone + ")"
	}
	return "Guest User"
}

// converse stores the user's message, asks the engine for a reply, stores
// the reply and escalates when the engine says so.
func (h *ChatHandler) converse(ctx context.Context, chatSession *models.ChatSession, message string, uc *chatbot.UserContext, user *models.User) (*chatbot.Response, error) {
	start := h.now()

	userMsg := &models.ChatMessage{
		SessionID:   chatSession.ID,
		MessageType: models.MessageUser,
		Content:     message,
	}
	if err := h.db.AddChatMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	recent, err := h.db.RecentChatMessages(ctx, chatSession.ID, historyLimit)
	if err != nil {
		h.logger.Warn("failed to load chat history", zap.Error(err), zap.String("session_id", chatSession.SessionID))
	}

	resp := h.engine.GenerateResponse(ctx, chatbot.Request{
		Message:   message,
		SessionID: chatSession.SessionID,
		User:      uc,
		History:   toHistory(recent),
	})

	elapsed := h.now().Sub(start)
	seconds := elapsed.Seconds()
	confidence := resp.Confidence
	botMsg := &models.ChatMessage{
		SessionID:    chatSession.ID,
		MessageType:  models.MessageBot,
		Content:      resp.Message,
		Intent:       string(resp.Intent),
		Confidence:   &confidence,
		ResponseTime: &seconds,
	}
	if err := h.db.AddChatMessage(ctx, botMsg); err != nil {
		return nil, err
	}

	h.metrics.ObserveResponse(chatSession.Channel, elapsed)
	if resp.FAQID != 0 {
		h.metrics.RecordFAQAnswer()
	}

	if resp.ShouldEscalate && !chatSession.IsEscalated {
		h.escalate(ctx, chatSession, resp, user)
	}

	return resp, nil
}

// escalate queues the session for a human and alerts staff. Failures are
// logged; the customer still gets the bot's reply.
func (h *ChatHandler) escalate(ctx context.Context, chatSession *models.ChatSession, resp *chatbot.Response, user *models.User) {
	if _, err := h.db.EscalateChatSession(ctx, chatSession.ID, resp.EscalationReason, models.PriorityMedium); err != nil {
		h.logger.Error("failed to escalate chat session", zap.Error(err), zap.String("session_id", chatSession.SessionID))
		return
	}
	chatSession.IsEscalated = true
	chatSession.Status = models.SessionEscalated
	chatSession.EscalationReason = resp.EscalationReason
	h.metrics.RecordEscalation(string(resp.Intent))

	h.logger.Info("chat session escalated",
		zap.String("session_id", chatSession.SessionID),
		zap.String("reason", resp.EscalationReason),
	)

	transcript, err := h.db.ChatMessages(ctx, chatSession.ID)
	if err != nil {
		h.logger.Warn("failed to load transcript for escalation", zap.Error(err))
	}
	if h.notifier != nil && h.chatSettings(ctx).EnableNotifications {
		h.notifier.NotifyEscalation(ctx, email.EscalationDetails{
			Session:    chatSession,
			User:       describeUser(chatSession, user),
			Reason:     resp.EscalationReason,
			Transcript: transcript,
			At:         h.now(),
		})
	}
}

// Message handles POST /chatbot/api.
func (h *ChatHandler) Message(c fiber.Ctx) error {
	var body struct {
		Message string `json:"message"`
		Channel string `json:"channel"`
		Phone   string `json:"phone"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"response": "Invalid request format", "status": "error"})
	}

	message := validation.TruncateMessage(strings.TrimSpace(body.Message))
	if message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"response": emptyMessageReply, "status": "error"})
	}
	channel := body.Channel
	if !validation.ValidateChannel(channel) {
		channel = models.ChannelWebsite
	}

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	sessionID, _ := sess.Get(SessionChatID).(string)
	if sessionID == "" {
		sessionID = uuid.NewString()
		sess.Set(SessionChatID, sessionID)
	}

	user := middleware.CurrentUser(c)
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	chatSession, err := h.db.GetOrCreateChatSession(c.Context(), &models.ChatSession{
		SessionID: sessionID,
		UserID:    userID,
		Channel:   channel,
		UserPhone: strings.TrimSpace(body.Phone),
		UserEmail: strings.TrimSpace(body.Email),
		UserIP:    clientIP(c),
	})
	if err != nil {
		h.logger.Error("failed to load chat session", zap.Error(err), zap.String("session_id", sessionID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"response": chatErrorReply, "status": "error"})
	}

	uc := &chatbot.UserContext{Channel: channel}
	if user != nil {
		uc.IsAuthenticated = true
		uc.UserID = userID
		uc.Username = user.DisplayName()
		uc.Email = user.Email
	} else {
		guestName, _ := sess.Get(SessionGuestName).(string)
		uc.IsGuest = true
		uc.Username = guestName
		uc.HasName = guestName != ""
	}

	resp, err := h.converse(c.Context(), chatSession, message, uc, user)
	if err != nil {
		h.logger.Error("chatbot API error", zap.Error(err), zap.String("session_id", sessionID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"response": chatErrorReply, "status": "error"})
	}

	if resp.GuestNameCollected != "" {
		sess.Set(SessionGuestName, resp.GuestNameCollected)
	}

	greetingType := resp.GreetingType
	if greetingType == "" {
		greetingType = defaultGreetingType
	}
	var username any
	if user != nil {
		username = user.DisplayName()
	}

	return c.JSON(fiber.Map{
		"response":           resp.Message,
		"intent":             resp.Intent,
		"confidence":         resp.Confidence,
		"suggested_actions":  resp.SuggestedActions,
		"escalated":          resp.ShouldEscalate,
		"session_id":         sessionID,
		"products":           resp.Products,
		"user_authenticated": user != nil,
		"username":           username,
		"greeting_type":      greetingType,
		"personalized":       user != nil,
		"status":             "success",
	})
}

// Feedback handles POST /chatbot/feedback.
func (h *ChatHandler) Feedback(c fiber.Ctx) error {
	var body struct {
		SessionID   string `json:"session_id"`
		Rating      int    `json:"rating"`
		Feedback    string `json:"feedback"`
		Suggestions string `json:"suggestions"`
		WasHelpful  *bool  `json:"was_helpful"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return chatError(c, fiber.StatusBadRequest, "Invalid request format")
	}
	if body.SessionID == "" || body.Rating == 0 {
		return chatError(c, fiber.StatusBadRequest, "Session ID and rating are required")
	}
	if !validation.ValidateRating(body.Rating) {
		return chatError(c, fiber.StatusBadRequest, "Rating must be between 1 and 5")
	}
	if !h.chatSettings(c.Context()).EnableFeedback {
		return chatError(c, fiber.StatusForbidden, "Feedback is currently disabled")
	}

	chatSession, err := h.db.GetChatSession(c.Context(), body.SessionID)
	if err != nil {
		if errors.Is(err, db.ErrChatSessionNotFound) {
			return chatError(c, fiber.StatusNotFound, "Chat session not found")
		}
		return chatError(c, fiber.StatusInternalServerError, "Failed to submit feedback")
	}
	if !h.canAccess(c, chatSession) {
		return chatError(c, fiber.StatusForbidden, "Permission denied")
	}

	feedback := &models.ChatFeedback{
		SessionID:    chatSession.ID,
		Rating:       body.Rating,
		FeedbackText: body.Feedback,
		Suggestions:  body.Suggestions,
		WasHelpful:   body.WasHelpful,
	}
	if err := h.db.UpsertChatFeedback(c.Context(), feedback); err != nil {
		h.logger.Error("feedback submission error", zap.Error(err))
		return chatError(c, fiber.StatusInternalServerError, "Failed to submit feedback")
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Thank you for your feedback!",
	})
}

// canAccess checks the requester against the session's owner, falling back
// to the browser session's chat id for anonymous chats.
func (h *ChatHandler) canAccess(c fiber.Ctx, chatSession *models.ChatSession) bool {
	var browserSessionID string
	if sess := session.FromContext(c); sess != nil {
		browserSessionID, _ = sess.Get(SessionChatID).(string)
	}
	return db.CanAccessChatSession(chatSession, middleware.CurrentUser(c), browserSessionID)
}

// History handles GET /chatbot/history/:session_id.
func (h *ChatHandler) History(c fiber.Ctx) error {
	sessionID := c.Params("session_id")
	chatSession, err := h.db.GetChatSession(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, db.ErrChatSessionNotFound) {
			return chatError(c, fiber.StatusNotFound, "Chat session not found")
		}
		return chatError(c, fiber.StatusInternalServerError, "Failed to retrieve chat history")
	}

	if !h.canAccess(c, chatSession) {
		return chatError(c, fiber.StatusForbidden, "Permission denied")
	}

	messages, err := h.db.ChatMessages(c.Context(), chatSession.ID)
	if err != nil {
		h.logger.Error("chat history error", zap.Error(err))
		return chatError(c, fiber.StatusInternalServerError, "Failed to retrieve chat history")
	}

	return c.JSON(fiber.Map{
		"status":     "success",
		"session_id": sessionID,
		"messages":   messages,
		"session_info": fiber.Map{
			"created_at":   chatSession.CreatedAt,
			"channel":      chatSession.Channel,
			"status":       chatSession.Status,
			"is_escalated": chatSession.IsEscalated,
		},
	})
}

// Reset handles POST /chatbot/reset. The next message starts a new session.
func (h *ChatHandler) Reset(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	if sessionID, _ := sess.Get(SessionChatID).(string); sessionID != "" {
		if err := h.engine.ResetSession(c.Context(), sessionID); err != nil {
			h.logger.Warn("failed to reset attempt counter", zap.Error(err), zap.String("session_id", sessionID))
		}
		if chatSession, err := h.db.GetChatSession(c.Context(), sessionID); err == nil {
			if err := h.db.EndChatSession(c.Context(), chatSession.ID); err != nil {
				h.logger.Warn("failed to end chat session", zap.Error(err), zap.String("session_id", sessionID))
			}
		}
		sess.Delete(SessionChatID)
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Conversation reset",
	})
}

// channelTurn handles one inbound message from an external channel.
func (h *ChatHandler) channelTurn(ctx context.Context, channel, sessionID, phone, message string) (*chatbot.Response, error) {
	chatSession, err := h.db.GetOrCreateChatSession(ctx, &models.ChatSession{
		SessionID: sessionID,
		Channel:   channel,
		UserPhone: phone,
	})
	if err != nil {
		return nil, err
	}
	return h.converse(ctx, chatSession, validation.TruncateMessage(message), &chatbot.UserContext{Channel: channel}, nil)
}

// WhatsApp handles POST /chatbot/webhook/whatsapp.
func (h *ChatHandler) WhatsApp(c fiber.Ctx) error {
	var body struct {
		From string `json:"from"`
		Text struct {
			Body string `json:"body"`
		} `json:"text"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error"})
	}

	phone := strings.TrimSpace(body.From)
	message := strings.TrimSpace(body.Text.Body)
	if phone == "" || message == "" {
		return c.JSON(fiber.Map{"status": "no_message"})
	}

	resp, err := h.channelTurn(c.Context(), models.ChannelWhatsApp, "whatsapp_"+phone, phone, message)
	if err != nil {
		h.logger.Error("WhatsApp webhook error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error"})
	}

	return c.JSON(fiber.Map{"status": "success", "response": resp.Message})
}

// Messenger handles POST /chatbot/webhook/messenger.
func (h *ChatHandler) Messenger(c fiber.Ctx) error {
	var body struct {
		Entry []struct {
			Messaging []struct {
				Sender struct {
					ID string `json:"id"`
				} `json:"sender"`
				Message struct {
					Text string `json:"text"`
				} `json:"message"`
			} `json:"messaging"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error"})
	}

	replies := 0
	for _, entry := range body.Entry {
		for _, event := range entry.Messaging {
			senderID := strings.TrimSpace(event.Sender.ID)
			message := strings.TrimSpace(event.Message.Text)
			if senderID == "" || message == "" {
				continue
			}
			if _, err := h.channelTurn(c.Context(), models.ChannelMessenger, "messenger_"+senderID, "", message); err != nil {
				h.logger.Error("Messenger webhook error", zap.Error(err))
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error"})
			}
			replies++
		}
	}

	return c.JSON(fiber.Map{"status": "success", "replies": replies})
}

// Analytics handles GET /chatbot/analytics for staff.
func (h *ChatHandler) Analytics(c fiber.Ctx) error {
	days := fiber.Query[int](c, "days", 30)
	if days <= 0 {
		days = 30
	}

	report, err := h.db.ChatReport(c.Context(), days, h.now().In(h.cfg.Location()))
	if err != nil {
		h.logger.Error("analytics data error", zap.Error(err))
		return chatError(c, fiber.StatusInternalServerError, "Failed to retrieve analytics data")
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"total_sessions":        report.TotalSessions,
			"escalated_sessions":    report.EscalatedSessions,
			"escalation_rate":       report.EscalationRate,
			"average_rating":        report.AverageRating,
			"average_response_time": report.AverageResponseTime,
			"channel_stats":         report.ChannelStats,
			"intent_stats":          report.IntentStats,
			"date_range": fiber.Map{
				"start": report.Start.Format(time.DateOnly),
				"end":   report.End.Format(time.DateOnly),
			},
		},
	})
}

// ContactSupport handles POST /chatbot/contact-support.
func (h *ChatHandler) ContactSupport(c fiber.Ctx) error {
	var req models.ContactRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return chatError(c, fiber.StatusBadRequest, "Invalid request format")
	}

	validation.NormalizeContactRequest(&req)
	if ok, msg := validation.ValidateContactRequest(&req); !ok {
		return chatError(c, fiber.StatusBadRequest, msg)
	}

	if h.notifier == nil {
		return chatError(c, fiber.StatusServiceUnavailable, "Failed to send support request. Please try again.")
	}
	if err := h.notifier.NotifyContactRequest(c.Context(), &req); err != nil {
		h.logger.Error("failed to send contact support email", zap.Error(err), zap.String("email", req.Email))
		return chatError(c, fiber.StatusBadGateway, "Failed to send support request. Please try again.")
	}

	h.logger.Info("contact support email sent", zap.String("email", req.Email), zap.String("priority", req.Priority))
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Support request sent successfully",
	})
}
