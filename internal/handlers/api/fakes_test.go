package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"riverway/internal/chatbot"
	"riverway/internal/config"
	"riverway/internal/db"
	"riverway/internal/email"
	"riverway/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		BusinessTimezone: "UTC",
		BrandName:        "Riverway Company",
		CurrencySymbol:   "₵",
	}
}

// newTestApp builds an app with in-memory sessions. When user is non-nil it
// is installed as the signed-in user for every request.
func newTestApp(user *models.User) *fiber.App {
	app := fiber.New()
	sessionMiddleware, _ := session.NewWithStore()
	app.Use(sessionMiddleware)
	if user != nil {
		app.Use(func(c fiber.Ctx) error {
			c.Locals("user", user)
			return c.Next()
		})
	}
	return app
}

type testResponse struct {
	Status  int
	Body    map[string]any
	Raw     string
	Cookies []*http.Cookie
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, cookies []*http.Cookie) testResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := testResponse{Status: resp.StatusCode, Raw: string(raw), Cookies: resp.Cookies()}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	if len(out.Cookies) == 0 {
		out.Cookies = cookies
	}
	return out
}

// fakeChatStore keeps chat data in memory.
type fakeChatStore struct {
	mu          sync.Mutex
	nextID      int64
	sessions    map[string]*models.ChatSession
	messages    map[int64][]models.ChatMessage
	feedback    []*models.ChatFeedback
	escalations []string
	report      *db.ChatReport
	reportDays  int
	err         error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		sessions: make(map[string]*models.ChatSession),
		messages: make(map[int64][]models.ChatMessage),
	}
}

func (f *fakeChatStore) GetOrCreateChatSession(_ context.Context, s *models.ChatSession) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if existing, ok := f.sessions[s.SessionID]; ok {
		return existing, nil
	}
	f.nextID++
	created := *s
	created.ID = f.nextID
	created.Status = models.SessionActive
	created.CreatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.sessions[s.SessionID] = &created
	return &created, nil
}

func (f *fakeChatStore) GetChatSession(_ context.Context, sessionID string) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, db.ErrChatSessionNotFound
}

func (f *fakeChatStore) EndChatSession(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id && s.Status == models.SessionActive {
			s.Status = models.SessionEnded
		}
	}
	return nil
}

func (f *fakeChatStore) AddChatMessage(_ context.Context, m *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = int64(len(f.messages[m.SessionID]) + 1)
	f.messages[m.SessionID] = append(f.messages[m.SessionID], *m)
	return nil
}

func (f *fakeChatStore) RecentChatMessages(_ context.Context, sessionID int64, limit int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.ChatMessage(nil), msgs...), nil
}

func (f *fakeChatStore) ChatMessages(_ context.Context, sessionID int64) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatMessage(nil), f.messages[sessionID]...), nil
}

func (f *fakeChatStore) EscalateChatSession(_ context.Context, sessionID int64, reason, priority string) (*models.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalations = append(f.escalations, reason)
	return &models.Escalation{ID: int64(len(f.escalations)), SessionID: sessionID, Priority: priority}, nil
}

func (f *fakeChatStore) UpsertChatFeedback(_ context.Context, fb *models.ChatFeedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, fb)
	return nil
}

func (f *fakeChatStore) ChatReport(_ context.Context, days int, _ time.Time) (*db.ChatReport, error) {
	f.reportDays = days
	if f.report == nil {
		return &db.ChatReport{}, nil
	}
	return f.report, nil
}

func (f *fakeChatStore) messageCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return 0
	}
	return len(f.messages[s.ID])
}

// fakeResponder returns a canned reply and records requests.
type fakeResponder struct {
	mu       sync.Mutex
	reply    chatbot.Response
	requests []chatbot.Request
	resets   []string
}

func (f *fakeResponder) GenerateResponse(_ context.Context, req chatbot.Request) *chatbot.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	resp := f.reply
	return &resp
}

func (f *fakeResponder) ResetSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return nil
}

func (f *fakeResponder) lastRequest() chatbot.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeNotifier struct {
	mu          sync.Mutex
	escalations []email.EscalationDetails
	contacts    []models.ContactRequest
	orders      []*models.Order
	contactErr  error
}

func (f *fakeNotifier) NotifyEscalation(_ context.Context, d email.EscalationDetails) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalations = append(f.escalations, d)
}

func (f *fakeNotifier) NotifyContactRequest(_ context.Context, req *models.ContactRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contactErr != nil {
		return f.contactErr
	}
	f.contacts = append(f.contacts, *req)
	return nil
}

func (f *fakeNotifier) NotifyOrderPlaced(_ context.Context, order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
}

type fakeSettings struct {
	settings *models.ChatbotSettings
}

func (f fakeSettings) ChatbotSettings(context.Context) (*models.ChatbotSettings, error) {
	return f.settings, nil
}

func newUser(role string) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Sub:       "sub-" + role,
		Email:     role + "@example.com",
		Name:      "Kofi Mensah",
		FirstName: "Kofi",
		Phone:     "+233 24 123 4567",
		Role:      role,
	}
}
