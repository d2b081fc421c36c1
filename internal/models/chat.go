package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat channels
const (
	ChannelWebsite   = "website"
	ChannelWhatsApp  = "whatsapp"
	ChannelMessenger = "messenger"
	ChannelSMS       = "sms"
)

// Chat session statuses
const (
	SessionActive    = "active"
	SessionEnded     = "ended"
	SessionEscalated = "escalated"
	SessionAbandoned = "abandoned"
)

// Message types
const (
	MessageUser   = "user"
	MessageBot    = "bot"
	MessageAgent  = "agent"
	MessageSystem = "system"
)

// ChatSession is one conversation with the support bot.
type ChatSession struct {
	ID               int64      `json:"id"`
	SessionID        string     `json:"session_id"`
	UserID           *uuid.UUID `json:"user_id,omitempty"`
	Channel          string     `json:"channel"`
	Status           string     `json:"status"`
	IsEscalated      bool       `json:"is_escalated"`
	EscalationReason string     `json:"escalation_reason"`
	UserPhone        string     `json:"user_phone"`
	UserEmail        string     `json:"user_email"`
	UserIP           string     `json:"user_ip"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

// ChatMessage is a single turn in a session.
type ChatMessage struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"-"`
	MessageType  string    `json:"type"`
	Content      string    `json:"content"`
	Intent       string    `json:"intent"`
	Confidence   *float64  `json:"confidence"`
	ResponseTime *float64  `json:"response_time,omitempty"` // seconds
	Timestamp    time.Time `json:"timestamp"`
}

// ChatFeedback is the customer's rating of a session.
type ChatFeedback struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"-"`
	Rating       int       `json:"rating"`
	FeedbackText string    `json:"feedback"`
	Suggestions  string    `json:"suggestions"`
	WasHelpful   *bool     `json:"was_helpful"`
	CreatedAt    time.Time `json:"created_at"`
}

// Escalation priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Escalation is a queued hand-off to a human agent.
type Escalation struct {
	ID              int64      `json:"id"`
	SessionID       int64      `json:"-"`
	ChatSessionID   string     `json:"session_id"`
	Channel         string     `json:"channel"`
	Priority        string     `json:"priority"`
	AssignedAgentID *uuid.UUID `json:"assigned_agent_id,omitempty"`
	EscalationTime  time.Time  `json:"escalation_time"`
	ResolutionTime  *time.Time `json:"resolution_time,omitempty"`
	Notes           string     `json:"notes"`
	IsResolved      bool       `json:"is_resolved"`
}

// Notification types
const (
	NotificationEscalation     = "escalation"
	NotificationOrderStatus    = "order_status"
	NotificationContactRequest = "contact_request"
)

// Notification records an outbound message for auditing.
type Notification struct {
	ID               int64      `json:"id"`
	UserID           *uuid.UUID `json:"user_id,omitempty"`
	SessionID        *int64     `json:"session_id,omitempty"`
	NotificationType string     `json:"notification_type"`
	Channel          string     `json:"channel"`
	Recipient        string     `json:"recipient"`
	Subject          string     `json:"subject"`
	Message          string     `json:"message"`
	Status           string     `json:"status"`
	SentTime         *time.Time `json:"sent_time,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ChatAnalytics is the daily roll-up of chat activity.
type ChatAnalytics struct {
	Date                   time.Time `json:"date"`
	TotalSessions          int       `json:"total_sessions"`
	ResolvedQueries        int       `json:"resolved_queries"`
	EscalatedQueries       int       `json:"escalated_queries"`
	AverageResponseTime    float64   `json:"average_response_time"`
	AverageSessionDuration float64   `json:"average_session_duration"`
	UserSatisfactionScore  float64   `json:"user_satisfaction_score"`
	ChannelWebsite         int       `json:"channel_website"`
	ChannelWhatsApp        int       `json:"channel_whatsapp"`
	ChannelMessenger       int       `json:"channel_messenger"`
	MostCommonIntent       string    `json:"most_common_intent"`
}

// Contact request priorities
var ContactPriorities = []string{"low", "medium", "high", "critical"}

// ContactRequest is a support request submitted from the chat widget.
type ContactRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}
