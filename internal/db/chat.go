package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"riverway/internal/models"
)

const chatSessionColumns = `id, session_id, user_id, channel, status, is_escalated, escalation_reason,
	user_phone, user_email, user_ip, created_at, updated_at, ended_at`

func scanChatSession(row pgx.Row) (*models.ChatSession, error) {
	var s models.ChatSession
	err := row.Scan(
		&s.ID, &s.SessionID, &s.UserID, &s.Channel, &s.Status, &s.IsEscalated, &s.EscalationReason,
		&s.UserPhone, &s.UserEmail, &s.UserIP, &s.CreatedAt, &s.UpdatedAt, &s.EndedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChatSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetOrCreateChatSession returns the session with s.SessionID, creating it
// from s when missing. An existing session picks up the user and any contact
// details it did not have yet.
func (d *DB) GetOrCreateChatSession(ctx context.Context, s *models.ChatSession) (*models.ChatSession, error) {
	channel := s.Channel
	if channel == "" {
		channel = models.ChannelWebsite
	}

	query := `
		INSERT INTO chat_sessions (session_id, user_id, channel, user_phone, user_email, user_ip)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			user_id = COALESCE(chat_sessions.user_id, EXCLUDED.user_id),
			user_phone = CASE WHEN EXCLUDED.user_phone != '' THEN EXCLUDED.user_phone ELSE chat_sessions.user_phone END,
			user_email = CASE WHEN EXCLUDED.user_email != '' THEN EXCLUDED.user_email ELSE chat_sessions.user_email END,
			updated_at = NOW()
		RETURNING ` + chatSessionColumns

	return scanChatSession(d.Pool.QueryRow(ctx, query, s.SessionID, s.UserID, channel, s.UserPhone, s.UserEmail, s.UserIP))
}

// GetChatSession looks a session up by its public id.
func (d *DB) GetChatSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	return scanChatSession(d.Pool.QueryRow(ctx, `SELECT `+chatSessionColumns+` FROM chat_sessions WHERE session_id = $1`, sessionID))
}

// EndChatSession marks a session ended.
func (d *DB) EndChatSession(ctx context.Context, id int64) error {
	_, err := d.Pool.Exec(ctx, `
		UPDATE chat_sessions SET status = 'ended', ended_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	return err
}

// AddChatMessage stores a message and touches the session.
func (d *DB) AddChatMessage(ctx context.Context, m *models.ChatMessage) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO chat_messages (session_id, message_type, content, intent, confidence, response_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, timestamp
	`, m.SessionID, m.MessageType, m.Content, m.Intent, m.Confidence, m.ResponseTime).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`, m.SessionID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (d *DB) queryChatMessages(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.MessageType, &m.Content, &m.Intent, &m.Confidence, &m.ResponseTime, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// RecentChatMessages returns the last limit messages of a session, oldest first.
func (d *DB) RecentChatMessages(ctx context.Context, sessionID int64, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT id, session_id, message_type, content, intent, confidence, response_time, timestamp
		FROM (
			SELECT * FROM chat_messages WHERE session_id = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC, id ASC
	`
	return d.queryChatMessages(ctx, query, sessionID, limit)
}

// ChatMessages returns the full transcript of a session.
func (d *DB) ChatMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	query := `
		SELECT id, session_id, message_type, content, intent, confidence, response_time, timestamp
		FROM chat_messages WHERE session_id = $1
		ORDER BY timestamp ASC, id ASC
	`
	return d.queryChatMessages(ctx, query, sessionID)
}

// CanAccessChatSession reports whether a requester may read or rate the
// session. Staff may access any session. A session tied to a user needs that
// user. An anonymous session needs the browser session that started it, so
// webhook sessions (no browser, guessable ids) stay staff-only.
func CanAccessChatSession(s *models.ChatSession, user *models.User, browserSessionID string) bool {
	if user != nil && user.IsStaff() {
		return true
	}
	if s.UserID != nil {
		return user != nil && *s.UserID == user.ID
	}
	return browserSessionID != "" && browserSessionID == s.SessionID
}

// UpsertChatFeedback records or replaces the rating for a session.
func (d *DB) UpsertChatFeedback(ctx context.Context, f *models.ChatFeedback) error {
	return d.Pool.QueryRow(ctx, `
		INSERT INTO chat_feedback (session_id, rating, feedback_text, suggestions, was_helpful)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			feedback_text = EXCLUDED.feedback_text,
			suggestions = EXCLUDED.suggestions,
			was_helpful = EXCLUDED.was_helpful
		RETURNING id, created_at
	`, f.SessionID, f.Rating, f.FeedbackText, f.Suggestions, f.WasHelpful).Scan(&f.ID, &f.CreatedAt)
}
