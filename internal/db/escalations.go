package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"riverway/internal/models"
)

// EscalateChatSession flags the session as handed off and queues it for an
// agent. Escalating an already queued session updates the notes only.
func (d *DB) EscalateChatSession(ctx context.Context, sessionID int64, reason, priority string) (*models.Escalation, error) {
	if priority == "" {
		priority = models.PriorityMedium
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var e models.Escalation
	err = tx.QueryRow(ctx, `
		UPDATE chat_sessions
		SET is_escalated = TRUE, status = 'escalated', escalation_reason = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING session_id, channel
	`, sessionID, reason).Scan(&e.ChatSessionID, &e.Channel)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrChatSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO escalation_queue (session_id, priority, notes)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET notes = EXCLUDED.notes
		RETURNING id, session_id, priority, assigned_agent_id, escalation_time, resolution_time, notes, is_resolved
	`, sessionID, priority, reason).Scan(
		&e.ID, &e.SessionID, &e.Priority, &e.AssignedAgentID, &e.EscalationTime, &e.ResolutionTime, &e.Notes, &e.IsResolved,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEscalations returns queued escalations, newest first.
func (d *DB) ListEscalations(ctx context.Context, unresolvedOnly bool) ([]models.Escalation, error) {
	query := `
		SELECT e.id, e.session_id, s.session_id, s.channel, e.priority, e.assigned_agent_id,
		       e.escalation_time, e.resolution_time, e.notes, e.is_resolved
		FROM escalation_queue e
		JOIN chat_sessions s ON s.id = e.session_id
		WHERE NOT $1 OR NOT e.is_resolved
		ORDER BY CASE e.priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
		         e.escalation_time DESC
	`

	rows, err := d.Pool.Query(ctx, query, unresolvedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escalations []models.Escalation
	for rows.Next() {
		var e models.Escalation
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.ChatSessionID, &e.Channel, &e.Priority, &e.AssignedAgentID,
			&e.EscalationTime, &e.ResolutionTime, &e.Notes, &e.IsResolved,
		); err != nil {
			return nil, err
		}
		escalations = append(escalations, e)
	}

	return escalations, rows.Err()
}

// ResolveEscalation closes an escalation and ends its chat session.
func (d *DB) ResolveEscalation(ctx context.Context, id int64, agentID uuid.UUID, notes string) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var sessionID int64
	err = tx.QueryRow(ctx, `
		UPDATE escalation_queue
		SET is_resolved = TRUE, resolution_time = NOW(), assigned_agent_id = $2,
		    notes = CASE WHEN $3 = '' THEN notes ELSE $3 END
		WHERE id = $1 AND NOT is_resolved
		RETURNING session_id
	`, id, agentID, notes).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEscalationNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE chat_sessions SET status = 'ended', ended_at = NOW(), updated_at = NOW() WHERE id = $1
	`, sessionID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreateNotification records an outbound message.
func (d *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.Status == "" {
		n.Status = "pending"
	}
	if n.Channel == "" {
		n.Channel = "email"
	}
	return d.Pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, session_id, notification_type, channel, recipient, subject, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, n.UserID, n.SessionID, n.NotificationType, n.Channel, n.Recipient, n.Subject, n.Message, n.Status,
	).Scan(&n.ID, &n.CreatedAt)
}

// MarkNotification stores the delivery outcome of a notification.
func (d *DB) MarkNotification(ctx context.Context, id int64, sent bool) error {
	status := "failed"
	if sent {
		status = "sent"
	}
	_, err := d.Pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2, sent_time = CASE WHEN $2 = 'sent' THEN NOW() ELSE sent_time END
		WHERE id = $1
	`, id, status)
	return err
}
