package db

import (
	"context"
	"time"

	"riverway/internal/models"
)

// DailyCount is a per-day tally for charts.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Dashboard is the staff overview of the store and the support bot.
type Dashboard struct {
	TotalProducts     int              `json:"total_products"`
	TotalCategories   int              `json:"total_categories"`
	TotalOrders       int              `json:"total_orders"`
	TotalRevenue      float64          `json:"total_revenue"`
	TotalUsers        int              `json:"total_users"`
	WeeklyOrders      int              `json:"weekly_orders"`
	WeeklyRevenue     float64          `json:"weekly_revenue"`
	LowStockProducts  []models.Product `json:"low_stock_products"`
	RecentOrders      []models.Order   `json:"recent_orders"`
	OrderStatus       []CountStat      `json:"order_status"`
	CategoryProducts  []CountStat      `json:"category_products"`
	ChatSessionsToday int              `json:"chat_sessions_today"`
	TotalChatSessions int              `json:"total_chat_sessions"`
	EscalatedChats    int              `json:"escalated_chats"`
	OpenEscalations   int              `json:"open_escalations"`
	ChatSatisfaction  float64          `json:"chat_satisfaction"`
	ChatActivity      []DailyCount     `json:"chat_activity"` // last 7 days
	TopIntents        []CountStat      `json:"top_intents"`
}

// LowStockThreshold is the stock level at which the dashboard flags a product.
const LowStockThreshold = 10

// Dashboard gathers the staff overview as of now.
func (d *DB) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := today.AddDate(0, 0, -7)

	var dash Dashboard
	err := d.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products WHERE is_active),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_amount), 0)::float8 FROM orders WHERE status != 'cancelled'),
			(SELECT COUNT(*) FROM orders WHERE created_at >= $1),
			(SELECT COALESCE(SUM(total_amount), 0)::float8 FROM orders WHERE created_at >= $1 AND status != 'cancelled'),
			(SELECT COUNT(*) FROM chat_sessions WHERE created_at >= $2),
			(SELECT COUNT(*) FROM chat_sessions),
			(SELECT COUNT(*) FROM chat_sessions WHERE is_escalated),
			(SELECT COUNT(*) FROM escalation_queue WHERE NOT is_resolved),
			(SELECT COALESCE(AVG(rating), 0)::float8 FROM chat_feedback)
	`, weekAgo, today).Scan(
		&dash.TotalProducts, &dash.TotalCategories, &dash.TotalOrders, &dash.TotalRevenue,
		&dash.WeeklyOrders, &dash.WeeklyRevenue, &dash.ChatSessionsToday, &dash.TotalChatSessions,
		&dash.EscalatedChats, &dash.OpenEscalations, &dash.ChatSatisfaction,
	)
	if err != nil {
		return nil, err
	}
	dash.ChatSatisfaction = roundTo(dash.ChatSatisfaction, 1)

	if dash.TotalUsers, err = d.GetUserCount(ctx); err != nil {
		return nil, err
	}

	if dash.LowStockProducts, err = d.LowStockProducts(ctx, LowStockThreshold); err != nil {
		return nil, err
	}
	if dash.RecentOrders, err = d.RecentOrders(ctx, 5); err != nil {
		return nil, err
	}
	if dash.OrderStatus, err = d.countStats(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`); err != nil {
		return nil, err
	}
	if dash.CategoryProducts, err = d.countStats(ctx, `
		SELECT c.name, COUNT(p.id) FROM categories c
		LEFT JOIN products p ON p.category_id = c.id AND p.is_active
		GROUP BY c.name ORDER BY COUNT(p.id) DESC, c.name
	`); err != nil {
		return nil, err
	}
	if dash.TopIntents, err = d.countStats(ctx, `
		SELECT intent, COUNT(*) FROM chat_messages WHERE intent != ''
		GROUP BY intent ORDER BY COUNT(*) DESC, intent LIMIT 5
	`); err != nil {
		return nil, err
	}

	dash.ChatActivity, err = d.chatActivity(ctx, today, 7)
	if err != nil {
		return nil, err
	}

	return &dash, nil
}

// chatActivity counts sessions per day for the days ending today, zero-filled.
func (d *DB) chatActivity(ctx context.Context, today time.Time, days int) ([]DailyCount, error) {
	start := today.AddDate(0, 0, -(days - 1))
	activity := make([]DailyCount, days)
	for i := range activity {
		activity[i].Date = start.AddDate(0, 0, i)
	}

	rows, err := d.Pool.Query(ctx, `
		SELECT created_at FROM chat_sessions WHERE created_at >= $1 AND created_at < $2
	`, start, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var created time.Time
		if err := rows.Scan(&created); err != nil {
			return nil, err
		}
		created = created.In(today.Location())
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, today.Location())
		if i := int(day.Sub(start).Hours() / 24); i >= 0 && i < days {
			activity[i].Count++
		}
	}

	return activity, rows.Err()
}

// ExportProducts returns every product, active or not, for CSV export.
func (d *DB) ExportProducts(ctx context.Context) ([]models.Product, error) {
	return d.queryProducts(ctx, `SELECT `+productColumns+productFrom+`ORDER BY c.name, p.name`)
}

// ExportOrders returns every order for CSV export.
func (d *DB) ExportOrders(ctx context.Context) ([]models.Order, error) {
	return d.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

// ChatSessionSummary is a session with its message count.
type ChatSessionSummary struct {
	models.ChatSession
	MessageCount int `json:"message_count"`
}

// ExportChatSessions returns sessions created since the given time.
func (d *DB) ExportChatSessions(ctx context.Context, since time.Time) ([]ChatSessionSummary, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT s.id, s.session_id, s.user_id, s.channel, s.status, s.is_escalated, s.escalation_reason,
		       s.user_phone, s.user_email, s.user_ip, s.created_at, s.updated_at, s.ended_at,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id)
		FROM chat_sessions s
		WHERE s.created_at >= $1
		ORDER BY s.created_at DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []ChatSessionSummary
	for rows.Next() {
		var s ChatSessionSummary
		if err := rows.Scan(
			&s.ID, &s.SessionID, &s.UserID, &s.Channel, &s.Status, &s.IsEscalated, &s.EscalationReason,
			&s.UserPhone, &s.UserEmail, &s.UserIP, &s.CreatedAt, &s.UpdatedAt, &s.EndedAt,
			&s.MessageCount,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
