package db

import (
	"context"
	"math"
	"time"

	"riverway/internal/models"
)

// CountStat is a labelled count, e.g. sessions per channel.
type CountStat struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ChatReport summarises chat activity between two dates, inclusive.
type ChatReport struct {
	Start               time.Time   `json:"start"`
	End                 time.Time   `json:"end"`
	TotalSessions       int         `json:"total_sessions"`
	EscalatedSessions   int         `json:"escalated_sessions"`
	EscalationRate      float64     `json:"escalation_rate"` // percent
	AverageRating       float64     `json:"average_rating"`
	AverageResponseTime float64     `json:"average_response_time"` // seconds
	ChannelStats        []CountStat `json:"channel_stats"`
	IntentStats         []CountStat `json:"intent_stats"`
}

// ChatReport aggregates sessions, feedback and bot messages over the last
// days days, ending today.
func (d *DB) ChatReport(ctx context.Context, days int, now time.Time) (*ChatReport, error) {
	if days <= 0 {
		days = 30
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := end.AddDate(0, 0, -days)
	until := end.AddDate(0, 0, 1)

	r := &ChatReport{Start: start, End: end}

	err := d.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_escalated)
		FROM chat_sessions WHERE created_at >= $1 AND created_at < $2
	`, start, until).Scan(&r.TotalSessions, &r.EscalatedSessions)
	if err != nil {
		return nil, err
	}
	if r.TotalSessions > 0 {
		r.EscalationRate = roundTo(float64(r.EscalatedSessions)/float64(r.TotalSessions)*100, 2)
	}

	err = d.Pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8 FROM chat_feedback WHERE created_at >= $1 AND created_at < $2
	`, start, until).Scan(&r.AverageRating)
	if err != nil {
		return nil, err
	}
	r.AverageRating = roundTo(r.AverageRating, 2)

	err = d.Pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(response_time), 0) FROM chat_messages
		WHERE message_type = 'bot' AND response_time IS NOT NULL AND timestamp >= $1 AND timestamp < $2
	`, start, until).Scan(&r.AverageResponseTime)
	if err != nil {
		return nil, err
	}
	r.AverageResponseTime = roundTo(r.AverageResponseTime, 3)

	r.ChannelStats, err = d.countStats(ctx, `
		SELECT channel, COUNT(*) FROM chat_sessions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY channel ORDER BY COUNT(*) DESC, channel
	`, start, until)
	if err != nil {
		return nil, err
	}

	r.IntentStats, err = d.countStats(ctx, `
		SELECT intent, COUNT(*) FROM chat_messages
		WHERE message_type = 'bot' AND intent != '' AND timestamp >= $1 AND timestamp < $2
		GROUP BY intent ORDER BY COUNT(*) DESC, intent
		LIMIT 10
	`, start, until)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (d *DB) countStats(ctx context.Context, query string, args ...any) ([]CountStat, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []CountStat{}
	for rows.Next() {
		var s CountStat
		if err := rows.Scan(&s.Label, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// IntentCounts returns how often the bot answered with each intent, for the
// metrics collector.
func (d *DB) IntentCounts(ctx context.Context) (map[string]int, error) {
	stats, err := d.countStats(ctx, `
		SELECT intent, COUNT(*) FROM chat_messages
		WHERE message_type = 'bot' AND intent != ''
		GROUP BY intent
	`)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(stats))
	for _, s := range stats {
		counts[s.Label] = s.Count
	}
	return counts, nil
}

// AbandonIdleSessions marks active sessions untouched for longer than maxIdle
// as abandoned and returns how many changed.
func (d *DB) AbandonIdleSessions(ctx context.Context, maxIdle time.Duration) (int64, error) {
	tag, err := d.Pool.Exec(ctx, `
		UPDATE chat_sessions
		SET status = 'abandoned', ended_at = NOW(), updated_at = NOW()
		WHERE status = 'active' AND updated_at < NOW() - make_interval(secs => $1)
	`, maxIdle.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RollupChatAnalytics computes and stores the analytics row for the day
// containing day (in day's location).
func (d *DB) RollupChatAnalytics(ctx context.Context, day time.Time) (*models.ChatAnalytics, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	a := &models.ChatAnalytics{Date: start}
	err := d.Pool.QueryRow(ctx, `
		WITH sessions AS (
			SELECT * FROM chat_sessions WHERE created_at >= $1 AND created_at < $2
		),
		bot AS (
			SELECT m.* FROM chat_messages m JOIN sessions s ON s.id = m.session_id
			WHERE m.message_type = 'bot'
		)
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM sessions WHERE NOT is_escalated AND status IN ('ended', 'abandoned')),
			(SELECT COUNT(*) FROM sessions WHERE is_escalated),
			(SELECT COALESCE(AVG(response_time), 0) FROM bot WHERE response_time IS NOT NULL),
			(SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (COALESCE(ended_at, updated_at) - created_at))), 0)::float8 FROM sessions),
			(SELECT COALESCE(AVG(f.rating), 0)::float8 FROM chat_feedback f JOIN sessions s ON s.id = f.session_id),
			(SELECT COUNT(*) FROM sessions WHERE channel = 'website'),
			(SELECT COUNT(*) FROM sessions WHERE channel = 'whatsapp'),
			(SELECT COUNT(*) FROM sessions WHERE channel = 'messenger'),
			COALESCE((SELECT intent FROM bot WHERE intent != '' GROUP BY intent ORDER BY COUNT(*) DESC, intent LIMIT 1), '')
	`, start, end).Scan(
		&a.TotalSessions, &a.ResolvedQueries, &a.EscalatedQueries, &a.AverageResponseTime,
		&a.AverageSessionDuration, &a.UserSatisfactionScore, &a.ChannelWebsite, &a.ChannelWhatsApp,
		&a.ChannelMessenger, &a.MostCommonIntent,
	)
	if err != nil {
		return nil, err
	}

	_, err = d.Pool.Exec(ctx, `
		INSERT INTO chat_analytics (date, total_sessions, resolved_queries, escalated_queries,
			average_response_time, average_session_duration, user_satisfaction_score,
			channel_website, channel_whatsapp, channel_messenger, most_common_intent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (date) DO UPDATE SET
			total_sessions = EXCLUDED.total_sessions,
			resolved_queries = EXCLUDED.resolved_queries,
			escalated_queries = EXCLUDED.escalated_queries,
			average_response_time = EXCLUDED.average_response_time,
			average_session_duration = EXCLUDED.average_session_duration,
			user_satisfaction_score = EXCLUDED.user_satisfaction_score,
			channel_website = EXCLUDED.channel_website,
			channel_whatsapp = EXCLUDED.channel_whatsapp,
			channel_messenger = EXCLUDED.channel_messenger,
			most_common_intent = EXCLUDED.most_common_intent
	`, start, a.TotalSessions, a.ResolvedQueries, a.EscalatedQueries,
		a.AverageResponseTime, a.AverageSessionDuration, a.UserSatisfactionScore,
		a.ChannelWebsite, a.ChannelWhatsApp, a.ChannelMessenger, a.MostCommonIntent)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
