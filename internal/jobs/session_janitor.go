package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"riverway/internal/models"
)

// JanitorStore is the slice of the database the janitor needs.
type JanitorStore interface {
	AbandonIdleSessions(ctx context.Context, maxIdle time.Duration) (int64, error)
	RollupChatAnalytics(ctx context.Context, day time.Time) (*models.ChatAnalytics, error)
	ChatbotSettings(ctx context.Context) (*models.ChatbotSettings, error)
}

// DefaultJanitorInterval is used when the configured interval is not positive.
const DefaultJanitorInterval = 10 * time.Minute

// SessionJanitor closes chat sessions nobody has touched for longer than the
// configured maximum session duration and keeps today's analytics row fresh.
type SessionJanitor struct {
	store    JanitorStore
	interval time.Duration
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewSessionJanitor creates a janitor that runs every interval. Analytics
// days are cut in loc.
func NewSessionJanitor(store JanitorStore, interval time.Duration, loc *time.Location, logger *zap.Logger) *SessionJanitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionJanitor{
		store:    store,
		interval: interval,
		location: loc,
		now:      time.Now,
		logger:   logger.Named("janitor"),
	}
}

// Start begins the background loop. It returns when ctx is cancelled.
func (j *SessionJanitor) Start(ctx context.Context) {
	j.logger.Info("session janitor started", zap.Duration("interval", j.interval))

	// Run immediately on start
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep.
func (j *SessionJanitor) RunOnce(ctx context.Context) {
	maxIdle := time.Duration(models.DefaultChatbotSettings().MaxSessionDuration) * time.Second
	analytics := true
	if settings, err := j.store.ChatbotSettings(ctx); err != nil {
		j.logger.Warn("using default session duration", zap.Error(err))
	} else if settings != nil {
		if settings.MaxSessionDuration > 0 {
			maxIdle = time.Duration(settings.MaxSessionDuration) * time.Second
		}
		analytics = settings.EnableAnalytics
	}

	abandoned, err := j.store.AbandonIdleSessions(ctx, maxIdle)
	if err != nil {
		j.logger.Error("failed to close idle sessions", zap.Error(err))
	} else if abandoned > 0 {
		j.logger.Info("closed idle chat sessions", zap.Int64("count", abandoned), zap.Duration("max_idle", maxIdle))
	}

	if !analytics {
		return
	}
	now := j.now().In(j.location)
	if _, err := j.store.RollupChatAnalytics(ctx, now); err != nil {
		j.logger.Error("failed to roll up chat analytics", zap.Error(err), zap.Time("day", now))
	}
}
