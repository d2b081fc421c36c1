package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"riverway/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	settings    *models.ChatbotSettings
	settingsErr error
	maxIdle     []time.Duration
	rollups     []time.Time
}

func (f *fakeStore) AbandonIdleSessions(_ context.Context, maxIdle time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxIdle = append(f.maxIdle, maxIdle)
	return 2, nil
}

func (f *fakeStore) RollupChatAnalytics(_ context.Context, day time.Time) (*models.ChatAnalytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollups = append(f.rollups, day)
	return &models.ChatAnalytics{Date: day}, nil
}

func (f *fakeStore) ChatbotSettings(context.Context) (*models.ChatbotSettings, error) {
	return f.settings, f.settingsErr
}

func (f *fakeStore) runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rollups)
}

func TestRunOnce_UsesStoredDuration(t *testing.T) {
	store := &fakeStore{settings: &models.ChatbotSettings{MaxSessionDuration: 600, EnableAnalytics: true}}
	accra, _ := time.LoadLocation("Africa/Accra")
	j := NewSessionJanitor(store, time.Minute, accra, zaptest.NewLogger(t))
	j.now = func() time.Time { return time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC) }

	j.RunOnce(context.Background())

	assert.Equal(t, []time.Duration{10 * time.Minute}, store.maxIdle)
	assert.Len(t, store.rollups, 1)
	assert.Equal(t, 1, store.rollups[0].Day())
}

func TestRunOnce_DefaultsWhenSettingsFail(t *testing.T) {
	store := &fakeStore{settingsErr: errors.New("db down")}
	j := NewSessionJanitor(store, time.Minute, nil, zaptest.NewLogger(t))

	j.RunOnce(context.Background())

	assert.Equal(t, []time.Duration{time.Hour}, store.maxIdle)
}

func TestRunOnce_SkipsRollupWhenAnalyticsDisabled(t *testing.T) {
	store := &fakeStore{settings: &models.ChatbotSettings{MaxSessionDuration: 300}}
	j := NewSessionJanitor(store, time.Minute, time.UTC, zaptest.NewLogger(t))

	j.RunOnce(context.Background())

	assert.Equal(t, []time.Duration{5 * time.Minute}, store.maxIdle)
	assert.Empty(t, store.rollups)
}

func TestStart_StopsOnCancel(t *testing.T) {
	store := &fakeStore{settings: &models.ChatbotSettings{MaxSessionDuration: 60, EnableAnalytics: true}}
	j := NewSessionJanitor(store, 10*time.Millisecond, time.UTC, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.runs() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestNewSessionJanitor_NonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		j := NewSessionJanitor(&fakeStore{}, interval, nil, zaptest.NewLogger(t))
		assert.Equal(t, DefaultJanitorInterval, j.interval, "interval %v", interval)
	}
}

func TestStart_ZeroIntervalDoesNotPanic(t *testing.T) {
	store := &fakeStore{settings: &models.ChatbotSettings{MaxSessionDuration: 60, EnableAnalytics: true}}
	j := NewSessionJanitor(store, 0, time.UTC, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		j.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return store.runs() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
