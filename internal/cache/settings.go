// Package cache keeps hot, rarely-changing reference data in process memory
// using Ristretto.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"riverway/internal/chatbot"
	"riverway/internal/models"
)

const (
	keyBusinessHours   = "business_hours"
	keyCompanyInfo     = "company_info"
	keyChatbotSettings = "chatbot_settings"
)

// SettingsCache decorates a chatbot.SettingsStore. Every chat turn reads the
// business hours and settings rows; caching them for a short TTL keeps those
// lookups off the database. Errors from the underlying store are never cached.
type SettingsCache struct {
	next   chatbot.SettingsStore
	cache  *ristretto.Cache[string, any]
	ttl    time.Duration
	logger *zap.Logger
}

var _ chatbot.SettingsStore = (*SettingsCache)(nil)

// NewSettingsCache wraps next. A non-positive ttl defaults to one minute.
func NewSettingsCache(next chatbot.SettingsStore, ttl time.Duration, logger *zap.Logger) (*SettingsCache, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters:        100,
		MaxCost:            100,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	return &SettingsCache{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.Named("settings_cache"),
	}, nil
}

// BusinessHours implements chatbot.SettingsStore.
func (s *SettingsCache) BusinessHours(ctx context.Context) ([]models.BusinessHours, error) {
	return load(s, keyBusinessHours, func() ([]models.BusinessHours, error) {
		return s.next.BusinessHours(ctx)
	})
}

// CompanyInfo implements chatbot.SettingsStore.
func (s *SettingsCache) CompanyInfo(ctx context.Context) (*models.CompanyInfo, error) {
	return load(s, keyCompanyInfo, func() (*models.CompanyInfo, error) {
		return s.next.CompanyInfo(ctx)
	})
}

// ChatbotSettings implements chatbot.SettingsStore.
func (s *SettingsCache) ChatbotSettings(ctx context.Context) (*models.ChatbotSettings, error) {
	return load(s, keyChatbotSettings, func() (*models.ChatbotSettings, error) {
		return s.next.ChatbotSettings(ctx)
	})
}

// Invalidate drops every cached entry, typically after staff edit settings.
func (s *SettingsCache) Invalidate() {
	s.cache.Clear()
}

// Close releases the cache's background goroutines.
func (s *SettingsCache) Close() {
	s.cache.Close()
}

func load[T any](s *SettingsCache, key string, fetch func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	if !s.cache.SetWithTTL(key, v, 1, s.ttl) {
		s.logger.Debug("cache set dropped", zap.String("key", key))
	}
	s.cache.Wait()
	return v, nil
}
