package chatbot

import (
	"context"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"riverway/internal/models"
)

// DefaultFAQThreshold is the minimum combined score for an FAQ answer.
const DefaultFAQThreshold = 0.7

const keywordHitWeight = 0.5

// FAQStore is the read side of the FAQ catalog plus the view counter.
type FAQStore interface {
	ActiveFAQs(ctx context.Context) ([]models.FAQ, error)
	IncrementFAQViewCount(ctx context.Context, id int64) error
}

// FAQMatcher finds the stored answer closest to an utterance.
type FAQMatcher struct {
	store  FAQStore
	logger *zap.Logger
}

// NewFAQMatcher creates a matcher over store.
func NewFAQMatcher(store FAQStore, logger *zap.Logger) *FAQMatcher {
	return &FAQMatcher{store: store, logger: logger}
}

// SequenceRatio is the Ratcliff/Obershelp similarity of a and b in [0,1],
// computed over characters.
func SequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}

// ScoreFAQ returns max(question similarity, keyword score) for text, which
// must already be lower-cased.
func ScoreFAQ(text string, faq *models.FAQ) float64 {
	questionScore := SequenceRatio(text, strings.ToLower(faq.Question))

	keywordScore := 0.0
	for _, kw := range strings.Split(faq.Keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			keywordScore += keywordHitWeight
		}
	}
	keywordScore = min(keywordScore, 1.0)

	return max(questionScore, keywordScore)
}

// FindBestMatch returns the active FAQ with the highest score at or above
// threshold, or nil. A matched FAQ has its view count incremented.
func (m *FAQMatcher) FindBestMatch(ctx context.Context, text string, threshold float64) *models.FAQ {
	faqs, err := m.store.ActiveFAQs(ctx)
	if err != nil {
		m.logger.Error("failed to load FAQs", zap.Error(err))
		return nil
	}

	lower := strings.ToLower(text)
	var best *models.FAQ
	bestScore := 0.0

	for i := range faqs {
		score := ScoreFAQ(lower, &faqs[i])
		if score > bestScore && score >= threshold {
			bestScore = score
			best = &faqs[i]
		}
	}

	if best == nil {
		return nil
	}

	if err := m.store.IncrementFAQViewCount(ctx, best.ID); err != nil {
		m.logger.Warn("failed to record FAQ view", zap.Int64("faq_id", best.ID), zap.Error(err))
	} else {
		best.ViewCount++
	}

	m.logger.Debug("faq matched", zap.Int64("faq_id", best.ID), zap.Float64("score", bestScore))
	return best
}
