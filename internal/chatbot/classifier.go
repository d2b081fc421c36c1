package chatbot

import (
	"regexp"
	"strings"
)

const (
	matchWeight   = 0.3
	maxConfidence = 1.0
)

// Classification is the best-scoring intent for an utterance. Confidence is a
// clamped accumulation of match counts, not a probability.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier scores utterances against the fixed intent and sentiment pattern sets.
type Classifier struct {
	intents []intentDefinition
}

// NewClassifier returns a classifier over the built-in intent catalog.
func NewClassifier() *Classifier {
	return &Classifier{intents: intentDefinitions}
}

// ClassifyIntent returns the intent with the strictly highest score, or
// (unknown, 0) when nothing matches.
func (c *Classifier) ClassifyIntent(text string) Classification {
	lower := strings.ToLower(text)
	best := Classification{Intent: IntentUnknown}

	for _, def := range c.intents {
		score := 0.0
		for _, re := range def.patterns {
			if n := countMatches(re, lower); n > 0 {
				score += float64(n) * matchWeight
			}
		}
		score = min(score, maxConfidence)

		if score > best.Confidence {
			best = Classification{Intent: def.intent, Confidence: score}
		}
	}

	return best
}

// ClassifySentiment compares negative and positive match counts; a tie is neutral.
func (c *Classifier) ClassifySentiment(text string) Sentiment {
	lower := strings.ToLower(text)

	positive := countAll(positivePatterns, lower)
	negative := countAll(negativePatterns, lower)

	switch {
	case negative > positive:
		return SentimentNegative
	case positive > negative:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

func countMatches(re *regexp.Regexp, s string) int {
	return len(re.FindAllStringIndex(s, -1))
}

func countAll(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, re := range patterns {
		n += countMatches(re, s)
	}
	return n
}
