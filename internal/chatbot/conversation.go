package chatbot

import (
	"slices"
	"time"
)

// Conversation stages
const (
	StageInitial  = "initial"
	StageShopping = "shopping"
	StageEngaged  = "engaged"
)

const (
	contextWindow   = 5
	engagedMessages = 5
)

// HistoryMessage is one stored turn, oldest first.
type HistoryMessage struct {
	Type      string    `json:"type"` // user, bot, agent, system
	Content   string    `json:"content"`
	Intent    string    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatContext is what recent history says about the conversation.
type ChatContext struct {
	PreviousProducts []string
	PreviousIntents  []string
	Stage            string
}

// AnalyzeChatContext inspects the last few user turns. More than five stored
// messages makes a conversation engaged; otherwise an earlier products or
// pricing intent makes it shopping.
func AnalyzeChatContext(history []HistoryMessage) ChatContext {
	ctx := ChatContext{Stage: StageInitial}

	start := max(0, len(history)-contextWindow)
	for _, msg := range history[start:] {
		if msg.Type != "user" {
			continue
		}
		ctx.PreviousProducts = append(ctx.PreviousProducts, ExtractEntities(msg.Content).Products...)
		if msg.Intent != "" {
			ctx.PreviousIntents = append(ctx.PreviousIntents, msg.Intent)
		}
	}

	switch {
	case len(history) > engagedMessages:
		ctx.Stage = StageEngaged
	case slices.ContainsFunc(ctx.PreviousIntents, func(i string) bool {
		return i == string(IntentProducts) || i == string(IntentPricing)
	}):
		ctx.Stage = StageShopping
	}

	return ctx
}
