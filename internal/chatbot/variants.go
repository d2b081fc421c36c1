package chatbot

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// VariantSelector picks one of n canned replies for a message.
type VariantSelector interface {
	Select(message string, n int) int
}

// HashSelector picks by hashing the message, so the same text always gets the
// same reply.
type HashSelector struct{}

// Select implements VariantSelector.
func (HashSelector) Select(message string, n int) int {
	if n <= 0 {
		return 0
	}
	return int(xxhash.Sum64String(message) % uint64(n))
}

// RandomSelector picks uniformly at random.
type RandomSelector struct{}

// Select implements VariantSelector.
func (RandomSelector) Select(_ string, n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

var acknowledgmentReplies = []string{
	"You're welcome! Is there anything else I can help you with?",
	"I'm glad I could help! Feel free to ask if you have any other questions.",
	"Great! Let me know if you need assistance with anything else.",
	"Perfect! I'm here if you need any more information about our products or services.",
	"Excellent! Don't hesitate to reach out if you have any other questions.",
}

var negativeAcknowledgmentReplies = []string{
	"No problem at all! Feel free to browse our products or ask any questions when you're ready.",
	"That's perfectly fine! I'm here whenever you need assistance with our hardware and building supplies.",
	"Understood! Take your time, and let me know if you change your mind or need help with anything else.",
}
