package chatbot

import (
	"strings"
	"unicode"
)

var likelyNamePatterns = compileAll(
	`^(my name is|i am|i'm|call me|it's|its)\s+([a-zA-Z]+)`,
	`^([a-zA-Z]+)$`,
	`^([a-zA-Z]+\s+[a-zA-Z]+)$`,
	`^(hi|hello|hey),?\s+(i'm|i am|my name is)\s+([a-zA-Z]+)`,
)

var nameExtractPatterns = compileAll(
	`(?:my name is|i am|i'm|call me|it's|its)\s+([a-zA-Z\s]+)`,
	`(?:hi|hello|hey),?\s+(?:i'm|i am|my name is)\s+([a-zA-Z\s]+)`,
)

// IsLikelyName reports whether a guest's message reads like them giving a name.
func IsLikelyName(message string) bool {
	lower := strings.TrimSpace(strings.ToLower(message))
	for _, re := range likelyNamePatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return isShortAlphabetic(message)
}

// ExtractName returns the capitalised name in message, or "".
func ExtractName(message string) string {
	message = strings.TrimSpace(message)
	lower := strings.ToLower(message)

	for _, re := range nameExtractPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return capitalizeWords(strings.TrimSpace(m[1]))
		}
	}

	if isShortAlphabetic(message) {
		return capitalizeWords(message)
	}
	return ""
}

// isShortAlphabetic is true for at most two words made only of letters.
func isShortAlphabetic(message string) bool {
	if len(strings.Fields(message)) > 2 {
		return false
	}
	letters := strings.ReplaceAll(message, " ", "")
	if letters == "" {
		return false
	}
	for _, r := range letters {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
