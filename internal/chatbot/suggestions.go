package chatbot

import "slices"

var defaultSuggestions = map[Intent][]string{
	IntentGreeting:     {"ask_services", "ask_hours", "ask_location"},
	IntentServices:     {"get_quote", "book_appointment", "ask_pricing"},
	IntentProducts:     {"show_more_products", "get_quote", "check_availability"},
	IntentAvailability: {"show_more_products", "check_availability", "ask_human_help"},
	IntentPriceInquiry: {"show_more_products", "get_quote", "call_company"},
	IntentPricing:      {"get_quote", "book_consultation"},
	IntentLocation:     {"get_directions", "call_company"},
	IntentContact:      {"call_company", "send_email"},
	IntentUnknown:      {"ask_human_help", "browse_faq"},
}

// SuggestedActions returns the default follow-up actions for intent.
func SuggestedActions(intent Intent) []string {
	if s, ok := defaultSuggestions[intent]; ok {
		return slices.Clone(s)
	}
	return []string{}
}
