package chatbot

import "regexp"

// Intent is the coarse purpose assigned to one utterance.
type Intent string

// Catalog intents, in tie-break order.
const (
	IntentGreeting               Intent = "greeting"
	IntentBusinessHours          Intent = "business_hours"
	IntentLocation               Intent = "location"
	IntentServices               Intent = "services"
	IntentProducts               Intent = "products"
	IntentPricing                Intent = "pricing"
	IntentContact                Intent = "contact"
	IntentComplaint              Intent = "complaint"
	IntentBooking                Intent = "booking"
	IntentOrderTracking          Intent = "order_tracking"
	IntentAvailability           Intent = "availability"
	IntentPriceInquiry           Intent = "price_inquiry"
	IntentGoodbye                Intent = "goodbye"
	IntentAcknowledgment         Intent = "acknowledgment"
	IntentNegativeAcknowledgment Intent = "negative_acknowledgment"
)

// Reserved intents that are never produced by pattern scoring.
const (
	IntentUnknown        Intent = "unknown"
	IntentNameCollection Intent = "name_collection"
	IntentError          Intent = "error"
)

// Sentiment is the coarse tone of an utterance.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type intentDefinition struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// intentDefinitions is evaluated in order; on equal scores the earlier entry wins.
var intentDefinitions = []intentDefinition{
	{IntentGreeting, compileAll(
		`\b(hello|hi|hey|good\s+(morning|afternoon|evening)|greetings)\b`,
		`\b(how\s+are\s+you|what's\s+up)\b`,
	)},
	{IntentBusinessHours, compileAll(
		`\b(hours|open|close|when\s+open|operating\s+hours|business\s+hours)\b`,
		`\b(what\s+time|when\s+do\s+you)\b.*\b(open|close)\b`,
	)},
	{IntentLocation, compileAll(
		`\b(where|location|address|directions|find\s+you)\b`,
		`\b(how\s+to\s+get|where\s+are\s+you\s+located)\b`,
	)},
	{IntentServices, compileAll(
		`\b(services|what\s+do\s+you\s+do|what\s+do\s+you\s+offer)\b`,
		`\b(construction|building|renovation|repair)\b`,
	)},
	{IntentProducts, compileAll(
		`\b(products|product|items|materials|inventory|stock|catalog|what\s+do\s+you\s+sell)\b`,
		`\b(cement|concrete|steel|lumber|pipes|tiles|paint|paints|tools|hardware|supplies)\b`,
		`\b(show\s+me|display|list|available)\b.*\b(products|items)\b`,
		`\b(do\s+you\s+have|do\s+you\s+sell|looking\s+for|need|want)\b`,
		`\b(hammer|screws|nails|wrench|drill|saw|pliers|wire|cable|cables)\b`,
		`\b(automotive|battery|oil|tyre|tyres|lights|electrical)\b`,
		`\b(pvc|pipe|fittings|kit|stanley|claw|philips|head|screwdriver|adjustable|galvanized|extension|cord|michelin|shell|helix|brake|pad)\b`,
		`\b(emulsion|brush|dulux|weathershield|primer|sealer|led|bulb|switch|outlet|fluorescent|tube)\b`,
		`^(paint|paints|tools|hammer|screws|nails|cement|steel|lumber|tiles|pipes|wire|cables|lights|battery|oil|tyres|hardware|supplies|electrical|automotive|pliers|drill|saw|pvc|kit|fittings)$`,
	)},
	{IntentPricing, compileAll(
		`\b(price|cost|pricing|how\s+much|rates|quote|estimate)\b`,
		`\b(expensive|cheap|affordable|budget)\b`,
	)},
	{IntentContact, compileAll(
		`\b(contact|phone|email|call|reach)\b`,
		`\b(get\s+in\s+touch|contact\s+information)\b`,
	)},
	{IntentComplaint, compileAll(
		`\b(complaint|problem|issue|wrong|error|bad|terrible|awful)\b`,
		`\b(dissatisfied|unhappy|disappointed|frustrated)\b`,
	)},
	{IntentBooking, compileAll(
		`\b(book|schedule|appointment|reservation|arrange)\b`,
		`\b(when\s+can\s+you|available\s+time)\b`,
	)},
	{IntentOrderTracking, compileAll(
		`\b(order|track|delivery|shipment|status)\b`,
		`\b(where\s+is\s+my|when\s+will\s+my)\b`,
	)},
	{IntentAvailability, compileAll(
		`\b(available|availability|in\s+stock|stock|inventory)\b`,
		`\b(do\s+you\s+have|is\s+there|can\s+i\s+get)\b`,
		`\b(have\s+you\s+got|got\s+any|carry)\b`,
	)},
	{IntentPriceInquiry, compileAll(
		`\b(price|cost|pricing|how\s+much|rates|quote|estimate|expensive|cheap|affordable)\b`,
		`\b(what\s+does\s+it\s+cost|how\s+much\s+does)\b`,
	)},
	{IntentGoodbye, compileAll(
		`\b(bye|goodbye|see\s+you|farewell)\b`,
		`\b(that's\s+all|no\s+more\s+questions)\b`,
	)},
	{IntentAcknowledgment, compileAll(
		`^(okay|ok|thanks|thank\s+you|alright|got\s+it|understood|fine|good|nice)$`,
		`\b(thanks|thank\s+you|appreciate|grateful)\b`,
		`^(yes|yeah|yep|sure|correct|right)$`,
	)},
	{IntentNegativeAcknowledgment, compileAll(
		`^(no|nah|nope|not\s+really|never\s+mind|forget\s+it)$`,
		`\b(no\s+thanks|not\s+interested|maybe\s+later)\b`,
	)},
}

var (
	positivePatterns = compileAll(
		`\b(great|excellent|good|amazing|wonderful|fantastic|perfect|awesome)\b`,
		`\b(love|like|satisfied|happy|pleased)\b`,
	)
	negativePatterns = compileAll(
		`\b(bad|terrible|awful|horrible|worst|hate|disappointed|frustrated)\b`,
		`\b(problem|issue|wrong|error|broken|failed)\b`,
	)
)

// Intents returns the catalog intents in definition order.
func Intents() []Intent {
	out := make([]Intent, len(intentDefinitions))
	for i, def := range intentDefinitions {
		out[i] = def.intent
	}
	return out
}
