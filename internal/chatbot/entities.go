package chatbot

import (
	"regexp"
	"strings"
)

// EntitySet holds the values extracted from one utterance. Every slice is
// non-nil so the JSON form always carries empty arrays.
type EntitySet struct {
	PhoneNumbers []string `json:"phone_numbers"`
	Emails       []string `json:"emails"`
	Dates        []string `json:"dates"`
	Times        []string `json:"times"`
	Locations    []string `json:"locations"` // reserved, never populated
	Products     []string `json:"products"`  // canonical category tags
	Prices       []string `json:"prices"`
	Quantities   []string `json:"quantities"`
}

// NewEntitySet returns an EntitySet with all kinds empty.
func NewEntitySet() EntitySet {
	return EntitySet{
		PhoneNumbers: []string{},
		Emails:       []string{},
		Dates:        []string{},
		Times:        []string{},
		Locations:    []string{},
		Products:     []string{},
		Prices:       []string{},
		Quantities:   []string{},
	}
}

// HasProducts reports whether a product tag was recognised.
func (e EntitySet) HasProducts() bool {
	return len(e.Products) > 0
}

var (
	phonePattern = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	datePatterns = compileAll(
		`(?i)\b(today|tomorrow|yesterday)\b`,
		`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
		`\b\d{1,2}/\d{1,2}/\d{4}\b`,
		`\b\d{1,2}-\d{1,2}-\d{4}\b`,
	)
	timePattern     = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s?(?:AM|PM))?\b`)
	pricePattern    = regexp.MustCompile(`(?i)\$\d+(?:\.\d{2})?|\d+\s*(?:dollars?|bucks?)`)
	quantityPattern = regexp.MustCompile(`(?i)\d+\s*(?:pieces?|bags?|tons?|yards?|gallons?|rolls?|sheets?)`)
)

type productCategory struct {
	tag      string
	variants []string
}

// productCategories maps canonical tags to the words that imply them.
// Order determines the order of tags in EntitySet.Products.
var productCategories = []productCategory{
	{"cement", []string{"cement", "portland", "concrete"}},
	{"steel", []string{"steel", "rebar", "reinforcement", "iron"}},
	{"lumber", []string{"lumber", "wood", "timber", "plywood"}},
	{"pipes", []string{"pipe", "pipes", "plumbing", "pvc", "copper", "fittings"}},
	{"tiles", []string{"tile", "tiles", "ceramic", "porcelain"}},
	{"paint", []string{"paint", "primer", "coating", "emulsion", "dulux", "weathershield"}},
	{"tools", []string{"tools", "hammer", "drill", "saw", "stanley", "claw", "screwdriver", "wrench"}},
	{"brick", []string{"brick", "bricks", "masonry"}},
	{"sand", []string{"sand", "aggregate"}},
	{"gravel", []string{"gravel", "stone", "aggregate"}},
	{"automotive", []string{"car", "battery", "tyre", "oil", "shell", "helix", "michelin", "brake", "pad", "filter"}},
	{"electrical", []string{"led", "bulb", "light", "switch", "outlet", "cord", "extension", "fluorescent"}},
	{"kit", []string{"kit", "set", "fittings", "collection"}},
}

type offDomainCategory struct {
	category string
	products []string
}

// nonHardwareCategories lists things customers ask for that the store does
// not sell. Matching is by substring, in list order.
var nonHardwareCategories = []offDomainCategory{
	{"beauty", []string{"pomade", "shampoo", "lotion", "cream", "soap", "perfume", "cosmetics", "makeup"}},
	{"food", []string{"rice", "bread", "milk", "sugar", "oil", "flour", "meat", "fish", "vegetables"}},
	{"clothing", []string{"shirt", "pants", "shoes", "dress", "jacket", "hat", "socks"}},
	{"electronics", []string{"phone", "laptop", "tv", "computer", "tablet", "headphones"}},
	{"medicine", []string{"pills", "tablets", "medicine", "drugs", "bandage", "antiseptic"}},
	{"books", []string{"book", "magazine", "newspaper", "novel", "textbook"}},
}

// ExtractEntities pulls contact details, dates, times, prices, quantities and
// product tags out of text. It has no side effects.
func ExtractEntities(text string) EntitySet {
	entities := NewEntitySet()

	entities.PhoneNumbers = appendMatches(entities.PhoneNumbers, phonePattern, text)
	entities.Emails = appendMatches(entities.Emails, emailPattern, text)
	for _, re := range datePatterns {
		entities.Dates = appendMatches(entities.Dates, re, text)
	}
	entities.Times = appendMatches(entities.Times, timePattern, text)

	lower := strings.ToLower(text)
	for _, cat := range productCategories {
		for _, variant := range cat.variants {
			if strings.Contains(lower, variant) {
				entities.Products = append(entities.Products, cat.tag)
				break
			}
		}
	}

	entities.Prices = appendMatches(entities.Prices, pricePattern, text)
	entities.Quantities = appendMatches(entities.Quantities, quantityPattern, text)

	return entities
}

// DetectNonHardwareProduct returns the first off-domain category and product
// word found in text.
func DetectNonHardwareProduct(text string) (category, product string, ok bool) {
	lower := strings.ToLower(text)
	for _, cat := range nonHardwareCategories {
		for _, p := range cat.products {
			if strings.Contains(lower, p) {
				return cat.category, p, true
			}
		}
	}
	return "", "", false
}

func appendMatches(dst []string, re *regexp.Regexp, text string) []string {
	return append(dst, re.FindAllString(text, -1)...)
}
