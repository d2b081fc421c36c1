package chatbot

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"riverway/internal/models"
)

const (
	nonHardwareSuggestions = 4
	popularFallbackLimit   = 6
	browseLimit            = 8
	aggressiveSearchLimit  = 6
	maxSearchTerms         = 10
	minTermLength          = 3
)

// ProductQuery selects active products matching any term, case-insensitively,
// in name, description or category name, and optionally specifications.
type ProductQuery struct {
	Terms                 []string
	IncludeSpecifications bool
	Limit                 int // 0 means unbounded
}

// ProductCatalog is the read-only product store used by the matcher.
//
// SearchProducts orders by stock descending then name. PopularProducts returns
// in-stock products by stock descending. BrowseProducts returns in-stock
// products by stock descending, most recently updated, then name.
type ProductCatalog interface {
	SearchProducts(ctx context.Context, q ProductQuery) ([]models.Product, error)
	PopularProducts(ctx context.Context, limit int) ([]models.Product, error)
	BrowseProducts(ctx context.Context, limit int) ([]models.Product, error)
}

// ProductResult is the matcher's reply fragment.
type ProductResult struct {
	Message          string
	Products         []ProductCard
	SuggestedActions []string
}

// ProductMatcher searches and ranks the catalog for an utterance.
type ProductMatcher struct {
	catalog  ProductCatalog
	logger   *zap.Logger
	currency string
	mediaURL string
}

// NewProductMatcher creates a matcher. currency prefixes prices in replies and
// mediaURL prefixes product image paths.
func NewProductMatcher(catalog ProductCatalog, logger *zap.Logger, currency, mediaURL string) *ProductMatcher {
	return &ProductMatcher{
		catalog:  catalog,
		logger:   logger,
		currency: currency,
		mediaURL: mediaURL,
	}
}

var searchWordPattern = regexp.MustCompile(`\b\w{3,}\b`)

var searchStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true, "i": true, "me": true,
	"my": true, "you": true, "your": true, "it": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "can": true, "could": true, "should": true, "would": true,
	"will": true, "shall": true, "what": true, "where": true, "when": true, "why": true,
	"how": true, "show": true, "tell": true, "give": true, "get": true, "need": true,
	"want": true, "looking": true, "search": true, "find": true, "about": true, "some": true,
	"any": true, "more": true, "like": true, "just": true, "see": true,
}

var constructionTerms = map[string]bool{
	"cement": true, "concrete": true, "steel": true, "lumber": true, "wood": true,
	"brick": true, "tile": true, "paint": true, "pipe": true, "tool": true,
}

// ExtractSearchTerms returns the free-text search terms in lower: words of
// three or more characters that are not stop words, capped at ten. Each
// construction term is pushed onto the front as it is seen, so the last one
// mentioned ranks first; other words keep their order.
func ExtractSearchTerms(lower string) []string {
	var priority, rest []string
	for _, word := range searchWordPattern.FindAllString(lower, -1) {
		if searchStopWords[word] {
			continue
		}
		if constructionTerms[word] {
			priority = slices.Insert(priority, 0, word)
		} else {
			rest = append(rest, word)
		}
	}

	terms := append(priority, rest...)
	if len(terms) > maxSearchTerms {
		terms = terms[:maxSearchTerms]
	}
	return terms
}

// mergeTerms concatenates tags and terms, keeping the first occurrence of each.
func mergeTerms(tags, terms []string) []string {
	seen := make(map[string]bool, len(tags)+len(terms))
	out := make([]string, 0, len(tags)+len(terms))
	for _, t := range slices.Concat(tags, terms) {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Relevance scores p against ranked terms: a name hit is worth 100-5*rank and
// a description hit 50-2*rank; both count when both occur.
func Relevance(p *models.Product, terms []string) int {
	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)

	score := 0
	for i, term := range terms {
		if len(term) < minTermLength {
			continue
		}
		if strings.Contains(name, term) {
			score += 100 - i*5
		}
		if strings.Contains(desc, term) {
			score += 50 - i*2
		}
	}
	return score
}

// RankProducts orders products by relevance, then stock, then name.
func RankProducts(products []models.Product, terms []string) []models.Product {
	type scored struct {
		product   models.Product
		relevance int
	}
	ranked := make([]scored, len(products))
	for i := range products {
		ranked[i] = scored{products[i], Relevance(&products[i], terms)}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		if a.relevance != b.relevance {
			return b.relevance - a.relevance
		}
		if a.product.StockQuantity != b.product.StockQuantity {
			return b.product.StockQuantity - a.product.StockQuantity
		}
		return strings.Compare(a.product.Name, b.product.Name)
	})

	out := make([]models.Product, len(ranked))
	for i, r := range ranked {
		out[i] = r.product
	}
	return out
}

// floatExactMatches moves products whose name contains phrase to the front,
// keeping relative order on both sides.
func floatExactMatches(products []models.Product, phrase string) []models.Product {
	var exact, rest []models.Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), phrase) {
			exact = append(exact, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(exact, rest...)
}

// Search answers a product question. It never fails: catalog errors become
// an apology with no products.
func (m *ProductMatcher) Search(ctx context.Context, text string, entities EntitySet) ProductResult {
	if category, product, ok := DetectNonHardwareProduct(text); ok {
		return m.nonHardwareResult(ctx, category, product)
	}

	lower := strings.ToLower(text)
	terms := ExtractSearchTerms(lower)

	var products []models.Product
	var err error

	if len(entities.Products) == 0 && len(terms) == 0 {
		products, err = m.catalog.BrowseProducts(ctx, browseLimit)
	} else {
		allTerms := mergeTerms(entities.Products, terms)
		products, err = m.catalog.SearchProducts(ctx, ProductQuery{
			Terms:                 allTerms,
			IncludeSpecifications: true,
		})
		if err == nil {
			products = RankProducts(products, allTerms)
			if len(terms) > 1 {
				products = floatExactMatches(products, strings.Join(terms, " "))
			}
		}
	}

	if err != nil {
		m.logger.Error("product search failed", zap.Error(err))
		return ProductResult{Message: catalogUnavailableMessage, Products: []ProductCard{}}
	}

	if len(products) == 0 {
		return m.popularFallback(ctx)
	}

	return ProductResult{
		Message:  m.formatProducts(lower, products),
		Products: m.cards(products, maxDisplayProducts),
	}
}

func (m *ProductMatcher) popularFallback(ctx context.Context) ProductResult {
	popular, err := m.catalog.PopularProducts(ctx, popularFallbackLimit)
	if err != nil {
		m.logger.Error("popular products lookup failed", zap.Error(err))
		return ProductResult{Message: catalogUnavailableMessage, Products: []ProductCard{}}
	}
	if len(popular) == 0 {
		return ProductResult{Message: noProductsMessage, Products: []ProductCard{}}
	}
	return ProductResult{
		Message:  popularFallbackMessage,
		Products: m.cards(popular, len(popular)),
	}
}

func (m *ProductMatcher) nonHardwareResult(ctx context.Context, category, product string) ProductResult {
	popular, err := m.catalog.PopularProducts(ctx, nonHardwareSuggestions)
	if err != nil {
		m.logger.Error("popular products lookup failed", zap.Error(err))
		return ProductResult{
			Message:  "I understand you're looking for " + product + ", but we specialize in hardware and building supplies. Please let me know what specific hardware items you need!",
			Products: []ProductCard{},
		}
	}

	return ProductResult{
		Message:  nonHardwareMessage(category, product) + "\n\nHowever, here are some of our popular products that might interest you, or I can help you find what you need for your project:",
		Products: m.cards(popular, len(popular)),
	}
}

var productIndicators = []string{
	"do you have", "sell", "available", "stock", "buy", "need", "looking for",
	"want", "get", "find", "price", "cost", "how much",
}

var singleWordProducts = []string{
	"paint", "paints", "tools", "hammer", "screws", "nails", "cement", "steel",
	"lumber", "tiles", "pipes", "wire", "cables", "lights", "battery", "oil",
	"tyres", "hardware", "supplies", "electrical", "automotive", "pliers", "drill", "saw",
	"pvc", "kit", "fittings", "stanley", "claw", "philips", "screwdriver", "wrench",
	"cord", "extension", "michelin", "shell", "helix", "brake", "pad", "emulsion",
	"brush", "dulux", "weathershield", "primer", "sealer", "led", "bulb",
}

var aggressiveStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true, "with": true, "by": true,
	"is": true, "are": true, "was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "will": true, "would": true, "could": true,
	"should": true, "you": true, "i": true, "we": true, "they": true, "he": true, "she": true,
	"it": true,
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// AggressiveSearch is the last attempt to read an unclassified utterance as a
// product question. It reports false when the text does not look like one or
// nothing matched.
func (m *ProductMatcher) AggressiveSearch(ctx context.Context, text string) (ProductResult, bool) {
	lower := strings.TrimSpace(strings.ToLower(text))

	if !containsAny(lower, productIndicators) && !containsAny(lower, singleWordProducts) {
		return ProductResult{}, false
	}

	var words []string
	for _, w := range strings.Fields(lower) {
		if len(w) <= 2 || aggressiveStopWords[w] {
			continue
		}
		w = strings.Trim(w, ".,?!")
		if len(w) >= minTermLength {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return ProductResult{}, false
	}

	products, err := m.catalog.SearchProducts(ctx, ProductQuery{Terms: words, Limit: aggressiveSearchLimit})
	if err != nil {
		m.logger.Error("aggressive product search failed", zap.Error(err))
		return ProductResult{}, false
	}
	if len(products) == 0 {
		return ProductResult{}, false
	}

	return ProductResult{
		Message:          "I found some products that might match what you're looking for:",
		Products:         m.cards(products, aggressiveSearchLimit),
		SuggestedActions: []string{"get_quote", "check_availability", "contact_sales"},
	}, true
}
