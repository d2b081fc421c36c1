package chatbot

import (
	"fmt"
	"strings"

	"riverway/internal/models"
)

const (
	maxDisplayProducts = 6
	listedInline       = 4
	lowStockThreshold  = 5
	highStockThreshold = 50
)

const (
	catalogUnavailableMessage = "I'm having trouble accessing our product catalog right now. Please contact us directly for product information."
	popularFallbackMessage    = "I couldn't find exactly what you mentioned, but here are some of our most popular products that might interest you:"
	noProductsMessage         = "I apologize, but I couldn't find any specific products matching your query right now. Our inventory might be updating. However, I'd be happy to help you in other ways:\n\n" +
		"• Contact our sales team directly for current product information\n" +
		"• Browse our most popular products\n" +
		"• Get a custom quote for your specific needs\n\n" +
		"Would you like me to connect you with our sales team?"
)

// ProductCard is the product shape returned to chat clients.
type ProductCard struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Image         *string `json:"image"`
	Description   string  `json:"description"`
	Unit          string  `json:"unit"`
	StockQuantity int     `json:"stock_quantity"`
	ImageURL      *string `json:"image_url"`
}

func (m *ProductMatcher) card(p *models.Product) ProductCard {
	c := ProductCard{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Description:   p.Description,
		Unit:          p.Unit,
		StockQuantity: p.StockQuantity,
	}
	if p.Image != "" {
		image := p.Image
		url := strings.TrimRight(m.mediaURL, "/") + "/" + strings.TrimLeft(p.Image, "/")
		c.Image = &image
		c.ImageURL = &url
	}
	return c
}

func (m *ProductMatcher) cards(products []models.Product, limit int) []ProductCard {
	n := min(len(products), limit)
	out := make([]ProductCard, n)
	for i := 0; i < n; i++ {
		out[i] = m.card(&products[i])
	}
	return out
}

func (m *ProductMatcher) price(p *models.Product) string {
	return fmt.Sprintf("%s%.2f per %s", m.currency, p.Price, p.Unit)
}

// formatProducts renders a detailed card for one product or a numbered list
// for several.
func (m *ProductMatcher) formatProducts(lower string, products []models.Product) string {
	if len(products) == 1 {
		return m.formatSingle(lower, &products[0])
	}
	return m.formatList(products)
}

func (m *ProductMatcher) formatSingle(lower string, p *models.Product) string {
	var b strings.Builder

	if strings.Contains(lower, "portland") && strings.Contains(strings.ToLower(p.Name), "cement") {
		b.WriteString("**Yes, we have Portland cement!** Here are the details:\n\n")
	} else {
		b.WriteString("Perfect! I found exactly what you're looking for.\n\n")
	}

	stockStatus := "Out of Stock"
	if p.InStock() {
		stockStatus = "In Stock"
	}

	fmt.Fprintf(&b, "**%s**\n\n", p.Name)
	fmt.Fprintf(&b, "**Price:** %s\n", m.price(p))
	fmt.Fprintf(&b, "**Availability:** %s", stockStatus)
	switch {
	case !p.InStock():
		b.WriteString(" - Let me know if you'd like to see similar alternatives!\n\n")
	case p.StockQuantity <= lowStockThreshold:
		fmt.Fprintf(&b, " - HURRY! Only %d left in stock!\n\n", p.StockQuantity)
	default:
		fmt.Fprintf(&b, " (%d units available)\n\n", p.StockQuantity)
	}

	fmt.Fprintf(&b, "**Product Details:** %s\n\n", p.Description)
	if card := m.card(p); card.ImageURL != nil {
		fmt.Fprintf(&b, "[View Product Image](%s)\n\n", *card.ImageURL)
	}
	if p.InStock() {
		b.WriteString("Would you like more information, similar products, or a personalized quote?")
	}

	return b.String()
}

func (m *ProductMatcher) formatList(products []models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Great news! I found %d excellent options for you:\n\n", len(products))

	for i := 0; i < len(products) && i < listedInline; i++ {
		p := &products[i]
		indicator := "[OUT OF STOCK]"
		note := ""
		if p.InStock() {
			indicator = "[IN STOCK]"
			switch {
			case p.StockQuantity <= lowStockThreshold:
				note = " - LIMITED QUANTITY!"
			case p.StockQuantity > highStockThreshold:
				note = " - HIGH AVAILABILITY"
			}
		}
		fmt.Fprintf(&b, "**%d. %s** %s%s\n", i+1, p.Name, indicator, note)
		fmt.Fprintf(&b, "    Price: %s\n\n", m.price(p))
	}

	if extra := len(products) - listedInline; extra > 0 {
		fmt.Fprintf(&b, "Plus %d more items available! Click on any product below to see details, or ask me about specific items.", extra)
	}

	return b.String()
}

func nonHardwareMessage(category, product string) string {
	switch category {
	case "beauty":
		return fmt.Sprintf("I understand you're looking for %s, but we specialize in hardware and building supplies. We don't carry beauty products like %s.", product, product)
	case "food":
		return fmt.Sprintf("I see you're asking about %s. We're a hardware store, so we don't sell food items like %s.", product, product)
	case "clothing":
		return fmt.Sprintf("You mentioned %s, but we focus on hardware and building materials rather than clothing items.", product)
	case "electronics":
		return fmt.Sprintf("While %s sounds useful, we specialize in hardware supplies rather than electronics.", product)
	case "medicine":
		return fmt.Sprintf("I understand you need %s, but we're a hardware store and don't carry medical supplies.", product)
	case "books":
		return fmt.Sprintf("You asked about %s, but we focus on hardware and building materials rather than books.", product)
	default:
		return fmt.Sprintf("We don't carry %s as we specialize in hardware and building supplies.", product)
	}
}
