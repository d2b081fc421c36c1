package models

import (
	"strings"
	"time"
)

// Category groups products in the catalog.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product units
const (
	UnitPiece  = "piece"
	UnitBag    = "bag"
	UnitTon    = "ton"
	UnitMeter  = "meter"
	UnitSheet  = "sheet"
	UnitRoll   = "roll"
	UnitGallon = "gallon"
	UnitSet    = "set"
)

// ProductUnits lists every accepted unit of sale.
var ProductUnits = []string{UnitPiece, UnitBag, UnitTon, UnitMeter, UnitSheet, UnitRoll, UnitGallon, UnitSet}

// Product is a catalog item.
type Product struct {
	ID             int64          `json:"id"`
	CategoryID     int64          `json:"category_id"`
	CategoryName   string         `json:"category"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Price          float64        `json:"price"`
	Unit           string         `json:"unit"`
	SKU            string         `json:"sku"`
	StockQuantity  int            `json:"stock_quantity"`
	Image          string         `json:"image,omitempty"` // path relative to the media root
	Specifications map[string]any `json:"specifications,omitempty"`
	Rating         float64        `json:"rating"`
	RatingCount    int            `json:"rating_count"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// MatchesTerm reports whether term occurs, case-insensitively, in the
// product name, description, category name or (optionally) specifications.
func (p *Product) MatchesTerm(term string, withSpecs bool) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.CategoryName), term) {
		return true
	}
	if !withSpecs {
		return false
	}
	for k, v := range p.Specifications {
		if strings.Contains(strings.ToLower(k), term) {
			return true
		}
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}
