package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"riverway/internal/models"
)

// SeedData is the reference data applied at startup: business hours, company
// details, chatbot settings, FAQs and the product catalog. It is easier to
// maintain as YAML than as SQL.
type SeedData struct {
	BusinessHours map[string]HoursConfig  `yaml:"business_hours"` // weekday -> hours
	Company       *models.CompanyInfo     `yaml:"company,omitempty"`
	Chatbot       *models.ChatbotSettings `yaml:"chatbot,omitempty"`
	FAQs          []FAQConfig             `yaml:"faqs"`
	Categories    []CategoryConfig        `yaml:"categories"`
}

// HoursConfig is one weekday's opening hours, "HH:MM" or "HH:MM:SS".
type HoursConfig struct {
	Open   string `yaml:"open,omitempty"`
	Close  string `yaml:"close,omitempty"`
	Closed bool   `yaml:"closed,omitempty"`
}

// FAQConfig defines one FAQ entry.
type FAQConfig struct {
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// CategoryConfig defines a catalog category and its products.
type CategoryConfig struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Products    []ProductConfig `yaml:"products"`
}

// ProductConfig defines one product in the seed catalog.
type ProductConfig struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description"`
	Price          float64        `yaml:"price"`
	Unit           string         `yaml:"unit"`
	SKU            string         `yaml:"sku"`
	Stock          int            `yaml:"stock"`
	Image          string         `yaml:"image,omitempty"`
	Specifications map[string]any `yaml:"specifications,omitempty"`
}

// LoadSeedData loads the seed file at path.
// Returns nil without error if path is empty or the file doesn't exist.
func LoadSeedData(path string) (*SeedData, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Seed file is optional
			return nil, nil
		}
		return nil, err
	}

	return ParseSeedData(data)
}

// ParseSeedData decodes and validates seed YAML.
func ParseSeedData(data []byte) (*SeedData, error) {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}

	for day := range seed.BusinessHours {
		if !isWeekday(day) {
			return nil, fmt.Errorf("invalid seed file: unknown weekday %q", day)
		}
	}
	for i, f := range seed.FAQs {
		if f.Question == "" || f.Answer == "" {
			return nil, fmt.Errorf("invalid seed file: faq %d needs a question and an answer", i+1)
		}
	}
	for _, c := range seed.Categories {
		for _, p := range c.Products {
			if p.Name == "" || p.SKU == "" {
				return nil, fmt.Errorf("invalid seed file: product in %q needs a name and sku", c.Name)
			}
			if p.Price < 0 || p.Stock < 0 {
				return nil, fmt.Errorf("invalid seed file: product %s has a negative price or stock", p.SKU)
			}
		}
	}

	return &seed, nil
}

// HoursRecords converts the business hours section into records ordered
// Monday to Sunday. Days missing from the file are omitted.
func (s *SeedData) HoursRecords() ([]models.BusinessHours, error) {
	if s == nil {
		return nil, nil
	}

	var records []models.BusinessHours
	for _, day := range models.Weekdays {
		h, ok := s.BusinessHours[day]
		if !ok {
			continue
		}
		record := models.BusinessHours{Day: day, IsClosed: h.Closed}
		if !h.Closed {
			open, err := models.ParseClockTime(h.Open)
			if err != nil {
				return nil, fmt.Errorf("%s open time: %w", day, err)
			}
			closing, err := models.ParseClockTime(h.Close)
			if err != nil {
				return nil, fmt.Errorf("%s close time: %w", day, err)
			}
			record.OpenTime = &open
			record.CloseTime = &closing
		}
		records = append(records, record)
	}
	return records, nil
}

// FAQRecords converts the FAQ section into models with comma-joined keywords.
func (s *SeedData) FAQRecords() []models.FAQ {
	if s == nil {
		return nil
	}
	out := make([]models.FAQ, 0, len(s.FAQs))
	for _, f := range s.FAQs {
		category := f.Category
		if category == "" {
			category = models.FAQGeneral
		}
		out = append(out, models.FAQ{
			Question: f.Question,
			Answer:   f.Answer,
			Category: category,
			Keywords: strings.Join(f.Keywords, ", "),
			IsActive: true,
		})
	}
	return out
}

// GetCategoryByName finds a category by its name, case-insensitively.
func (s *SeedData) GetCategoryByName(name string) *CategoryConfig {
	if s == nil {
		return nil
	}
	for i := range s.Categories {
		if strings.EqualFold(s.Categories[i].Name, name) {
			return &s.Categories[i]
		}
	}
	return nil
}

// ProductCount returns the number of products across all categories.
func (s *SeedData) ProductCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, c := range s.Categories {
		n += len(c.Products)
	}
	return n
}

func isWeekday(day string) bool {
	for _, d := range models.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
