package chatbot

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"riverway/internal/models"
)

var errStoreDown = errors.New("store down")

// memoryStore is an in-memory FAQStore, ProductCatalog and SettingsStore.
type memoryStore struct {
	mu       sync.Mutex
	faqs     []models.FAQ
	products []models.Product
	hours    []models.BusinessHours
	company  *models.CompanyInfo
	settings *models.ChatbotSettings
	views    map[int64]int

	failFAQs     bool
	failProducts bool
	failHours    bool
	failViews    bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{views: make(map[int64]int)}
}

func (s *memoryStore) ActiveFAQs(_ context.Context) ([]models.FAQ, error) {
	if s.failFAQs {
		return nil, errStoreDown
	}
	var out []models.FAQ
	for _, f := range s.faqs {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memoryStore) IncrementFAQViewCount(_ context.Context, id int64) error {
	if s.failViews {
		return errStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[id]++
	return nil
}

func (s *memoryStore) viewCount(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[id]
}

func (s *memoryStore) SearchProducts(_ context.Context, q ProductQuery) ([]models.Product, error) {
	if s.failProducts {
		return nil, errStoreDown
	}
	var out []models.Product
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if slices.ContainsFunc(q.Terms, func(term string) bool { return p.MatchesTerm(term, q.IncludeSpecifications) }) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Product) int {
		if a.StockQuantity != b.StockQuantity {
			return b.StockQuantity - a.StockQuantity
		}
		return strings.Compare(a.Name, b.Name)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memoryStore) PopularProducts(_ context.Context, limit int) ([]models.Product, error) {
	if s.failProducts {
		return nil, errStoreDown
	}
	var out []models.Product
	for _, p := range s.products {
		if p.IsActive && p.InStock() {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Product) int { return b.StockQuantity - a.StockQuantity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) BrowseProducts(ctx context.Context, limit int) ([]models.Product, error) {
	return s.PopularProducts(ctx, limit)
}

func (s *memoryStore) BusinessHours(_ context.Context) ([]models.BusinessHours, error) {
	if s.failHours {
		return nil, errStoreDown
	}
	return s.hours, nil
}

func (s *memoryStore) CompanyInfo(_ context.Context) (*models.CompanyInfo, error) {
	return s.company, nil
}

func (s *memoryStore) ChatbotSettings(_ context.Context) (*models.ChatbotSettings, error) {
	return s.settings, nil
}

type orderStub struct {
	owner  uuid.UUID
	id     int64
	status string
}

func (o orderStub) OrderStatusForUser(_ context.Context, orderID int64, userID uuid.UUID) (string, bool, error) {
	if orderID != o.id || userID != o.owner {
		return "", false, nil
	}
	return o.status, true, nil
}

func clock(t string) *models.ClockTime {
	c, err := models.ParseClockTime(t)
	if err != nil {
		panic(err)
	}
	return &c
}

// weekHours is Monday-Friday 07:00-18:00, Saturday 08:00-16:00, Sunday closed.
func weekHours() []models.BusinessHours {
	var hours []models.BusinessHours
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		hours = append(hours, models.BusinessHours{Day: day, OpenTime: clock("07:00"), CloseTime: clock("18:00")})
	}
	hours = append(hours,
		models.BusinessHours{Day: "saturday", OpenTime: clock("08:00"), CloseTime: clock("16:00")},
		models.BusinessHours{Day: "sunday", IsClosed: true},
	)
	return hours
}

func product(id int64, name, category string, stock int) models.Product {
	return models.Product{
		ID:            id,
		Name:          name,
		CategoryName:  category,
		Description:   name + " for building projects",
		Price:         10.5,
		Unit:          models.UnitPiece,
		StockQuantity: stock,
		IsActive:      true,
	}
}
