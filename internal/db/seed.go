package db

import (
	"context"
	"fmt"

	"riverway/internal/config"
	"riverway/internal/models"
)

// SeedResult counts the rows a seed run wrote.
type SeedResult struct {
	Hours      int
	FAQs       int
	Categories int
	Products   int
}

// Seed upserts the reference data from a seed file. Rows are matched by their
// natural keys (weekday, FAQ question, category name, SKU), so running it
// again updates in place and never duplicates or deletes.
func (d *DB) Seed(ctx context.Context, seed *config.SeedData) (SeedResult, error) {
	var res SeedResult
	if seed == nil {
		return res, nil
	}

	hours, err := seed.HoursRecords()
	if err != nil {
		return res, err
	}
	for i := range hours {
		if err := d.UpsertBusinessHours(ctx, &hours[i]); err != nil {
			return res, fmt.Errorf("failed to seed %s hours: %w", hours[i].Day, err)
		}
		res.Hours++
	}

	if seed.Company != nil {
		if err := d.SaveCompanyInfo(ctx, seed.Company); err != nil {
			return res, fmt.Errorf("failed to seed company info: %w", err)
		}
	}
	if seed.Chatbot != nil {
		if err := d.SaveChatbotSettings(ctx, seed.Chatbot); err != nil {
			return res, fmt.Errorf("failed to seed chatbot settings: %w", err)
		}
	}

	for _, faq := range seed.FAQRecords() {
		if err := d.UpsertFAQ(ctx, &faq); err != nil {
			return res, fmt.Errorf("failed to seed faq %q: %w", faq.Question, err)
		}
		res.FAQs++
	}

	for _, c := range seed.Categories {
		categoryID, err := d.UpsertCategory(ctx, c.Name, c.Description)
		if err != nil {
			return res, fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
		res.Categories++

		for _, p := range c.Products {
			unit := p.Unit
			if unit == "" {
				unit = models.UnitPiece
			}
			product := models.Product{
				CategoryID:     categoryID,
				Name:           p.Name,
				Description:    p.Description,
				Price:          p.Price,
				Unit:           unit,
				SKU:            p.SKU,
				StockQuantity:  p.Stock,
				Image:          p.Image,
				Specifications: p.Specifications,
			}
			if err := d.UpsertProduct(ctx, &product); err != nil {
				return res, fmt.Errorf("failed to seed product %s: %w", p.SKU, err)
			}
			res.Products++
		}
	}

	return res, nil
}
