package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"riverway/internal/models"
)

const faqColumns = `id, question, answer, category, keywords, is_active, view_count, created_at, updated_at`

func scanFAQ(row pgx.Row) (*models.FAQ, error) {
	var f models.FAQ
	err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.Category, &f.Keywords, &f.IsActive, &f.ViewCount, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFAQNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ActiveFAQs implements chatbot.FAQStore. Records come back in insertion
// order so the first-seen FAQ wins score ties.
func (d *DB) ActiveFAQs(ctx context.Context) ([]models.FAQ, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+faqColumns+` FROM faqs WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []models.FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		faqs = append(faqs, *f)
	}

	return faqs, rows.Err()
}

// IncrementFAQViewCount implements chatbot.FAQStore. The increment happens in
// SQL so concurrent views are never lost.
func (d *DB) IncrementFAQViewCount(ctx context.Context, id int64) error {
	tag, err := d.Pool.Exec(ctx, `UPDATE faqs SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFAQNotFound
	}
	return nil
}

// GetFAQ returns a single FAQ.
func (d *DB) GetFAQ(ctx context.Context, id int64) (*models.FAQ, error) {
	return scanFAQ(d.Pool.QueryRow(ctx, `SELECT `+faqColumns+` FROM faqs WHERE id = $1`, id))
}

// UpsertFAQ creates or updates an FAQ keyed by its question.
func (d *DB) UpsertFAQ(ctx context.Context, f *models.FAQ) error {
	return d.Pool.QueryRow(ctx, `
		INSERT INTO faqs (question, answer, category, keywords, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (question) DO UPDATE SET
			answer = EXCLUDED.answer,
			category = EXCLUDED.category,
			keywords = EXCLUDED.keywords,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id, view_count, created_at, updated_at
	`, f.Question, f.Answer, f.Category, f.Keywords, f.IsActive).Scan(&f.ID, &f.ViewCount, &f.CreatedAt, &f.UpdatedAt)
}

// ListFAQs returns every FAQ, inactive ones included, newest first. An empty
// category lists all categories.
func (d *DB) ListFAQs(ctx context.Context, category string) ([]models.FAQ, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT `+faqColumns+` FROM faqs
		WHERE $1 = '' OR category = $1
		ORDER BY created_at DESC, id DESC
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []models.FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		faqs = append(faqs, *f)
	}

	return faqs, rows.Err()
}

// CreateFAQ inserts a new FAQ. A duplicate question returns ErrFAQExists.
func (d *DB) CreateFAQ(ctx context.Context, f *models.FAQ) error {
	err := d.Pool.QueryRow(ctx, `
		INSERT INTO faqs (question, answer, category, keywords, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, view_count, created_at, updated_at
	`, f.Question, f.Answer, f.Category, f.Keywords, f.IsActive).Scan(&f.ID, &f.ViewCount, &f.CreatedAt, &f.UpdatedAt)
	return mapWriteError(err, ErrFAQExists, nil)
}

// UpdateFAQ rewrites the FAQ with f.ID. The view count is left alone.
func (d *DB) UpdateFAQ(ctx context.Context, f *models.FAQ) error {
	err := d.Pool.QueryRow(ctx, `
		UPDATE faqs SET question = $2, answer = $3, category = $4, keywords = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING view_count, created_at, updated_at
	`, f.ID, f.Question, f.Answer, f.Category, f.Keywords, f.IsActive).Scan(&f.ViewCount, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrFAQNotFound
	}
	return mapWriteError(err, ErrFAQExists, nil)
}

// DeleteFAQ removes an FAQ.
func (d *DB) DeleteFAQ(ctx context.Context, id int64) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFAQNotFound
	}
	return nil
}

// ToggleFAQ flips whether the chatbot may answer with the FAQ and returns the
// new state.
func (d *DB) ToggleFAQ(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := d.Pool.QueryRow(ctx, `
		UPDATE faqs SET is_active = NOT is_active, updated_at = NOW() WHERE id = $1 RETURNING is_active
	`, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrFAQNotFound
	}
	return active, err
}
