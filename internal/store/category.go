// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"blogapi/internal/models"
	"blogapi/internal/pagination"
	"blogapi/internal/slug"
)

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	Search string
}

// CategorySortFields are the sort keys accepted by category listings.
var CategorySortFields = []string{"created_at", "updated_at", "name"}

var categorySortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
}

const categoryColumns = `id, name, slug, description, created_at, updated_at`

// CategoryUpdate is a partial update; nil fields are left unchanged. The
// slug is never regenerated.
type CategoryUpdate struct {
	Name        *string
	Description *string
}

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db    *sql.DB
	slugs *slug.Generator
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	s := &CategoryStore{db: db}
	s.slugs = slug.NewGenerator(slug.ProberFunc(s.SlugExists), 0)
	return s
}

// scanCategory scans a row into a Category struct.
func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID retrieves a live category. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = $1 AND deleted_at IS NULL", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// SlugExists reports whether a live category uses candidate.
func (s *CategoryStore) SlugExists(ctx context.Context, candidate string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND deleted_at IS NULL)", candidate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe category slug: %w", err)
	}
	return exists, nil
}

// CountExisting returns how many of ids belong to live categories.
func (s *CategoryStore) CountExisting(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	b := &queryBuilder{}
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	query := "SELECT COUNT(*) FROM categories WHERE deleted_at IS NULL AND id IN " + b.inList(vals)

	var n int
	if err := s.db.QueryRowContext(ctx, query, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func categoryWhere(f CategoryFilter) *queryBuilder {
	b := &queryBuilder{}
	b.where("deleted_at IS NULL")
	if f.Search != "" {
		b.search("name", f.Search)
	}
	return b
}

// Count returns the number of live categories matching f.
func (s *CategoryStore) Count(ctx context.Context, f CategoryFilter) (int64, error) {
	b := categoryWhere(f)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories "+b.clause(), b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// Find returns one window of live categories matching q.Filter.
func (s *CategoryStore) Find(ctx context.Context, q pagination.Query[CategoryFilter]) ([]models.Category, error) {
	b := categoryWhere(q.Filter)
	query := "SELECT " + categoryColumns + " FROM categories " + b.clause() + " " +
		b.window(q.Sort, categorySortColumns, "id", q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// List runs a paginated category listing.
func (s *CategoryStore) List(ctx context.Context, req pagination.Request[CategoryFilter]) (*pagination.Result[models.Category], error) {
	return pagination.Paginate[models.Category](ctx, s, req)
}

// Create inserts a category with a slug derived from name. A lost race on
// the slug index is retried with a freshly resolved slug.
func (s *CategoryStore) Create(ctx context.Context, name string, description *string) (*models.Category, error) {
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		sl, err := s.slugs.Resolve(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve category slug: %w", err)
		}

		c, err := scanCategory(s.db.QueryRowContext(ctx, `
			INSERT INTO categories (name, slug, description)
			VALUES ($1, $2, $3)
			RETURNING `+categoryColumns,
			name, sl, description,
		))
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("create category: %w", ErrConflict)
}

// Update applies upd to a live category and returns the new state.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, upd CategoryUpdate) (*models.Category, error) {
	b := &setBuilder{}
	if upd.Name != nil {
		b.set("name", *upd.Name)
	}
	if upd.Description != nil {
		b.set("description", *upd.Description)
	}

	if b.empty() {
		c, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ErrNotFound
		}
		return c, nil
	}

	query := "UPDATE categories SET " + b.assignments() +
		" WHERE id = " + b.arg(id) + " AND deleted_at IS NULL RETURNING " + categoryColumns

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// Delete soft-deletes a category and returns the record as it was.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `
		UPDATE categories SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+categoryColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete category: %w", err)
	}
	return c, nil
}
