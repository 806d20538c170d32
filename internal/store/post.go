// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"blogapi/internal/models"
	"blogapi/internal/pagination"
	"blogapi/internal/slug"
)

// Relations a post listing can expand.
const (
	PopulateAuthor     = "author"
	PopulateCategories = "categories"
)

// PostPopulateFields lists every relation a post listing can expand.
var PostPopulateFields = []string{PopulateAuthor, PopulateCategories}

// PostFilter narrows post listings. Zero fields impose no constraint.
type PostFilter struct {
	Status     models.PostStatus
	AuthorID   *uuid.UUID
	CategoryID *uuid.UUID
	Search     string
}

// PostSortFields are the sort keys accepted by post listings.
var PostSortFields = []string{"created_at", "updated_at", "title", "status"}

var postSortColumns = map[string]string{
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
	"title":      "p.title",
	"status":     "p.status",
}

// NewPost carries the fields needed to create a post.
type NewPost struct {
	Title         string
	Content       *string
	Excerpt       *string
	FeaturedImage *string
	Status        models.PostStatus
	AuthorID      uuid.UUID
	CategoryIDs   []uuid.UUID
}

// PostUpdate is a partial update; nil fields are left unchanged. A non-nil
// CategoryIDs replaces the post's categories. The slug is never regenerated.
type PostUpdate struct {
	Title         *string
	Content       *string
	Excerpt       *string
	FeaturedImage *string
	Status        *models.PostStatus
	CategoryIDs   *[]uuid.UUID
}

// PostStore manages posts and their category links.
type PostStore struct {
	db    *sql.DB
	slugs *slug.Generator
}

// NewPostStore returns a new PostStore.
func NewPostStore(db *sql.DB) *PostStore {
	s := &PostStore{db: db}
	s.slugs = slug.NewGenerator(slug.ProberFunc(s.SlugExists), 0)
	return s
}

const postBaseColumns = `p.id, p.title, p.slug, p.content, p.excerpt, p.featured_image, p.status,
	p.author_id, p.created_at, p.updated_at,
	COALESCE((SELECT json_agg(pc.category_id ORDER BY pc.category_id)
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = p.id AND c.deleted_at IS NULL), '[]'::json)`

const postAuthorColumns = `u.id, u.name, u.email, u.profile_picture`

const postCategoryColumn = `COALESCE((SELECT json_agg(json_build_object('id', c.id, 'name', c.name, 'slug', c.slug) ORDER BY c.name)
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = p.id AND c.deleted_at IS NULL), '[]'::json)`

// postSelect renders the SELECT ... FROM part of a post query, expanding
// the requested relations inline so a listing stays a single round trip.
func postSelect(withAuthor, withCategories bool) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(postBaseColumns)
	if withAuthor {
		sb.WriteString(", ")
		sb.WriteString(postAuthorColumns)
	}
	if withCategories {
		sb.WriteString(", ")
		sb.WriteString(postCategoryColumn)
	}
	sb.WriteString(" FROM posts p")
	if withAuthor {
		sb.WriteString(" LEFT JOIN users u ON u.id = p.author_id AND u.deleted_at IS NULL")
	}
	return sb.String()
}

func scanPost(row rowScanner, withAuthor, withCategories bool) (*models.Post, error) {
	var (
		p           models.Post
		authorID    uuid.NullUUID
		categoryIDs []byte
		author      struct {
			id      uuid.NullUUID
			name    sql.NullString
			email   sql.NullString
			picture *string
		}
		categories []byte
	)

	dest := []any{
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.FeaturedImage, &p.Status,
		&authorID, &p.CreatedAt, &p.UpdatedAt, &categoryIDs,
	}
	if withAuthor {
		dest = append(dest, &author.id, &author.name, &author.email, &author.picture)
	}
	if withCategories {
		dest = append(dest, &categories)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if authorID.Valid {
		id := authorID.UUID
		p.AuthorID = &id
	}
	p.CategoryIDs = []uuid.UUID{}
	if err := json.Unmarshal(categoryIDs, &p.CategoryIDs); err != nil {
		return nil, fmt.Errorf("decode category ids: %w", err)
	}
	if withAuthor && author.id.Valid {
		p.Author = &models.UserSummary{
			ID:             author.id.UUID,
			Name:           author.name.String,
			Email:          author.email.String,
			ProfilePicture: author.picture,
		}
	}
	if withCategories {
		p.Categories = []models.CategorySummary{}
		if err := json.Unmarshal(categories, &p.Categories); err != nil {
			return nil, fmt.Errorf("decode categories: %w", err)
		}
	}
	return &p, nil
}

// FindByID retrieves a live post with its author and categories.
// Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx,
		postSelect(true, true)+" WHERE p.id = $1 AND p.deleted_at IS NULL", id), true, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindBySlug retrieves a live post by slug with its author and categories.
// Returns nil if not found.
func (s *PostStore) FindBySlug(ctx context.Context, postSlug string) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx,
		postSelect(true, true)+" WHERE p.slug = $1 AND p.deleted_at IS NULL", postSlug), true, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by slug: %w", err)
	}
	return p, nil
}

// SlugExists reports whether a live post uses candidate.
func (s *PostStore) SlugExists(ctx context.Context, candidate string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND deleted_at IS NULL)", candidate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe post slug: %w", err)
	}
	return exists, nil
}

func postWhere(f PostFilter) *queryBuilder {
	b := &queryBuilder{}
	b.where("p.deleted_at IS NULL")
	if f.Status != "" {
		b.where("p.status = " + b.arg(f.Status))
	}
	if f.AuthorID != nil {
		b.where("p.author_id = " + b.arg(*f.AuthorID))
	}
	if f.CategoryID != nil {
		b.where("EXISTS (SELECT 1 FROM post_categories pc WHERE pc.post_id = p.id AND pc.category_id = " +
			b.arg(*f.CategoryID) + ")")
	}
	if f.Search != "" {
		b.search("p.title", f.Search)
	}
	return b
}

// Count returns the number of live posts matching f.
func (s *PostStore) Count(ctx context.Context, f PostFilter) (int64, error) {
	b := postWhere(f)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p "+b.clause(), b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// Find returns one window of live posts matching q.Filter, expanding the
// relations named in q.Populate.
func (s *PostStore) Find(ctx context.Context, q pagination.Query[PostFilter]) ([]models.Post, error) {
	withAuthor := q.Populates(PopulateAuthor)
	withCategories := q.Populates(PopulateCategories)

	b := postWhere(q.Filter)
	query := postSelect(withAuthor, withCategories) + " " + b.clause() + " " +
		b.window(q.Sort, postSortColumns, "p.id", q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows, withAuthor, withCategories)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// List runs a paginated post listing.
func (s *PostStore) List(ctx context.Context, req pagination.Request[PostFilter]) (*pagination.Result[models.Post], error) {
	return pagination.Paginate[models.Post](ctx, s, req)
}

// Create inserts a post with a slug derived from its title and links its
// categories, then returns it fully populated. A lost race on the slug
// index is retried with a freshly resolved slug.
func (s *PostStore) Create(ctx context.Context, np NewPost) (*models.Post, error) {
	status := np.Status
	if status == "" {
		status = models.PostStatusDraft
	}

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		sl, err := s.slugs.Resolve(ctx, np.Title)
		if err != nil {
			return nil, fmt.Errorf("resolve post slug: %w", err)
		}

		id, err := s.insert(ctx, np, sl, status)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.FindByID(ctx, id)
	}
	return nil, fmt.Errorf("create post: %w", ErrConflict)
}

func (s *PostStore) insert(ctx context.Context, np NewPost, sl string, status models.PostStatus) (uuid.UUID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin create post: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO posts (title, slug, content, excerpt, featured_image, status, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, np.Title, sl, np.Content, np.Excerpt, np.FeaturedImage, status, np.AuthorID).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create post: %w", err)
	}

	if err := linkCategories(ctx, tx, id, np.CategoryIDs); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit create post: %w", err)
	}
	return id, nil
}

func linkCategories(ctx context.Context, tx *sql.Tx, postID uuid.UUID, categoryIDs []uuid.UUID) error {
	for _, cid := range categoryIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, postID, cid); err != nil {
			return fmt.Errorf("link post category: %w", err)
		}
	}
	return nil
}

// Update applies upd to a live post and returns it fully populated.
func (s *PostStore) Update(ctx context.Context, id uuid.UUID, upd PostUpdate) (*models.Post, error) {
	b := &setBuilder{}
	if upd.Title != nil {
		b.set("title", *upd.Title)
	}
	if upd.Content != nil {
		b.set("content", *upd.Content)
	}
	if upd.Excerpt != nil {
		b.set("excerpt", *upd.Excerpt)
	}
	if upd.FeaturedImage != nil {
		b.set("featured_image", *upd.FeaturedImage)
	}
	if upd.Status != nil {
		b.set("status", *upd.Status)
	}
	query := "UPDATE posts SET " + b.assignments() +
		" WHERE id = " + b.arg(id) + " AND deleted_at IS NULL"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update post: %w", err)
	}
	defer tx.Rollback()

	// updated_at is always bumped, so the statement doubles as the
	// existence check even when only categories change.
	res, err := tx.ExecContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	if upd.CategoryIDs != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM post_categories WHERE post_id = $1", id); err != nil {
			return nil, fmt.Errorf("unlink post categories: %w", err)
		}
		if err := linkCategories(ctx, tx, id, *upd.CategoryIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update post: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Delete soft-deletes a post and returns the record as it was.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE posts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return nil, fmt.Errorf("delete post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return p, nil
}
