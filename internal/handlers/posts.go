// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogapi/internal/markdown"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/pagination"
	"blogapi/internal/respond"
	"blogapi/internal/store"
)

// Posts groups the post handlers.
type Posts struct {
	posts      PostRepository
	categories CategoryRepository
	cache      PostCache
	page       pagination.Config
}

// NewPosts creates a new Posts handler group. cache may be nil.
func NewPosts(posts PostRepository, categories CategoryRepository, cache PostCache, page pagination.Config) *Posts {
	if cache == nil {
		cache = noCache{}
	}
	return &Posts{posts: posts, categories: categories, cache: cache, page: page}
}

var postListAllowed = pagination.Allowed{Sort: store.PostSortFields, Populate: store.PostPopulateFields}

type createPostRequest struct {
	Title         string      `json:"title" validate:"required,max=300"`
	Status        string      `json:"status" validate:"omitempty,oneof=draft published"`
	Content       *string     `json:"content" validate:"omitempty,max=100000"`
	Excerpt       *string     `json:"excerpt" validate:"omitempty,max=1000"`
	FeaturedImage *string     `json:"featured_image" validate:"omitempty,url,max=2048"`
	Categories    []uuid.UUID `json:"categories" validate:"omitempty,max=20"`
}

// updatePostRequest leaves nil fields unchanged. A present categories
// list, even an empty one, replaces the old set.
type updatePostRequest struct {
	Title         *string      `json:"title" validate:"omitempty,min=1,max=300"`
	Status        *string      `json:"status" validate:"omitempty,oneof=draft published"`
	Content       *string      `json:"content" validate:"omitempty,max=100000"`
	Excerpt       *string      `json:"excerpt" validate:"omitempty,max=1000"`
	FeaturedImage *string      `json:"featured_image" validate:"omitempty,url,max=2048"`
	Categories    *[]uuid.UUID `json:"categories" validate:"omitempty,max=20"`
}

// List returns a page of posts. Supported filters are status, author,
// category and search; populate expands author and categories.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r, h.page, postListAllowed)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.PostFilter{Search: q.Get("search")}
	var errs []respond.FieldError

	if status := models.PostStatus(q.Get("status")); status != "" {
		if status.Valid() {
			filter.Status = status
		} else {
			errs = append(errs, respond.FieldError{Field: "status", Message: "status must be one of: draft, published"})
		}
	}
	if id, err := uuidQuery(q, "author"); err != nil {
		errs = append(errs, respond.FieldError{Field: "author", Message: "author must be a valid id"})
	} else {
		filter.AuthorID = id
	}
	if id, err := uuidQuery(q, "category"); err != nil {
		errs = append(errs, respond.FieldError{Field: "category", Message: "category must be a valid id"})
	} else {
		filter.CategoryID = id
	}
	if len(errs) > 0 {
		respond.Invalid(w, "Validation failed", errs)
		return
	}

	res, err := h.posts.List(r.Context(), pagination.Request[store.PostFilter]{Params: params, Filter: filter})
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.Page(w, "Posts fetched successfully", res)
}

// Get returns a single post with its rendered content.
func (h *Posts) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	post, err := h.posts.FindByID(r.Context(), id)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	if post == nil {
		respond.Error(w, http.StatusNotFound, "Post not found")
		return
	}
	h.render(post)
	respond.OK(w, http.StatusOK, "Post fetched successfully", post)
}

// GetBySlug returns a single post by slug, served from the cache when
// possible.
func (h *Posts) GetBySlug(w http.ResponseWriter, r *http.Request) {
	postSlug := chi.URLParam(r, "slug")
	if post, ok := h.cache.Get(r.Context(), postSlug); ok {
		respond.OK(w, http.StatusOK, "Post fetched successfully", post)
		return
	}

	post, err := h.posts.FindBySlug(r.Context(), postSlug)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	if post == nil {
		respond.Error(w, http.StatusNotFound, "Post not found")
		return
	}
	h.render(post)
	h.cache.Set(r.Context(), post)
	respond.OK(w, http.StatusOK, "Post fetched successfully", post)
}

// Create stores a new post authored by the caller. The slug is derived
// from the title.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		respond.Error(w, http.StatusUnauthorized, "You must be logged in to access this resource")
		return
	}
	var req createPostRequest
	if !bind(w, r, &req) {
		return
	}

	categoryIDs := dedupe(req.Categories)
	if !h.checkCategories(w, r, categoryIDs) {
		return
	}

	post, err := h.posts.Create(r.Context(), store.NewPost{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		FeaturedImage: req.FeaturedImage,
		Status:        models.PostStatus(req.Status),
		AuthorID:      claims.UserID,
		CategoryIDs:   categoryIDs,
	})
	if errors.Is(err, store.ErrConflict) {
		respond.Error(w, http.StatusConflict, "Could not allocate a unique slug, please retry")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	slog.Info("post created", "post_id", post.ID, "slug", post.Slug, "author_id", claims.UserID)
	h.render(post)
	respond.OK(w, http.StatusCreated, "Post created successfully", post)
}

// Update edits a post. Only its author or an admin may do so. The slug
// does not change.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	var req updatePostRequest
	if !bind(w, r, &req) {
		return
	}

	upd := store.PostUpdate{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		FeaturedImage: req.FeaturedImage,
	}
	if req.Status != nil {
		status := models.PostStatus(*req.Status)
		upd.Status = &status
	}
	if req.Categories != nil {
		ids := dedupe(*req.Categories)
		if !h.checkCategories(w, r, ids) {
			return
		}
		upd.CategoryIDs = &ids
	}

	post, err := h.posts.Update(r.Context(), existing.ID, upd)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	h.cache.Invalidate(r.Context(), existing.Slug)
	h.render(post)
	respond.OK(w, http.StatusOK, "Post updated successfully", post)
}

// Delete soft-deletes a post. Only its author or an admin may do so.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	post, err := h.posts.Delete(r.Context(), existing.ID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	h.cache.Invalidate(r.Context(), existing.Slug)
	respond.OK(w, http.StatusOK, "Post deleted successfully", post)
}

// loadOwned fetches the {id} post and checks the caller may modify it.
func (h *Posts) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	claims := middleware.ClaimsFromCtx(r.Context())
	if claims == nil {
		respond.Error(w, http.StatusUnauthorized, "You must be logged in to access this resource")
		return nil, false
	}
	id, ok := idParam(w, r)
	if !ok {
		return nil, false
	}

	post, err := h.posts.FindByID(r.Context(), id)
	if err != nil {
		respond.Internal(w, r, err)
		return nil, false
	}
	if post == nil {
		respond.Error(w, http.StatusNotFound, "Post not found")
		return nil, false
	}
	if !post.IsAuthoredBy(claims.UserID) && !claims.IsAdmin() {
		respond.Error(w, http.StatusForbidden, "You can only modify your own posts")
		return nil, false
	}
	return post, true
}

// checkCategories rejects ids that do not name live categories.
func (h *Posts) checkCategories(w http.ResponseWriter, r *http.Request, ids []uuid.UUID) bool {
	if len(ids) == 0 {
		return true
	}
	n, err := h.categories.CountExisting(r.Context(), ids)
	if err != nil {
		respond.Internal(w, r, err)
		return false
	}
	if n != len(ids) {
		respond.Invalid(w, "Validation failed", []respond.FieldError{
			{Field: "categories", Message: "one or more categories do not exist"},
		})
		return false
	}
	return true
}

// render fills ContentHTML. A rendering failure leaves it empty rather
// than failing the read.
func (h *Posts) render(p *models.Post) {
	if err := markdown.RenderPost(p); err != nil {
		slog.Warn("markdown render failed", "post_id", p.ID, "error", err)
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
