package handlers

import (
	"errors"
	"net/http"

	"blogapi/internal/pagination"
	"blogapi/internal/respond"
	"blogapi/internal/store"
)

// Categories groups the category handlers. Writes are mounted behind
// RequireAdmin.
type Categories struct {
	categories CategoryRepository
	cache      PostCache
	page       pagination.Config
}

func NewCategories(categories CategoryRepository, cache PostCache, page pagination.Config) *Categories {
	if cache == nil {
		cache = noCache{}
	}
	return &Categories{categories: categories, cache: cache, page: page}
}

var categoryListAllowed = pagination.Allowed{Sort: store.CategorySortFields}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r, h.page, categoryListAllowed)
	if !ok {
		return
	}
	filter := store.CategoryFilter{Search: r.URL.Query().Get("search")}

	res, err := h.categories.List(r.Context(), pagination.Request[store.CategoryFilter]{Params: params, Filter: filter})
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.Page(w, "Categories fetched successfully", res)
}

func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.categories.FindByID(r.Context(), id)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	if c == nil {
		respond.Error(w, http.StatusNotFound, "Category not found")
		return
	}
	respond.OK(w, http.StatusOK, "Category fetched successfully", c)
}

// Create adds a category; its slug is derived from the name.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !bind(w, r, &req) {
		return
	}

	c, err := h.categories.Create(r.Context(), req.Name, req.Description)
	if errors.Is(err, store.ErrConflict) {
		respond.Error(w, http.StatusConflict, "Category already exists")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.OK(w, http.StatusCreated, "Category created successfully", c)
}

// Update renames or re-describes a category. Cached posts embed category
// summaries, so the post cache is cleared.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req updateCategoryRequest
	if !bind(w, r, &req) {
		return
	}

	c, err := h.categories.Update(r.Context(), id, store.CategoryUpdate{Name: req.Name, Description: req.Description})
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Category not found")
		return
	case errors.Is(err, store.ErrConflict):
		respond.Error(w, http.StatusConflict, "Category already exists")
		return
	case err != nil:
		respond.Internal(w, r, err)
		return
	}

	h.cache.InvalidateAll(r.Context())
	respond.OK(w, http.StatusOK, "Category updated successfully", c)
}

func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	c, err := h.categories.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	h.cache.InvalidateAll(r.Context())
	respond.OK(w, http.StatusOK, "Category deleted successfully", c)
}
