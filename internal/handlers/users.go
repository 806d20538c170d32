// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"

	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/pagination"
	"blogapi/internal/respond"
	"blogapi/internal/store"
)

// Users groups the user management handlers.
type Users struct {
	users UserRepository
	cache PostCache
	page  pagination.Config
}

// NewUsers creates a new Users handler group. Author details are embedded
// in cached posts, so user edits clear the post cache.
func NewUsers(users UserRepository, cache PostCache, page pagination.Config) *Users {
	if cache == nil {
		cache = noCache{}
	}
	return &Users{users: users, cache: cache, page: page}
}

var userListAllowed = pagination.Allowed{Sort: store.UserSortFields}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type updateUserRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=3,max=100"`
	Email          *string `json:"email" validate:"omitempty,email,max=254"`
	Password       *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role           *string `json:"role" validate:"omitempty,oneof=user admin"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,url,max=2048"`
}

// List returns a page of users, optionally filtered by role and name.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r, h.page, userListAllowed)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.UserFilter{Search: q.Get("search")}
	if role := models.Role(q.Get("role")); role != "" {
		if !role.Valid() {
			respond.Invalid(w, "Validation failed", []respond.FieldError{{Field: "role", Message: "role must be one of: user, admin"}})
			return
		}
		filter.Role = role
	}

	res, err := h.users.List(r.Context(), pagination.Request[store.UserFilter]{Params: params, Filter: filter})
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.Page(w, "Users fetched successfully", res)
}

// Get returns a single user.
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	if user == nil {
		respond.Error(w, http.StatusNotFound, "User not found")
		return
	}
	respond.OK(w, http.StatusOK, "User fetched successfully", user)
}

// Create adds a user with any role.
func (h *Users) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.users.Create(r.Context(), store.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if errors.Is(err, store.ErrConflict) {
		respond.Error(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.OK(w, http.StatusCreated, "User created successfully", user)
}

// Update applies a partial update to a user.
func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !bind(w, r, &req) {
		return
	}

	upd := store.UserUpdate{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		ProfilePicture: req.ProfilePicture,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		upd.Role = &role
	}

	user, err := h.users.Update(r.Context(), id, upd)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, store.ErrConflict):
		respond.Error(w, http.StatusConflict, "Email is already in use")
		return
	case err != nil:
		respond.Internal(w, r, err)
		return
	}

	h.cache.InvalidateAll(r.Context())
	respond.OK(w, http.StatusOK, "User updated successfully", user)
}

// Delete soft-deletes a user. Admins cannot delete their own account.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if claims := middleware.ClaimsFromCtx(r.Context()); claims != nil && claims.UserID == id {
		respond.Error(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	user, err := h.users.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	h.cache.InvalidateAll(r.Context())
	respond.OK(w, http.StatusOK, "User deleted successfully", user)
}

// ResetTwoFA disables 2FA for a user who lost their authenticator.
func (h *Users) ResetTwoFA(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	err := h.users.ResetTOTP(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.OK(w, http.StatusOK, "Two-factor authentication reset", nil)
}
