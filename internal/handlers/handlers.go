// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON endpoints of the blog API. Each
// handler group depends on small interfaces over the stores so it can be
// exercised without a database.
package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogapi/internal/models"
	"blogapi/internal/pagination"
	"blogapi/internal/respond"
	"blogapi/internal/store"
)

// UserRepository is the user persistence the handlers need.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, req pagination.Request[store.UserFilter]) (*pagination.Result[models.User], error)
	Create(ctx context.Context, nu store.NewUser) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, upd store.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	ResetTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(u *models.User, password string) bool
}

// PostRepository is the post persistence the handlers need.
type PostRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, req pagination.Request[store.PostFilter]) (*pagination.Result[models.Post], error)
	Create(ctx context.Context, np store.NewPost) (*models.Post, error)
	Update(ctx context.Context, id uuid.UUID, upd store.PostUpdate) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Post, error)
}

// CategoryRepository is the category persistence the handlers need.
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CountExisting(ctx context.Context, ids []uuid.UUID) (int, error)
	List(ctx context.Context, req pagination.Request[store.CategoryFilter]) (*pagination.Result[models.Category], error)
	Create(ctx context.Context, name string, description *string) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, upd store.CategoryUpdate) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(u *models.User) (string, time.Time, error)
}

// TokenRevoker records logged-out tokens.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) error
}

// PostCache caches populated posts by slug. Implementations must treat
// failures as misses.
type PostCache interface {
	Get(ctx context.Context, slug string) (*models.Post, bool)
	Set(ctx context.Context, p *models.Post)
	Invalidate(ctx context.Context, slug string)
	InvalidateAll(ctx context.Context)
}

// noCache is the PostCache used when none is configured.
type noCache struct{}

func (noCache) Get(context.Context, string) (*models.Post, bool) { return nil, false }
func (noCache) Set(context.Context, *models.Post)               {}
func (noCache) Invalidate(context.Context, string)              {}
func (noCache) InvalidateAll(context.Context)                   {}

// idParam parses the {id} path parameter. On failure it writes a 400 and
// returns false.
func idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// uuidQuery parses an optional UUID query parameter.
func uuidQuery(q url.Values, key string) (*uuid.UUID, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// listParams parses the shared paging parameters, writing a 400 on failure.
func listParams(w http.ResponseWriter, r *http.Request, cfg pagination.Config, allowed pagination.Allowed) (pagination.Params, bool) {
	p, err := pagination.ParseQuery(r.URL.Query(), cfg, allowed)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return p, false
	}
	return p, true
}
