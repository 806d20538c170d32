// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides in-memory repositories and request helpers
// shared by the handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"blogapi/internal/auth"
	"blogapi/internal/middleware"
	"blogapi/internal/models"
	"blogapi/internal/pagination"
	"blogapi/internal/store"
)

const testSecret = "handler-test-secret-0123456789abcdef"

// --------------------------------------------------------------------------
// Users
// --------------------------------------------------------------------------

type fakeUsers struct {
	byID    map[uuid.UUID]*models.User
	err     error
	listReq pagination.Request[store.UserFilter]
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) List(_ context.Context, req pagination.Request[store.UserFilter]) (*pagination.Result[models.User], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listReq = req
	var data []models.User
	for _, u := range f.byID {
		if req.Filter.Role == "" || u.Role == req.Filter.Role {
			data = append(data, *u)
		}
	}
	p := req.Params.WithDefaults()
	return &pagination.Result[models.User]{
		Data: data,
		Meta: pagination.Meta{Page: p.Page, Limit: p.Limit, Count: int64(len(data)), Pages: pagination.TotalPages(int64(len(data)), p.Limit)},
	}, nil
}

func (f *fakeUsers) Create(_ context.Context, nu store.NewUser) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, nu.Email) {
			return nil, store.ErrConflict
		}
	}
	role := nu.Role
	if role == "" {
		role = models.RoleUser
	}
	u := &models.User{
		ID:           uuid.New(),
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.Password,
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.byID[u.ID] = u
	c := *u
	return &c, nil
}

func (f *fakeUsers) Update(_ context.Context, id uuid.UUID, upd store.UserUpdate) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Email != nil {
		for _, other := range f.byID {
			if other.ID != id && strings.EqualFold(other.Email, *upd.Email) {
				return nil, store.ErrConflict
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Password != nil {
		u.PasswordHash = *upd.Password
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = upd.ProfilePicture
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.byID, id)
	return u, nil
}

func (f *fakeUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	if u, ok := f.byID[id]; ok {
		u.TOTPSecret = &secret
	}
	return f.err
}

func (f *fakeUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	if u, ok := f.byID[id]; ok {
		u.TOTPEnabled = true
	}
	return f.err
}

func (f *fakeUsers) ResetTOTP(_ context.Context, id uuid.UUID) error {
	u, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.TOTPSecret = nil
	u.TOTPEnabled = false
	return nil
}

// CheckPassword compares in plain text; the fake stores passwords as-is.
func (f *fakeUsers) CheckPassword(u *models.User, password string) bool {
	return u.PasswordHash == password
}

// --------------------------------------------------------------------------
// Posts
// --------------------------------------------------------------------------

type fakePosts struct {
	byID       map[uuid.UUID]*models.Post
	err        error
	listReq    pagination.Request[store.PostFilter]
	slugLoads  int
	lastCreate store.NewPost
	lastUpdate store.PostUpdate
}

func newFakePosts(posts ...*models.Post) *fakePosts {
	f := &fakePosts{byID: map[uuid.UUID]*models.Post{}}
	for _, p := range posts {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f *fakePosts) FindBySlug(_ context.Context, postSlug string) (*models.Post, error) {
	f.slugLoads++
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byID {
		if p.Slug == postSlug {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakePosts) List(_ context.Context, req pagination.Request[store.PostFilter]) (*pagination.Result[models.Post], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listReq = req
	p := req.Params.WithDefaults()
	return &pagination.Result[models.Post]{
		Data: []models.Post{},
		Meta: pagination.Meta{Page: p.Page, Limit: p.Limit},
	}, nil
}

func (f *fakePosts) Create(_ context.Context, np store.NewPost) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastCreate = np
	status := np.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	author := np.AuthorID
	p := &models.Post{
		ID:          uuid.New(),
		Title:       np.Title,
		Slug:        strings.ToLower(strings.ReplaceAll(np.Title, " ", "-")),
		Content:     np.Content,
		Excerpt:     np.Excerpt,
		Status:      status,
		AuthorID:    &author,
		CategoryIDs: np.CategoryIDs,
	}
	f.byID[p.ID] = p
	c := *p
	return &c, nil
}

func (f *fakePosts) Update(_ context.Context, id uuid.UUID, upd store.PostUpdate) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastUpdate = upd
	p, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Content != nil {
		p.Content = upd.Content
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.CategoryIDs != nil {
		p.CategoryIDs = *upd.CategoryIDs
	}
	c := *p
	return &c, nil
}

func (f *fakePosts) Delete(_ context.Context, id uuid.UUID) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.byID, id)
	return p, nil
}

// --------------------------------------------------------------------------
// Categories
// --------------------------------------------------------------------------

type fakeCategories struct {
	byID    map[uuid.UUID]*models.Category
	err     error
	listReq pagination.Request[store.CategoryFilter]
}

func newFakeCategories(cats ...*models.Category) *fakeCategories {
	f := &fakeCategories{byID: map[uuid.UUID]*models.Category{}}
	for _, c := range cats {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategories) CountExisting(_ context.Context, ids []uuid.UUID) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := 0
	for _, id := range ids {
		if _, ok := f.byID[id]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeCategories) List(_ context.Context, req pagination.Request[store.CategoryFilter]) (*pagination.Result[models.Category], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listReq = req
	var data []models.Category
	for _, c := range f.byID {
		data = append(data, *c)
	}
	p := req.Params.WithDefaults()
	return &pagination.Result[models.Category]{
		Data: data,
		Meta: pagination.Meta{Page: p.Page, Limit: p.Limit, Count: int64(len(data)), Pages: pagination.TotalPages(int64(len(data)), p.Limit)},
	}, nil
}

func (f *fakeCategories) Create(_ context.Context, name string, description *string) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.byID {
		if strings.EqualFold(c.Name, name) {
			return nil, store.ErrConflict
		}
	}
	c := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        strings.ToLower(name),
		Description: description,
	}
	f.byID[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeCategories) Update(_ context.Context, id uuid.UUID, upd store.CategoryUpdate) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = upd.Description
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.byID, id)
	return c, nil
}

// --------------------------------------------------------------------------
// Cache and revocation
// --------------------------------------------------------------------------

type fakeCache struct {
	entries     map[string]*models.Post
	invalidated []string
	cleared     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*models.Post{}}
}

func (c *fakeCache) Get(_ context.Context, slug string) (*models.Post, bool) {
	p, ok := c.entries[slug]
	return p, ok
}

func (c *fakeCache) Set(_ context.Context, p *models.Post) { c.entries[p.Slug] = p }

func (c *fakeCache) Invalidate(_ context.Context, slug string) {
	c.invalidated = append(c.invalidated, slug)
	delete(c.entries, slug)
}

func (c *fakeCache) InvalidateAll(context.Context) {
	c.cleared++
	clear(c.entries)
}

func (c *fakeCache) wasInvalidated(slug string) bool {
	return slices.Contains(c.invalidated, slug)
}

type fakeRevoker struct {
	revoked map[string]uuid.UUID
	err     error
}

func (f *fakeRevoker) Revoke(_ context.Context, jti string, userID uuid.UUID, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	if f.revoked == nil {
		f.revoked = map[string]uuid.UUID{}
	}
	f.revoked[jti] = userID
	return nil
}

// --------------------------------------------------------------------------
// Fixtures and request helpers
// --------------------------------------------------------------------------

func testUser(role models.Role) *models.User {
	return &models.User{
		ID:           uuid.New(),
		Name:         "John Doe",
		Email:        "john." + uuid.NewString()[:8] + "@mail.com",
		PasswordHash: "secret123",
		Role:         role,
	}
}

func testIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	iss, err := auth.NewIssuer(testSecret, "blogapi-test", time.Hour)
	require.NoError(t, err)
	return iss
}

// jsonRequest builds a request with body encoded as JSON. A string body
// is sent verbatim.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withParam sets a chi URL parameter on r.
func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asUser attaches claims for u as the authentication middleware would.
func asUser(r *http.Request, u *models.User) *http.Request {
	claims := &auth.Claims{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-" + u.ID.String(),
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

type testFieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type testEnvelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Meta    *pagination.Meta `json:"meta"`
	Token   string           `json:"token"`
	Errors  []testFieldError `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// decodeData unmarshals the envelope's data into a value of type T.
func decodeData[T any](t *testing.T, env testEnvelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func errorFields(env testEnvelope) []string {
	fields := make([]string, 0, len(env.Errors))
	for _, e := range env.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}
