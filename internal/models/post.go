// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Post is a blog article. Content is Markdown.
type Post struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Slug          string      `json:"slug"`
	Content       *string     `json:"content"`
	Excerpt       *string     `json:"excerpt"`
	FeaturedImage *string     `json:"featured_image"`
	Status        PostStatus  `json:"status"`
	AuthorID      *uuid.UUID  `json:"author_id"`
	CategoryIDs   []uuid.UUID `json:"category_ids"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	// Virtual fields populated on request.
	Author      *UserSummary      `json:"author,omitempty"`
	Categories  []CategorySummary `json:"categories,omitzero"`
	ContentHTML string            `json:"content_html,omitempty"`
}

// IsAuthoredBy reports whether userID wrote the post.
func (p *Post) IsAuthoredBy(userID uuid.UUID) bool {
	return p.AuthorID != nil && *p.AuthorID == userID
}
