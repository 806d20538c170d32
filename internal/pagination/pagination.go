// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pagination runs filtered, paginated listings against any record
// source that can count and fetch a bounded window of its rows.
package pagination

import (
	"context"
	"fmt"
	"slices"
)

// Defaults applied when a request leaves page, limit or sort unset.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// DefaultSort orders newest records first.
var DefaultSort = Sort{Field: "created_at", Desc: true}

// Params are the entity-independent paging inputs of a listing.
type Params struct {
	Page     int
	Limit    int
	Sort     Sort
	Populate []string
}

// WithDefaults fills zero values: page 1, limit DefaultLimit, DefaultSort.
func (p Params) WithDefaults() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Sort.Field == "" {
		p.Sort = DefaultSort
	}
	return p
}

// Request is one listing call: paging inputs plus an entity-specific filter.
type Request[F any] struct {
	Params
	Filter F
}

// Query is what a Source receives for the data fetch.
type Query[F any] struct {
	Filter   F
	Sort     Sort
	Offset   int
	Limit    int
	Populate []string
}

// Populates reports whether relation should be expanded.
func (q Query[F]) Populates(relation string) bool {
	return slices.Contains(q.Populate, relation)
}

// Source is a record store that supports counting and windowed fetches
// under the same filter.
type Source[T, F any] interface {
	Count(ctx context.Context, filter F) (int64, error)
	Find(ctx context.Context, q Query[F]) ([]T, error)
}

// Meta describes the page that was returned.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
	Count int64 `json:"count"`
}

// Result is one page of records and its metadata.
type Result[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}

// Offset returns the number of rows to skip for a 1-based page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// TotalPages returns ceil(count/limit). An empty collection has zero pages.
func TotalPages(count int64, limit int) int {
	if count <= 0 || limit <= 0 {
		return 0
	}
	return int((count + int64(limit) - 1) / int64(limit))
}

// Paginate counts the records matching req.Filter, then fetches the
// requested window. It issues exactly one Count and one Find against src.
// A page past the end yields empty Data with the real page count.
func Paginate[T, F any](ctx context.Context, src Source[T, F], req Request[F]) (*Result[T], error) {
	p := req.Params.WithDefaults()

	count, err := src.Count(ctx, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("paginate count: %w", err)
	}

	data, err := src.Find(ctx, Query[F]{
		Filter:   req.Filter,
		Sort:     p.Sort,
		Offset:   Offset(p.Page, p.Limit),
		Limit:    p.Limit,
		Populate: p.Populate,
	})
	if err != nil {
		return nil, fmt.Errorf("paginate find: %w", err)
	}
	if data == nil {
		data = []T{}
	}

	return &Result[T]{
		Data: data,
		Meta: Meta{
			Page:  p.Page,
			Limit: p.Limit,
			Pages: TotalPages(count, p.Limit),
			Count: count,
		},
	}, nil
}
