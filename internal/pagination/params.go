// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagination

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidParams wraps every query-string parsing failure.
var ErrInvalidParams = errors.New("invalid query parameter")

// Sort orders a listing by a single field.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads "field" as ascending and "-field" as descending.
func ParseSort(s string) Sort {
	s = strings.TrimSpace(s)
	if desc, ok := strings.CutPrefix(s, "-"); ok {
		return Sort{Field: desc, Desc: true}
	}
	return Sort{Field: s}
}

// String is the inverse of ParseSort.
func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// Config bounds what a client may ask for.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultConfig returns limit 10 capped at 100.
func DefaultConfig() Config {
	return Config{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit}
}

// Allowed lists the sort fields and relations an endpoint accepts.
type Allowed struct {
	Sort     []string
	Populate []string
}

// ParseQuery reads page, limit, sort and populate from a query string.
// Absent or zero page and limit fall back to defaults; negative or
// non-numeric values, a limit above cfg.MaxLimit, a page whose offset
// overflows, and sort fields or relations outside allowed are rejected
// with ErrInvalidParams.
func ParseQuery(q url.Values, cfg Config, allowed Allowed) (Params, error) {
	p := Params{
		Page:  DefaultPage,
		Limit: cfg.DefaultLimit,
		Sort:  DefaultSort,
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			return p, fmt.Errorf("%w: page must be a positive integer", ErrInvalidParams)
		}
		if page > 0 {
			p.Page = page
		}
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 || limit > cfg.MaxLimit {
			return p, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidParams, cfg.MaxLimit)
		}
		if limit > 0 {
			p.Limit = limit
		}
	}

	// The row offset must fit in an int.
	if p.Limit > 0 && p.Page-1 > math.MaxInt/p.Limit {
		return p, fmt.Errorf("%w: page is too large", ErrInvalidParams)
	}

	if v := q.Get("sort"); v != "" {
		s := ParseSort(v)
		if !slices.Contains(allowed.Sort, s.Field) {
			return p, fmt.Errorf("%w: sort must be one of %s", ErrInvalidParams, strings.Join(allowed.Sort, ", "))
		}
		p.Sort = s
	}

	if v := q.Get("populate"); v != "" {
		for _, rel := range strings.Split(v, ",") {
			rel = strings.TrimSpace(rel)
			if rel == "" {
				continue
			}
			if !slices.Contains(allowed.Populate, rel) {
				return p, fmt.Errorf("%w: cannot populate %q", ErrInvalidParams, rel)
			}
			if !slices.Contains(p.Populate, rel) {
				p.Populate = append(p.Populate, rel)
			}
		}
	}

	return p, nil
}
