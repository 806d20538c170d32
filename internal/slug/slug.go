// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives URL-safe identifiers from titles and resolves
// collisions against an existing collection by appending a numeric suffix.
package slug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMaxAttempts bounds the number of probes a Generator makes before
// giving up.
const DefaultMaxAttempts = 1000

// ErrExhausted is returned when every candidate up to the attempt limit is
// already taken.
var ErrExhausted = errors.New("slug: no free candidate within attempt limit")

var (
	// whitespaceRuns matches runs of anything unicode.IsSpace accepts.
	// RE2's \s alone is ASCII only and misses \v.
	whitespaceRuns = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+`)
	// disallowed matches anything that isn't a lowercase letter, digit, or hyphen.
	disallowed = regexp.MustCompile(`[^a-z0-9-]`)
)

// Normalize lower-cases s, replaces each run of whitespace with a single
// hyphen and strips every remaining character that is not a letter, digit
// or hyphen. Leading and trailing hyphens are kept.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Normalize(s string) string {
	result := strings.ToLower(s)
	result = whitespaceRuns.ReplaceAllString(result, "-")
	return disallowed.ReplaceAllString(result, "")
}

// Candidate is one attempt at a unique slug: the normalized base plus a
// collision counter.
type Candidate struct {
	Base    string
	Counter int
}

// String renders the candidate. Counter 0 is the bare base; any other
// counter is appended as "-N".
func (c Candidate) String() string {
	if c.Counter == 0 {
		return c.Base
	}
	return c.Base + "-" + strconv.Itoa(c.Counter)
}

// Prober reports whether a live record already uses the given slug.
type Prober interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, slug string) (bool, error)

// SlugExists calls f.
func (f ProberFunc) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f(ctx, slug)
}

// Generator resolves unique slugs against one collection.
//
// The probe is advisory: two concurrent Resolve calls can return the same
// candidate. Callers must still rely on a unique index to reject the loser.
type Generator struct {
	prober      Prober
	maxAttempts int
}

// NewGenerator returns a Generator backed by p. A maxAttempts of zero or
// less selects DefaultMaxAttempts.
func NewGenerator(p Prober, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{prober: p, maxAttempts: maxAttempts}
}

// Resolve normalizes title and returns the first candidate, starting at
// counter 0, that the prober reports as free.
func (g *Generator) Resolve(ctx context.Context, title string) (string, error) {
	return g.ResolveFrom(ctx, title, 0)
}

// ResolveFrom is Resolve with an explicit starting counter.
func (g *Generator) ResolveFrom(ctx context.Context, title string, counter int) (string, error) {
	if counter < 0 {
		return "", fmt.Errorf("slug: negative counter %d", counter)
	}

	cand := Candidate{Base: Normalize(title), Counter: counter}
	if cand.Base == "" {
		slog.Warn("slug base is empty after normalization", "title", title)
	}

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		taken, err := g.prober.SlugExists(ctx, cand.String())
		if err != nil {
			return "", fmt.Errorf("probe slug %q: %w", cand.String(), err)
		}
		if !taken {
			return cand.String(), nil
		}
		cand.Counter++
	}

	return "", fmt.Errorf("%w: base %q after %d attempts", ErrExhausted, cand.Base, g.maxAttempts)
}
