// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPostStatusValid(t *testing.T) {
	if !PostStatusDraft.Valid() || !PostStatusPublished.Valid() {
		t.Error("known statuses should be valid")
	}
	if PostStatus("archived").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestPostIsAuthoredBy(t *testing.T) {
	author := uuid.New()
	other := uuid.New()

	p := &Post{AuthorID: &author}
	if !p.IsAuthoredBy(author) {
		t.Error("IsAuthoredBy(author) = false, want true")
	}
	if p.IsAuthoredBy(other) {
		t.Error("IsAuthoredBy(other) = true, want false")
	}

	orphan := &Post{}
	if orphan.IsAuthoredBy(author) {
		t.Error("post without author should not match any user")
	}
}

func TestPostCategoriesJSON(t *testing.T) {
	tests := []struct {
		name       string
		categories []CategorySummary
		want       string
		wantKey    bool
	}{
		{name: "not populated", categories: nil, wantKey: false},
		{name: "populated without categories", categories: []CategorySummary{}, want: `"categories":[]`, wantKey: true},
		{name: "populated", categories: []CategorySummary{{Name: "Go", Slug: "go"}}, want: `"slug":"go"`, wantKey: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(&Post{Title: "Hello", Categories: tt.categories})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			body := string(data)
			if got := strings.Contains(body, `"categories":`); got != tt.wantKey {
				t.Errorf("categories key present = %v, want %v: %s", got, tt.wantKey, body)
			}
			if tt.want != "" && !strings.Contains(body, tt.want) {
				t.Errorf("body %s does not contain %s", body, tt.want)
			}
		})
	}
}
