// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/booklore/booklore/pkg/slug"
)

/*
TestSlug_From verifies the slug transformation pipeline on common book titles.
*/
func TestSlug_From(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Go in Action", "go-in-action"},
		{"accents", "Éducation Sentimentale", "education-sentimentale"},
		{"punctuation", "Harry Potter & the Philosopher's Stone!", "harry-potter-the-philosopher-s-stone"},
		{"extra_whitespace", "  The   Hobbit  ", "the-hobbit"},
		{"already_slug", "clean-code", "clean-code"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.input))
		})
	}
}
