package publish

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Best AI Coding Assistants in 2024: Complete Guide", "best-ai-coding-assistants-in-2024-complete-guide"},
		{"Hello   World -- Again", "hello-world-again"},
		{"  --Leading and trailing--  ", "leading-and-trailing"},
		{"Café résumé", "caf-rsum"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.title))
		})
	}
}

func TestSlug_LongTitleCutsAtDash(t *testing.T) {
	title := "The Complete Beginner's Guide to Understanding Kubernetes Networking and Service Meshes in Production"
	full := "the-complete-beginners-guide-to-understanding-kubernetes-networking-and-service-meshes-in-production"

	got := Slug(title)
	assert.LessOrEqual(t, len(got), MaxSlugLength)
	assert.True(t, strings.HasPrefix(full, got))
	assert.Equal(t, byte('-'), full[len(got)], "slug must end on a word boundary")
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestSlug_NoUsableCharacters(t *testing.T) {
	got := Slug("!!! ???")
	assert.Regexp(t, regexp.MustCompile(`^post-[0-9a-f]{8}$`), got)
	assert.Equal(t, got, Slug("!!! ???"))
	assert.NotEqual(t, got, Slug("¿¡"))
}
