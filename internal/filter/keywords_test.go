package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByKeywords(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://example.com/",
		"https://example.com/Docs/intro",
		"https://example.com/blog/2024",
		"https://example.com/docs/api",
	}

	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{name: "nil keeps all", keywords: nil, want: urls},
		{name: "blank keywords keep all", keywords: []string{"", "  "}, want: urls},
		{
			name:     "case insensitive",
			keywords: []string{" DOCS "},
			want:     []string{"https://example.com/Docs/intro", "https://example.com/docs/api"},
		},
		{
			name:     "any keyword matches",
			keywords: []string{"blog", "api"},
			want:     []string{"https://example.com/blog/2024", "https://example.com/docs/api"},
		},
		{name: "no match", keywords: []string{"pricing"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ByKeywords(urls, tt.keywords))
		})
	}
}

func TestByKeywordsDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	urls := []string{"https://a.example/", "https://b.example/"}
	out := ByKeywords(urls, nil)
	out[0] = "changed"
	require.Equal(t, "https://a.example/", urls[0])
}
