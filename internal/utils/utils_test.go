package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheExpiry(t *testing.T) {
	c, err := NewCache[string](2)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "1", time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheEvictsAndDeletes(t *testing.T) {
	c, err := NewCache[int](2)
	require.NoError(t, err)

	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Set("c", 3, time.Hour)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry evicted")

	c.Delete("b")
	_, ok = c.Get("b")
	assert.False(t, ok)

	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := RenderMarkdown("**bold** <script>alert(1)</script>")

	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestRenderMarkdownLinks(t *testing.T) {
	out := RenderMarkdown("see https://example.com and [x](javascript:alert(1))")

	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, "nofollow")
	assert.Contains(t, out, `target="_blank"`)
	assert.NotContains(t, out, "javascript:")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short", 50))
	assert.Equal(t, "héllo", Snippet("héllo wörld", 5))
	assert.Len(t, []rune(Snippet(strings.Repeat("ü", 80), 50)), 50)
}

func TestStringToUint(t *testing.T) {
	id, ok := StringToUint("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, in := range []string{"", "0", "-1", "abc"} {
		_, ok := StringToUint(in)
		assert.False(t, ok, in)
	}
	assert.Equal(t, 0, StringToInt("x"))
}
