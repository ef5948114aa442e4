package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulation-registry/core/internal/extract"
)

func samplePageMap(text string) []extract.PageMapEntry {
	return []extract.PageMapEntry{
		{Page: 1, StartChar: 0, EndChar: len(text)},
	}
}

func TestChunk_ParagraphBoundary(t *testing.T) {
	c := New(1500)
	text := "first paragraph text.\n\nsecond paragraph text."
	chunks, manifest := c.Chunk(text, samplePageMap(text), Options{})
	require.Len(t, chunks, 2)
	assert.Equal(t, "paragraph_then_hard", manifest.Policy.Split)
	assert.Equal(t, 2, manifest.Count)
	assert.Equal(t, "first paragraph text.", text[chunks[0].StartChar:chunks[0].EndChar])
	assert.Equal(t, "second paragraph text.", text[chunks[1].StartChar:chunks[1].EndChar])
}

func TestChunk_HardSplitLongParagraph(t *testing.T) {
	c := New(10)
	text := strings.Repeat("a", 25)
	chunks, _ := c.Chunk(text, samplePageMap(text), Options{MaxChars: 10})
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 10, chunks[0].EndChar)
	assert.Equal(t, 20, chunks[2].StartChar)
	assert.Equal(t, 25, chunks[2].EndChar)
}

func TestChunk_OverlapAdvancesCursor(t *testing.T) {
	c := New(10)
	text := strings.Repeat("b", 25)
	chunks, manifest := c.Chunk(text, samplePageMap(text), Options{MaxChars: 10, OverlapChars: 4})
	require.True(t, len(chunks) >= 3)
	assert.Equal(t, 4, manifest.Policy.OverlapChars)
	// Each successive chunk should start before the previous chunk's end,
	// proving overlap was applied.
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].StartChar, chunks[i-1].EndChar)
	}
}

func TestChunk_OverlapClampedBelowMaxChars(t *testing.T) {
	c := New(5)
	text := strings.Repeat("c", 12)
	// overlap of 100 must clamp to maxChars-1 = 4, never causing an infinite loop.
	chunks, manifest := c.Chunk(text, samplePageMap(text), Options{MaxChars: 5, OverlapChars: 100})
	assert.Equal(t, 4, manifest.Policy.OverlapChars)
	assert.NotEmpty(t, chunks)
}

func TestChunk_SkipsWhitespaceOnlyChunks(t *testing.T) {
	c := New(1500)
	text := "real content.\n\n   \n\nmore content."
	chunks, _ := c.Chunk(text, samplePageMap(text), Options{})
	for _, ch := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(text[ch.StartChar:ch.EndChar]))
	}
	require.Len(t, chunks, 2)
}

func TestChunk_Deterministic(t *testing.T) {
	c := New(1500)
	text := "alpha beta.\n\ngamma delta epsilon, zeta eta theta."
	pm := samplePageMap(text)
	chunks1, manifest1 := c.Chunk(text, pm, Options{})
	chunks2, manifest2 := c.Chunk(text, pm, Options{})
	assert.Equal(t, chunks1, chunks2)
	assert.Equal(t, manifest1, manifest2)
}

func TestChunk_PageSpanLookup(t *testing.T) {
	c := New(1500)
	text := "page one text\n\npage two text"
	pageMap := []extract.PageMapEntry{
		{Page: 1, StartChar: 0, EndChar: 13},
		{Page: 2, StartChar: 15, EndChar: 28},
	}
	chunks, _ := c.Chunk(text, pageMap, Options{})
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
	assert.Equal(t, 2, chunks[1].PageStart)
	assert.Equal(t, 2, chunks[1].PageEnd)
}

func TestChunk_TextSHA256Populated(t *testing.T) {
	c := New(1500)
	text := "hash me please."
	chunks, _ := c.Chunk(text, samplePageMap(text), Options{})
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].TextSHA256, 64)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(1500)
	chunks, manifest := c.Chunk("", nil, Options{})
	assert.Empty(t, chunks)
	assert.Equal(t, 0, manifest.Count)
}

func TestChunk_DefaultMaxCharsWhenNonPositive(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultMaxChars, c.maxChars)
}
