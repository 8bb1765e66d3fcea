package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkerDeterministicIDs(t *testing.T) {
	chunker := NewChunker(100, 20)
	pages := []Page{
		{DocName: "gdpr.pdf", PageNumber: 1, Text: strings.Repeat("data protection ", 30)},
		{DocName: "gdpr.pdf", PageNumber: 2, Text: strings.Repeat("consent rules ", 30)},
	}

	first, err := chunker.ChunkPages(pages)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := chunker.ChunkPages(pages)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))

	for i := range first {
		require.Equal(t, first[i].ChunkID, second[i].ChunkID)
		require.Equal(t, first[i].Text, second[i].Text)
	}

	// 第一页第一个分块的标识
	require.Equal(t, "gdpr.pdf_p1_c1", first[0].ChunkID)
}

func TestChunkerIDsDistinct(t *testing.T) {
	chunker := NewChunker(50, 10)
	pages := []Page{
		{DocName: "policy.pdf", PageNumber: 1, Text: strings.Repeat("alpha beta gamma ", 20)},
		{DocName: "policy.pdf", PageNumber: 2, Text: strings.Repeat("delta epsilon ", 20)},
	}

	chunks, err := chunker.ChunkPages(pages)
	require.NoError(t, err)

	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		_, dup := seen[c.ChunkID]
		require.False(t, dup, "重复的 chunk_id: %s", c.ChunkID)
		seen[c.ChunkID] = struct{}{}
	}
}

func TestChunkerOverlapWindows(t *testing.T) {
	chunker := NewChunker(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz"
	pages := []Page{{DocName: "a.pdf", PageNumber: 1, Text: text}}

	chunks, err := chunker.ChunkPages(pages)
	require.NoError(t, err)
	require.True(t, len(chunks) > 1)

	// 相邻分块共享 overlap 个字符
	first := []rune(chunks[0].Text)
	second := []rune(chunks[1].Text)
	require.Equal(t, string(first[len(first)-4:]), string(second[:4]))
}

func TestChunkerEmptyPagesProduceNothing(t *testing.T) {
	chunker := NewChunker(100, 20)
	pages := []Page{
		{DocName: "b.pdf", PageNumber: 1, Text: "   \n\t  "},
	}

	chunks, err := chunker.ChunkPages(pages)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestChunkerMissingFieldsFailValidation(t *testing.T) {
	chunker := NewChunker(100, 20)
	// 缺少 DocName
	pages := []Page{{PageNumber: 1, Text: "some policy text"}}

	_, err := chunker.ChunkPages(pages)
	require.Error(t, err)
	require.True(t, IsValidation(err))
}

func TestChunkerNormalizesWhitespace(t *testing.T) {
	chunker := NewChunker(200, 0)
	pages := []Page{{DocName: "c.pdf", PageNumber: 3, Text: "  first \n\n second\tthird  "}}

	chunks, err := chunker.ChunkPages(pages)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "first second third", chunks[0].Text)
	require.Equal(t, "c.pdf_p3_c1", chunks[0].ChunkID)
}

func TestChunkIDFormat(t *testing.T) {
	require.Equal(t, "x.pdf_p7_c2", ChunkID("x.pdf", 7, 2))
}
