package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct 去掉每个切片的重叠前缀（按字符计）后拼接
func reconstruct(chunks []string, overlap int) string {
	var b strings.Builder
	consumed := 0
	for _, chunk := range chunks {
		runes := []rune(chunk)
		skip := min(overlap, consumed)
		b.WriteString(string(runes[skip:]))
		consumed += len(runes) - skip
	}
	return b.String()
}

func TestSplitReconstruction(t *testing.T) {
	chunker := NewChunker(120, 20, nil)

	paragraphs := []string{
		"Spaceflight exposes organisms to microgravity and elevated radiation.",
		"Plant seedlings show altered root growth. Gene expression shifts within days of launch, and recovery takes weeks.",
		"Bacterial biofilms form thicker layers aboard orbital platforms than in matched ground controls, a repeatable result.",
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 120)
	}

	assert.Equal(t, text, reconstruct(chunks, 20))
}

func TestSplitOverlap(t *testing.T) {
	chunker := NewChunker(100, 30, nil)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	// 每个后续切片的前缀来自前一个切片的尾部
	for i := 1; i < len(chunks); i++ {
		assert.True(t, strings.HasSuffix(chunks[i-1], chunks[i][:30]),
			"chunk %d prefix not found at tail of predecessor", i)
	}

	assert.Equal(t, text, reconstruct(chunks, 30))
}

func TestSplitLongWordHardSlice(t *testing.T) {
	chunker := NewChunker(50, 10, nil)
	text := strings.Repeat("x", 300)

	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 50)
	}
	assert.Equal(t, text, reconstruct(chunks, 10))
}

func TestSplitMultibyteText(t *testing.T) {
	chunker := NewChunker(100, 20, nil)
	text := strings.Repeat("量子纠错码保护脆弱的量子比特。", 40)

	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}

	assert.Equal(t, text, reconstruct(chunks, 20))
}

func TestSplitMixedWidthHardSlice(t *testing.T) {
	// 无分隔符的长串混合单字节与多字节字符，硬切边界必须落在rune起点
	chunker := NewChunker(50, 10, nil)
	text := strings.Repeat("aβ界", 100)

	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 50)
	}
	assert.Equal(t, text, reconstruct(chunks, 10))
}

func TestSplitShortText(t *testing.T) {
	chunker := NewChunker(1200, 200, nil)
	text := "A single short paragraph."

	chunks := chunker.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitEmpty(t *testing.T) {
	chunker := NewChunker(1200, 200, nil)
	assert.Nil(t, chunker.Split(""))
}
