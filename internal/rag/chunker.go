package rag

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 从粗到细的分隔符序列，最后的空串表示按字符硬切
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

// Chunker 递归字符切分器。
// 先用粗分隔符切，超长的片段再用更细的分隔符递归切，
// 最终相邻切片之间带ChunkOverlap个字符的上文。
// 预算与重叠一律按字符（rune）计数，按字节切会把多字节字符切坏。
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewChunker 创建切分器
func NewChunker(chunkSize, chunkOverlap int, separators []string) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   separators,
	}
}

// Split 把清洗后的文本切成有序切片。
// 保证：去掉每个切片的重叠前缀后顺序拼接，恰好还原输入文本。
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	// 主体预算给重叠留出空间，保证切片总长不超过ChunkSize
	coreBudget := c.ChunkSize - c.ChunkOverlap

	pieces := c.splitRecursive(text, coreBudget, c.Separators)
	cores := mergePieces(pieces, coreBudget)

	runes := []rune(text)
	chunks := make([]string, 0, len(cores))
	offset := 0
	for _, core := range cores {
		start := offset - c.ChunkOverlap
		if start < 0 {
			start = 0
		}
		end := offset + utf8.RuneCountInString(core)
		chunks = append(chunks, string(runes[start:end]))
		offset = end
	}
	return chunks
}

// splitRecursive 用分隔符序列把文本切成不超过budget的原子片段，
// 分隔符保留在片段尾部，片段拼接等于原文。
func (c *Chunker) splitRecursive(text string, budget int, separators []string) []string {
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}
	if len(separators) == 0 {
		return hardSlice(text, budget)
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return hardSlice(text, budget)
	}

	parts := splitKeepSeparator(text, sep)
	if len(parts) == 1 {
		// 当前分隔符切不动，换下一级
		return c.splitRecursive(text, budget, rest)
	}

	var pieces []string
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= budget {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, c.splitRecursive(part, budget, rest)...)
		}
	}
	return pieces
}

// splitKeepSeparator 切分并把分隔符附在前一个片段尾部
func splitKeepSeparator(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter可能产生末尾空串
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// hardSlice 按字符硬切，边界永远落在rune起点上
func hardSlice(text string, budget int) []string {
	runes := []rune(text)
	var pieces []string
	for len(runes) > budget {
		pieces = append(pieces, string(runes[:budget]))
		runes = runes[budget:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

// mergePieces 把原子片段贪心合并成不超过budget的主体段
func mergePieces(pieces []string, budget int) []string {
	var cores []string
	var current strings.Builder
	length := 0

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if length > 0 && length+n > budget {
			cores = append(cores, current.String())
			current.Reset()
			length = 0
		}
		current.WriteString(piece)
		length += n
	}
	if current.Len() > 0 {
		cores = append(cores, current.String())
	}
	return cores
}
