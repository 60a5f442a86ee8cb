package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLineEndings(t *testing.T) {
	out := NormalizeText("alpha\r\nbeta\rgamma")
	assert.NotContains(t, out, "\r")
	assert.Equal(t, "alpha beta gamma", out)
}

func TestNormalizeDehyphenation(t *testing.T) {
	out := NormalizeText("micro-\ngravity affects growth")
	assert.Equal(t, "microgravity affects growth", out)
}

func TestNormalizeParagraphsPreserved(t *testing.T) {
	out := NormalizeText("first paragraph\nstill first\n\n\n\nsecond paragraph")
	assert.Equal(t, "first paragraph still first\n\nsecond paragraph", out)
}

func TestNormalizeDedupesRepeatedLines(t *testing.T) {
	// 页眉在每页重复出现，只保留第一次
	raw := "Journal of Space Biology\n\nresults from page one\n\nJournal of Space Biology\n\nresults from page two"
	out := NormalizeText(raw)
	assert.Equal(t, 1, countOccurrences(out, "Journal of Space Biology"))
	assert.Contains(t, out, "results from page one")
	assert.Contains(t, out, "results from page two")
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	out := NormalizeText("too   many\t\tspaces")
	assert.Equal(t, "too many spaces", out)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, "", NormalizeText(""))
	assert.Equal(t, "", NormalizeText("\n\n\n"))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
