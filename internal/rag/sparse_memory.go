package rag

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// MemorySparseIndex 进程内BM25索引
type MemorySparseIndex struct {
	mu        sync.RWMutex
	chunks    []Chunk
	docTerms  []map[string]int // 每个切片的词频
	docLens   []int
	avgDocLen float64
	docFreq   map[string]int // 词 -> 含该词的切片数
}

// NewMemorySparseIndex 创建内存BM25索引
func NewMemorySparseIndex() *MemorySparseIndex {
	return &MemorySparseIndex{
		docFreq: make(map[string]int),
	}
}

// tokenize 小写化并按非字母数字切词
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func (s *MemorySparseIndex) Index(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make([]Chunk, len(chunks))
	copy(s.chunks, chunks)
	s.docTerms = make([]map[string]int, len(chunks))
	s.docLens = make([]int, len(chunks))
	s.docFreq = make(map[string]int)

	totalLen := 0
	for i, chunk := range chunks {
		terms := tokenize(chunk.Content)
		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			freq[term]++
		}
		for term := range freq {
			s.docFreq[term]++
		}
		s.docTerms[i] = freq
		s.docLens[i] = len(terms)
		totalLen += len(terms)
	}

	if len(chunks) > 0 {
		s.avgDocLen = float64(totalLen) / float64(len(chunks))
	}
	return nil
}

func (s *MemorySparseIndex) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 || k <= 0 {
		return nil, nil
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	n := float64(len(s.chunks))
	scores := make([]float64, len(s.chunks))

	for _, term := range queryTerms {
		df, ok := s.docFreq[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for i, freq := range s.docTerms {
			tf := float64(freq[term])
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(s.docLens[i])/s.avgDocLen
			scores[i] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}

	// 平分时保留原始切片顺序
	order := make([]int, len(s.chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	results := make([]Candidate, 0, k)
	for _, idx := range order {
		if scores[idx] <= 0 {
			break
		}
		results = append(results, Candidate{Chunk: s.chunks[idx], Score: scores[idx]})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func (s *MemorySparseIndex) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks) > 0
}
