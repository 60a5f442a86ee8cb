package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// HTTPReranker 调用交叉编码器Rerank API（pairwise相关度打分）。
// 不可用时由调用方退化到EmbeddingReranker。
type HTTPReranker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
	limiter  sync.Mutex
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewHTTPReranker 创建HTTP重排器
func NewHTTPReranker(endpoint, apiKey, model string, timeoutSeconds int) *HTTPReranker {
	timeout := 30 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &HTTPReranker{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, error) {
	if len(candidates) == 0 || topK <= 0 {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}
	if r.endpoint == "" {
		return nil, errors.New("rerank endpoint not configured")
	}

	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.Chunk.Content
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: docs,
	})
	if err != nil {
		return nil, err
	}

	r.limiter.Lock()
	defer r.limiter.Unlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank API错误: HTTP %d - %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, err
	}
	if len(rerankResp.Results) == 0 {
		return nil, errors.New("rerank response empty")
	}

	// index -> 相关度
	scoreMap := make(map[int]float64, len(rerankResp.Results))
	for _, result := range rerankResp.Results {
		scoreMap[result.Index] = result.RelevanceScore
	}

	scored := make([]Candidate, len(candidates))
	for i, cand := range candidates {
		scored[i] = Candidate{Chunk: cand.Chunk, Score: scoreMap[i]}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

func (r *HTTPReranker) Ready() bool {
	return r.endpoint != ""
}
