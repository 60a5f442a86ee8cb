package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticSparseIndex 基于ES的全文索引，作为内存BM25的替代后端。
// 整库重建：Index先删掉旧索引再重灌。
type ElasticSparseIndex struct {
	client    *elasticsearch.Client
	indexName string
	mu        sync.Mutex
	populated bool
}

// NewElasticSparseIndex 创建ES稀疏索引
func NewElasticSparseIndex(addresses []string, username, password, apiKey, indexName string) (*ElasticSparseIndex, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch addresses are empty")
	}
	if indexName == "" {
		indexName = "paper_chunks"
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
		APIKey:    apiKey,
	})
	if err != nil {
		return nil, err
	}

	return &ElasticSparseIndex{
		client:    client,
		indexName: indexName,
	}, nil
}

func (e *ElasticSparseIndex) ensureIndex(ctx context.Context) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"source":       map[string]interface{}{"type": "keyword"},
				"title":        map[string]interface{}{"type": "keyword"},
				"chunk_index":  map[string]interface{}{"type": "integer"},
				"total_chunks": map[string]interface{}{"type": "integer"},
				"total_pages":  map[string]interface{}{"type": "integer"},
				"content":      map[string]interface{}{"type": "text"},
			},
		},
	}

	body, _ := json.Marshal(mapping)
	createReq := esapi.IndicesCreateRequest{
		Index: e.indexName,
		Body:  bytes.NewReader(body),
	}
	resp, err := createReq.Do(ctx, e.client)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("create index error: %s", resp.String())
	}
	return nil
}

func (e *ElasticSparseIndex) Index(ctx context.Context, chunks []Chunk) error {
	if e.client == nil {
		return fmt.Errorf("elasticsearch client not initialized")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// 重建前清掉旧索引，不存在时忽略404
	delReq := esapi.IndicesDeleteRequest{
		Index:             []string{e.indexName},
		IgnoreUnavailable: esapi.BoolPtr(true),
	}
	if resp, err := delReq.Do(ctx, e.client); err != nil {
		return err
	} else {
		resp.Body.Close()
	}

	if err := e.ensureIndex(ctx); err != nil {
		return err
	}

	for _, chunk := range chunks {
		doc := map[string]interface{}{
			"source":       chunk.Source,
			"title":        chunk.Title,
			"chunk_index":  chunk.ChunkIndex,
			"total_chunks": chunk.TotalChunks,
			"total_pages":  chunk.TotalPages,
			"content":      chunk.Content,
		}
		payload, _ := json.Marshal(doc)

		req := esapi.IndexRequest{
			Index:      e.indexName,
			DocumentID: fmt.Sprintf("%s_%d", chunk.Source, chunk.ChunkIndex),
			Body:       bytes.NewReader(payload),
		}
		resp, err := req.Do(ctx, e.client)
		if err != nil {
			return err
		}
		if resp.IsError() {
			resp.Body.Close()
			return fmt.Errorf("index chunk error: %s", resp.String())
		}
		resp.Body.Close()
	}

	// 刷新后才对搜索可见
	refreshReq := esapi.IndicesRefreshRequest{Index: []string{e.indexName}}
	if resp, err := refreshReq.Do(ctx, e.client); err == nil {
		resp.Body.Close()
	}

	e.populated = len(chunks) > 0
	return nil
}

func (e *ElasticSparseIndex) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	if e.client == nil {
		return nil, fmt.Errorf("elasticsearch client not initialized")
	}
	if k <= 0 {
		return nil, nil
	}

	body := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": map[string]interface{}{
					"query": query,
				},
			},
		},
	}

	payload, _ := json.Marshal(body)
	searchReq := esapi.SearchRequest{
		Index: []string{e.indexName},
		Body:  bytes.NewReader(payload),
	}
	resp, err := searchReq.Do(ctx, e.client)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("search error: %s", resp.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Source      string `json:"source"`
					Title       string `json:"title"`
					ChunkIndex  int    `json:"chunk_index"`
					TotalChunks int    `json:"total_chunks"`
					TotalPages  int    `json:"total_pages"`
					Content     string `json:"content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		candidates = append(candidates, Candidate{
			Chunk: Chunk{
				Source:      hit.Source.Source,
				Title:       hit.Source.Title,
				ChunkIndex:  hit.Source.ChunkIndex,
				TotalChunks: hit.Source.TotalChunks,
				TotalPages:  hit.Source.TotalPages,
				Content:     hit.Source.Content,
			},
			Score: hit.Score,
		})
	}
	return candidates, nil
}

func (e *ElasticSparseIndex) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client != nil && e.populated
}
