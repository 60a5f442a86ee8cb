package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusDenseIndex 基于Milvus的向量索引，作为内存索引的替代后端。
// Milvus自身持久化，不实现Snapshotter。
type MilvusDenseIndex struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
	mu           sync.Mutex
	count        int
	nextID       int64
	loaded       bool
}

// NewMilvusDenseIndex 创建Milvus向量索引
func NewMilvusDenseIndex(address, username, password, collection string, vectorSize int) (*MilvusDenseIndex, error) {
	if address == "" {
		address = "localhost:19530"
	}
	if collection == "" {
		collection = "paper_chunks"
	}
	if vectorSize == 0 {
		vectorSize = 384
	}

	milvusClient, err := client.NewClient(context.Background(), client.Config{
		Address:  address,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &MilvusDenseIndex{
		milvusClient: milvusClient,
		collection:   collection,
		vectorSize:   vectorSize,
	}, nil
}

func (m *MilvusDenseIndex) ensureCollection(ctx context.Context) error {
	has, err := m.milvusClient.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collection,
		Description:    "paper chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     "source",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorSize),
				},
			},
		},
	}

	if err := m.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	var index entity.Index
	index, err = entity.NewIndexHNSW(entity.L2, 8, 64)
	if err != nil {
		index, err = entity.NewIndexIvfFlat(entity.L2, 128)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	if err := m.milvusClient.CreateIndex(ctx, m.collection, "vector", index, false); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

func (m *MilvusDenseIndex) ensureLoaded(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	if err := m.milvusClient.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	m.loaded = true
	return nil
}

func (m *MilvusDenseIndex) Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureCollection(ctx); err != nil {
		return err
	}

	ids := make([]int64, len(chunks))
	sources := make([]string, len(chunks))
	titles := make([]string, len(chunks))
	chunkIndexes := make([]int64, len(chunks))
	contents := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))

	for i, chunk := range chunks {
		ids[i] = m.nextID
		m.nextID++
		sources[i] = chunk.Source
		titles[i] = chunk.Title
		chunkIndexes[i] = int64(chunk.ChunkIndex)
		contents[i] = chunk.Content

		vec := vectors[i]
		if len(vec) != m.vectorSize {
			padded := make([]float32, m.vectorSize)
			copy(padded, vec)
			vec = padded
		}
		embeddings[i] = vec
	}

	_, err := m.milvusClient.Insert(ctx, m.collection, "",
		entity.NewColumnInt64("id", ids),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnFloatVector("vector", m.vectorSize, embeddings),
	)
	if err != nil {
		return fmt.Errorf("milvus insert failed: %w", err)
	}

	if err := m.milvusClient.Flush(ctx, m.collection, false); err != nil {
		return fmt.Errorf("milvus flush failed: %w", err)
	}

	m.count += len(chunks)
	m.loaded = false
	return nil
}

func (m *MilvusDenseIndex) Search(ctx context.Context, vector []float32, k int) ([]Candidate, error) {
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := m.milvusClient.Search(
		ctx,
		m.collection,
		[]string{},
		"",
		[]string{"source", "title", "chunk_index", "content"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.L2,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}
	if len(searchResults) == 0 {
		return nil, nil
	}

	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}

	var sources, titles, contents []string
	var chunkIndexes []int64
	for _, field := range result.Fields {
		switch field.Name() {
		case "source":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				sources = col.Data()
			}
		case "title":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				titles = col.Data()
			}
		case "chunk_index":
			if col, ok := field.(*entity.ColumnInt64); ok {
				chunkIndexes = col.Data()
			}
		case "content":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		}
	}

	candidates := make([]Candidate, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		chunk := Chunk{}
		if i < len(sources) {
			chunk.Source = sources[i]
		}
		if i < len(titles) {
			chunk.Title = titles[i]
		}
		if i < len(chunkIndexes) {
			chunk.ChunkIndex = int(chunkIndexes[i])
		}
		if i < len(contents) {
			chunk.Content = contents[i]
		}

		dist := float64(0)
		if i < len(result.Scores) {
			dist = float64(result.Scores[i])
		}
		candidates = append(candidates, Candidate{Chunk: chunk, Score: dist})
	}
	return candidates, nil
}

func (m *MilvusDenseIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *MilvusDenseIndex) Ready() bool {
	if m.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := m.milvusClient.ListCollections(ctx)
	return err == nil
}
