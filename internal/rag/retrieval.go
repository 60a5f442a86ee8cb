package rag

import (
	"context"
)

// SparseIndex 词频检索索引，整库快照构建，不做增量更新
type SparseIndex interface {
	// Index 用完整切片集重建索引
	Index(ctx context.Context, chunks []Chunk) error
	// Search 返回按相关度排序的切片，平分按原始切片顺序
	Search(ctx context.Context, query string, k int) ([]Candidate, error)
	Ready() bool
}

// DenseIndex 向量近邻索引。Search返回的Score是距离，越小越近。
type DenseIndex interface {
	Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]Candidate, error)
	Len() int
	Ready() bool
}

// Snapshotter 支持落盘快照的索引。
// 启动时若快照存在必须加载而不是重建，避免重复的网络向量化开销。
type Snapshotter interface {
	Save(path string) error
	Load(path string) error
}
